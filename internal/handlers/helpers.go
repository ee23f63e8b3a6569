package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/request"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxMessageLength caps error messages returned to clients
const maxMessageLength = 200

// Options are shared by every handler
type Options struct {
	Logger *zap.Logger
	// Debug adds the underlying error as "detail" to error responses
	Debug bool
	// Location is the zone used when a request carries no X-Timezone header
	Location *time.Location
}

// responder writes the JSON envelope and maps service errors onto statuses
type responder struct {
	logger   *zap.Logger
	debug    bool
	location *time.Location
}

func newResponder(opts Options) responder {
	r := responder{logger: opts.Logger, debug: opts.Debug, location: opts.Location}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.location == nil {
		r.location = time.UTC
	}
	return r
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	respondJSONMessage(w, status, data, "")
}

// respondJSONMessage sends a successful envelope with an optional message
func respondJSONMessage(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if message != "" {
		response["message"] = message
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage removes control characters and caps the length
func sanitizeErrorMessage(message string) string {
	return logger.SanitizeString(message, maxMessageLength)
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	writeError(w, status, errorType, message, "")
}

func writeError(w http.ResponseWriter, status int, errorType, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if detail != "" {
		response["detail"] = detail
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error envelope. err is only exposed in debug mode;
// server-side failures are always logged.
func (h responder) respondError(w http.ResponseWriter, r *http.Request, status int, errorType, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request_failed",
			zap.String("request_id", request.RequestIDFromContext(r.Context())),
			zap.String("path", logger.SanitizePath(r.URL.Path)),
			zap.Int("status_code", status),
			zap.String("error", logger.SanitizeError(err)),
		)
	}
	detail := ""
	if h.debug && err != nil {
		detail = logger.SanitizeError(err)
	}
	writeError(w, status, errorType, message, detail)
}

// respondAIError maps a classified completion failure onto its HTTP status
func (h responder) respondAIError(w http.ResponseWriter, r *http.Request, err error) {
	classified := ai.Classify(err)
	status := StatusForKind(classified.Kind)
	if classified.Kind == ai.KindRateLimited {
		retryAfter := classified.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 60 * time.Second
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	if status < http.StatusInternalServerError {
		h.logger.Info("ai_request_rejected",
			zap.String("kind", string(classified.Kind)),
			zap.String("request_id", request.RequestIDFromContext(r.Context())),
		)
	}
	h.respondError(w, r, status, string(classified.Kind), classified.Message, classified.Err)
}

// StatusForKind returns the HTTP status for a completion failure kind
func StatusForKind(kind ai.Kind) int {
	switch kind {
	case ai.KindInvalidInput:
		return http.StatusBadRequest
	case ai.KindRateLimited:
		return http.StatusTooManyRequests
	case ai.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// respondStorageError maps repository errors onto statuses
func (h responder) respondStorageError(w http.ResponseWriter, r *http.Request, err error) {
	message := database.UserMessage(err)
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "Not Found", message, err)
	case errors.Is(err, database.ErrConflict):
		h.respondError(w, r, http.StatusConflict, "Conflict", message, err)
	case errors.Is(err, database.ErrForbidden):
		h.respondError(w, r, http.StatusForbidden, "Forbidden", message, err)
	case errors.Is(err, database.ErrCredentialExpired):
		h.respondError(w, r, http.StatusUnauthorized, "Unauthorized", message, err)
	default:
		h.respondError(w, r, http.StatusInternalServerError, "Internal Server Error", message, err)
	}
}

// identity returns the authenticated caller or writes a 401
func (h responder) identity(w http.ResponseWriter, r *http.Request) *request.Identity {
	id := request.IdentityFromContext(r.Context())
	if id == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
	}
	return id
}

// now is the reference time in the caller's zone
func (h responder) now(r *http.Request) time.Time {
	return time.Now().In(request.Location(r, h.location))
}

// decodeJSON decodes and validates the request body into dst. It writes the
// error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		// Check if error is due to request size limit
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationMessage(validationErrors[0])))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "priority":
		return field + " must be one of: high, medium, low"
	case "period":
		return field + " must be one of: today, week"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
