package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/services/auth"
	"github.com/benvon/todo-assistant/internal/services/oidc"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Authenticator registers and signs in users
type Authenticator interface {
	Register(ctx context.Context, email, password string, name *string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	SignInExternal(ctx context.Context, provider, subject, email string, name *string) (*auth.Session, error)
}

// OIDCFlow runs external provider logins
type OIDCFlow interface {
	LoginURL(ctx context.Context, provider string) (string, error)
	Callback(ctx context.Context, provider, code, state string) (*oidc.IDClaims, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	responder
	auth Authenticator
	oidc OIDCFlow
}

// NewAuthHandler creates a new auth handler. flow may be nil when external
// login is not configured.
func NewAuthHandler(authenticator Authenticator, flow OIDCFlow, opts Options) *AuthHandler {
	return &AuthHandler{responder: newResponder(opts), auth: authenticator, oidc: flow}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/oidc/{provider}/login", h.OIDCLogin).Methods("GET")
	r.HandleFunc("/oidc/{provider}/callback", h.OIDCCallback).Methods("POST")
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=320"`
	Password string  `json:"password" validate:"required,max=256"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=256"`
}

// OIDCCallbackRequest carries the authorization response back from the browser
type OIDCCallbackRequest struct {
	Code  string `json:"code" validate:"required,max=2048"`
	State string `json:"state" validate:"required,max=256"`
}

// Register creates an account and returns a session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// Login exchanges email and password for a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info("login_failed", zap.String("email", logger.MaskEmail(req.Email)))
		}
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// OIDCLogin returns the provider authorization URL
func (h *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "External login is not configured")
		return
	}
	provider := mux.Vars(r)["provider"]

	url, err := h.oidc.LoginURL(r.Context(), provider)
	if err != nil {
		h.respondOIDCError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

// OIDCCallback completes an external login and returns a session
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "External login is not configured")
		return
	}
	provider := mux.Vars(r)["provider"]

	var req OIDCCallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.oidc.Callback(r.Context(), provider, req.Code, req.State)
	if err != nil {
		h.respondOIDCError(w, r, err)
		return
	}
	if claims.Email == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "The identity provider did not return an email address")
		return
	}

	session, err := h.auth.SignInExternal(r.Context(), provider, claims.Subject, claims.Email, claims.Name)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", ve.Message)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		respondJSONError(w, http.StatusConflict, "Conflict", auth.ErrEmailTaken.Error())
	default:
		h.respondStorageError(w, r, err)
	}
}

func (h *AuthHandler) respondOIDCError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, oidc.ErrUnknownProvider):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Unknown identity provider")
	case errors.Is(err, oidc.ErrInvalidState):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", oidc.ErrInvalidState.Error())
	default:
		h.respondError(w, r, http.StatusBadGateway, "Bad Gateway", "Sign-in with the identity provider failed", err)
	}
}
