package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

// Kind classifies failures of the AI components
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput"
	KindServiceAuth  Kind = "ServiceAuthError"
	KindRateLimited  Kind = "ServiceRateLimited"
	KindUnavailable  Kind = "ServiceUnavailable"
	KindService      Kind = "ServiceError"
)

const (
	rateLimitRetryAfter = 60 * time.Second
	quotaRetryAfter     = time.Hour
)

// Error is a classified failure. Message is safe to show to the caller.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput builds an InvalidInput error
func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindService for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindService
}

// Classify maps a completion-service failure onto a Kind. Errors that are
// already classified pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUnavailable, Message: "The AI service did not respond in time.", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnavailable, Message: "The request was cancelled.", Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Code, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindUnavailable, Message: "The AI service could not be reached.", Err: err}
	}

	// Proxies and compatible gateways do not always return typed errors
	if status, code := sniffStatus(err.Error()); status != 0 {
		return classifyStatus(status, code, err)
	}

	return &Error{Kind: KindService, Message: "The AI service returned an unexpected error.", Err: err}
}

func classifyStatus(status int, code string, err error) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindServiceAuth, Message: "The AI service rejected our credentials.", Err: err}
	case status == http.StatusTooManyRequests && code == "insufficient_quota":
		return &Error{Kind: KindRateLimited, Message: "The AI service quota is exhausted. Please try again later.", RetryAfter: quotaRetryAfter, Err: err}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Message: "Too many AI requests. Please try again shortly.", RetryAfter: rateLimitRetryAfter, Err: err}
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return &Error{Kind: KindUnavailable, Message: "The AI service is temporarily unavailable.", Err: err}
	default:
		return &Error{Kind: KindService, Message: "The AI service returned an unexpected error.", Err: err}
	}
}

// statusToken matches a status code standing alone, not inside a longer number or id
var statusToken = regexp.MustCompile(`(?:^|\D)(401|403|429|502|503|504)(?:\D|$)`)

// sniffStatus recovers a status and error code from an untyped error message,
// e.g. `429 Too Many Requests {"code":"insufficient_quota"}`.
func sniffStatus(msg string) (int, string) {
	var status int
	if m := statusToken.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	lower := strings.ToLower(msg)
	if status == 0 && (strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")) {
		status = http.StatusTooManyRequests
	}
	if status == 0 {
		return 0, ""
	}

	code := ""
	if start := strings.Index(msg, "{"); start != -1 {
		if end := strings.LastIndex(msg, "}"); end > start {
			var body struct {
				Code  string `json:"code"`
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if json.Unmarshal([]byte(msg[start:end+1]), &body) == nil {
				code = body.Code
				if code == "" {
					code = body.Error.Code
				}
			}
		}
	}
	if code == "" && strings.Contains(msg, "insufficient_quota") {
		code = "insufficient_quota"
	}
	return status, code
}
