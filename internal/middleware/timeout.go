package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout is the default request timeout. It sits above the
	// completion client timeout so a slow AI call surfaces as ServiceUnavailable
	// from the handler rather than as a bare timeout.
	DefaultRequestTimeout = 45 * time.Second
)

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"The request took too long to complete"}`

// Timeout bounds handler execution. The request context is cancelled at the
// deadline and the client receives a 503.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
