package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/todo-assistant/internal/request"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
	}{
		{"GET request", "GET", "/healthz", http.StatusOK},
		{"POST request", "POST", "/api/v1/tasks", http.StatusCreated},
		{"404 request", "GET", "/notfound", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			assert.Equal(t, tt.handlerStatus, w.Code)
			entries := logs.FilterMessage("http_request").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, tt.method, fields["method"])
			assert.Equal(t, int64(tt.handlerStatus), fields["status_code"])
		})
	}
}

func TestLogging_RecordsFirstStatusAndCaller(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	userID := uuid.New()

	verifier := &stubVerifier{sub: userID.String()}
	handler := Auth(verifier, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test"))
	}))

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer token")
	req = req.WithContext(request.WithRequestID(req.Context(), "req-1"))
	w := httptest.NewRecorder()

	Logging(zap.New(core))(handler).ServeHTTP(w, req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), fields["status_code"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Contains(t, fields, "user_id")
}
