package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindUnavailable},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindUnavailable},
		{"network", timeoutErr{}, KindUnavailable},
		{"untyped 429", errors.New("POST /chat/completions: 429 Too Many Requests"), KindRateLimited},
		{"untyped rate limit text", errors.New("rate limit reached for requests"), KindRateLimited},
		{"untyped 401", errors.New("401 Unauthorized"), KindServiceAuth},
		{"untyped 503", errors.New("503 Service Unavailable"), KindUnavailable},
		{"unknown", errors.New("something odd"), KindService},
		{"already classified", InvalidInput("too short"), KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotEmpty(t, got.Message)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	cause := errors.New("upstream")
	tests := []struct {
		status     int
		code       string
		want       Kind
		retryAfter time.Duration
	}{
		{http.StatusUnauthorized, "", KindServiceAuth, 0},
		{http.StatusForbidden, "", KindServiceAuth, 0},
		{http.StatusTooManyRequests, "", KindRateLimited, rateLimitRetryAfter},
		{http.StatusTooManyRequests, "insufficient_quota", KindRateLimited, quotaRetryAfter},
		{http.StatusBadGateway, "", KindUnavailable, 0},
		{http.StatusServiceUnavailable, "", KindUnavailable, 0},
		{http.StatusGatewayTimeout, "", KindUnavailable, 0},
		{http.StatusInternalServerError, "", KindService, 0},
		{http.StatusBadRequest, "", KindService, 0},
	}

	for _, tt := range tests {
		got := classifyStatus(tt.status, tt.code, cause)
		assert.Equal(t, tt.want, got.Kind, "status %d code %q", tt.status, tt.code)
		assert.Equal(t, tt.retryAfter, got.RetryAfter, "status %d code %q", tt.status, tt.code)
		assert.ErrorIs(t, got, cause)
	}
}

func TestSniffStatus_QuotaCode(t *testing.T) {
	t.Parallel()

	status, code := sniffStatus(`429 Too Many Requests {"error":{"message":"You exceeded your current quota","code":"insufficient_quota"}}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "insufficient_quota", code)

	status, _ = sniffStatus("plain failure")
	assert.Zero(t, status)
}

func TestSniffStatus_DelimitedCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want int
		kind Kind
	}{
		{"upstream returned 503 Service Unavailable", http.StatusServiceUnavailable, KindUnavailable},
		{"status=401", http.StatusUnauthorized, KindServiceAuth},
		{"403", http.StatusForbidden, KindServiceAuth},
		{"gateway error (502)", http.StatusBadGateway, KindUnavailable},
		{"decode response for request req_4291af: unexpected EOF", 0, KindService},
		{"invalid JSON at offset 4013", 0, KindService},
		{"read 15030 bytes then reset", 0, KindService},
		{"trace 1504-x failed", 0, KindService},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			status, _ := sniffStatus(tt.msg)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.kind, Classify(errors.New(tt.msg)).Kind)
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("wrap: %w", InvalidInput("x"))))
	assert.Equal(t, KindService, KindOf(errors.New("plain")))
}
