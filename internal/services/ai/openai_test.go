package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1717200000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(ProviderConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

var testRequest = CompletionRequest{
	Operation:   "normalize",
	System:      "system",
	Prompt:      "prompt",
	Schema:      OutputSchema{Name: "task_draft", Schema: map[string]any{"type": "object"}},
	Temperature: 0.3,
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	var sent map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &sent)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody(`{"title":"Prepare team meeting"}`))
	})

	raw, err := p.Complete(context.Background(), testRequest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Prepare team meeting"}`, string(raw))

	assert.Equal(t, "gpt-4o-mini", sent["model"])
	assert.InDelta(t, 0.3, sent["temperature"], 1e-9)
	format, ok := sent["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIProvider_Complete_ExtractsWrappedObject(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody("Sure! ```json\n{\"summary\":\"ok\"}\n```"))
	})

	raw, err := p.Complete(context.Background(), testRequest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, string(raw))
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`, KindServiceAuth},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, KindRateLimited},
		{"unavailable", http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`, KindUnavailable},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, KindService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := p.Complete(context.Background(), testRequest)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestOpenAIProvider_Complete_Malformed(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody("I cannot help with that."))
	})

	_, err := p.Complete(context.Background(), testRequest)
	assert.Equal(t, KindService, KindOf(err))
}

func TestOpenAIProvider_Complete_Timeout(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, testRequest)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`{"a":1}`, `{"a":1}`, false},
		{"  {\"a\":1}\n", `{"a":1}`, false},
		{"prefix {\"a\":{\"b\":2}} suffix", `{"a":{"b":2}}`, false},
		{"no json", "", true},
		{"{broken", "", true},
		{`[1,2]`, "", true},
	}
	for _, tt := range tests {
		got, err := ExtractJSONObject(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.JSONEq(t, tt.want, string(got))
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	r := NewProviderRegistry()
	c, err := r.GetProvider("openai", ProviderConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = r.GetProvider("unknown", ProviderConfig{})
	var notFound *ErrProviderNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", SanitizeAPIKey(""))
	assert.Equal(t, RedactedValue, SanitizeAPIKey("short"))
	assert.Equal(t, "sk-a"+RedactedValue+"wxyz", SanitizeAPIKey("sk-abcdefghwxyz"))
}
