package ai

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// OutputSchema is the JSON schema the completion must conform to
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// CompletionRequest is one structured-output completion call
type CompletionRequest struct {
	// Operation names the caller in logs and spans ("normalize", "summarize")
	Operation   string
	System      string
	Prompt      string
	Schema      OutputSchema
	Temperature float64
}

// Completer sends a prompt to a completion service and returns the JSON object
// it produced. The object is untrusted: callers validate every field.
// Errors are *Error values classified by Kind.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error)
}

// ProviderConfig carries what a provider factory needs
type ProviderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	Logger    *zap.Logger
	DebugMode bool
}

// ProviderFactory creates a completer from configuration
type ProviderFactory func(cfg ProviderConfig) (Completer, error)

// ProviderRegistry stores available completion providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a registry with the built-in providers registered
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
	r.Register("openai", func(cfg ProviderConfig) (Completer, error) {
		return NewOpenAIProvider(cfg), nil
	})
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider builds the named provider
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (Completer, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
