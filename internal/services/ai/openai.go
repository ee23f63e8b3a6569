package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/request"
	"github.com/benvon/todo-assistant/internal/telemetry"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 30 * time.Second
)

// OpenAIProvider implements Completer with OpenAI chat completions and
// strict JSON-schema output.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a provider. Empty model, base URL and timeout take defaults.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: cfg.DebugMode,
	}
}

// Complete sends one chat completion and returns the JSON object in the reply
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (_ json.RawMessage, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ai.complete",
		attribute.String("ai.operation", req.Operation),
		attribute.String("ai.model", p.model),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: openai.String(req.Schema.Description),
					Schema:      req.Schema.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	userID := request.UserIDFromContext(ctx)
	requestID := request.RequestIDFromContext(ctx)
	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(req.Prompt)),
			zap.String("prompt_preview", SanitizePrompt(req.Prompt, true)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		classified := Classify(err)
		p.logger.Warn("llm_api_error",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.String("kind", string(classified.Kind)),
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
			zap.Duration("latency", latency),
		)
		return nil, classified
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindService, Message: "The AI service returned no answer."}
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.Int64("total_tokens", resp.Usage.TotalTokens),
		)
	}

	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, &Error{Kind: KindService, Message: "The AI service returned malformed output.", Err: err}
	}
	return raw, nil
}

// ExtractJSONObject returns content as a JSON object. When the reply wraps the
// object in prose or code fences, the outermost {...} is used.
func ExtractJSONObject(content string) (json.RawMessage, error) {
	raw := strings.TrimSpace(content)
	if json.Valid([]byte(raw)) && strings.HasPrefix(raw, "{") {
		return json.RawMessage(raw), nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion")
	}
	raw = raw[start : end+1]
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("completion is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
