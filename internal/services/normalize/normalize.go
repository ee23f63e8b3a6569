// Package normalize turns a free-form sentence into a validated task draft.
package normalize

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"go.uber.org/zap"
)

const (
	// MinInputLength and MaxInputLength bound the trimmed input in characters
	MinInputLength = 2
	MaxInputLength = 500

	// Temperature keeps extraction close to deterministic
	Temperature = 0.3

	operation = "normalize"
)

// Normalizer maps natural-language text to a task draft through a completer
type Normalizer struct {
	completer ai.Completer
	logger    *zap.Logger
}

// New creates a normalizer
func New(completer ai.Completer, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{completer: completer, logger: logger}
}

// Normalize validates text, asks the completer for a draft relative to ref and
// repairs whatever comes back. Rejected input never reaches the completer.
func (n *Normalizer) Normalize(ctx context.Context, text string, ref time.Time) (*models.TaskDraft, error) {
	input, err := PrepareInput(text)
	if err != nil {
		return nil, err
	}

	raw, err := n.completer.Complete(ctx, ai.CompletionRequest{
		Operation:   operation,
		System:      systemPrompt,
		Prompt:      BuildPrompt(input, ref),
		Schema:      Schema(),
		Temperature: Temperature,
	})
	if err != nil {
		return nil, ai.Classify(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		// not an object: every field falls back to its default
		n.logger.Warn("normalize_output_not_object", zap.Error(err))
		fields = nil
	}

	draft := RepairDraft(fields, ref)
	n.logger.Debug("normalize_completed",
		zap.Int("input_length", utf8.RuneCountInString(input)),
		zap.String("due_date", draft.DueDate),
		zap.String("priority", string(draft.Priority)),
	)
	return draft, nil
}

// PrepareInput trims text, collapses whitespace runs and enforces the length bounds
func PrepareInput(text string) (string, error) {
	input := strings.Join(strings.Fields(text), " ")
	if input == "" {
		return "", ai.InvalidInput("Please enter a task description.")
	}
	n := utf8.RuneCountInString(input)
	if n < MinInputLength {
		return "", ai.InvalidInput("The task description must be at least %d characters.", MinInputLength)
	}
	if n > MaxInputLength {
		return "", ai.InvalidInput("The task description must be at most %d characters.", MaxInputLength)
	}
	return input, nil
}

// Schema is the output shape requested from the completer
func Schema() ai.OutputSchema {
	return ai.OutputSchema{
		Name:        "task_draft",
		Description: "A single to-do item extracted from a natural-language sentence",
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"title", "description", "due_date", "due_time", "priority", "category"},
			"properties": map[string]any{
				"title":       map[string]any{"type": "string"},
				"description": map[string]any{"type": []string{"string", "null"}},
				"due_date":    map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				"due_time":    map[string]any{"type": "string", "description": "HH:MM, 24-hour"},
				"priority": map[string]any{
					"type": "string",
					"enum": []string{string(models.PriorityHigh), string(models.PriorityMedium), string(models.PriorityLow)},
				},
				"category": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{models.CategoryWork, models.CategoryPersonal, models.CategoryHealth, models.CategoryStudy},
					},
				},
			},
		},
	}
}
