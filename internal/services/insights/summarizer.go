// Package insights computes completion statistics over a period and asks the
// completion service to narrate them.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"go.uber.org/zap"
)

const (
	// Temperature leaves some room for phrasing
	Temperature = 0.7

	operation = "summarize"
)

// ErrNothingToAnalyze is returned for an empty task list; no completion call is made.
var ErrNothingToAnalyze = errors.New("there are no tasks to analyze for this period")

// Summarizer produces productivity reports
type Summarizer struct {
	completer ai.Completer
	logger    *zap.Logger
}

// New creates a summarizer
func New(completer ai.Completer, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{completer: completer, logger: logger}
}

// Summarize computes stats for tasks and attaches the narrated summary.
// A nil slice is invalid input; an empty one yields ErrNothingToAnalyze.
func (s *Summarizer) Summarize(ctx context.Context, tasks []models.Task, period models.Period, now time.Time) (*models.SummaryReport, error) {
	if tasks == nil {
		return nil, ai.InvalidInput("A task list is required.")
	}
	if !period.Valid() {
		return nil, ai.InvalidInput("Period must be one of: today, week.")
	}
	if len(tasks) == 0 {
		return nil, ErrNothingToAnalyze
	}

	stats := ComputeStats(tasks, period, now)

	prompt, err := BuildPrompt(stats, now)
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindService, Message: "Failed to prepare the summary request.", Err: err}
	}

	raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
		Operation:   operation,
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      Schema(),
		Temperature: Temperature,
	})
	if err != nil {
		return nil, ai.Classify(err)
	}

	var summary models.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("summary_output_invalid", zap.Error(err))
		return nil, &ai.Error{Kind: ai.KindService, Message: "The assistant returned an unreadable summary.", Err: err}
	}

	s.logger.Debug("summary_completed",
		zap.String("period", string(period)),
		zap.Int("task_count", len(tasks)),
		zap.Int("completion_rate", stats.Overall.CompletionRate),
	)

	return &models.SummaryReport{Period: period, Stats: stats, Summary: &summary}, nil
}

// Schema is the narrative shape requested from the completer
func Schema() ai.OutputSchema {
	list := func(minItems, maxItems int) map[string]any {
		m := map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "maxItems": maxItems}
		if minItems > 0 {
			m["minItems"] = minItems
		}
		return m
	}
	return ai.OutputSchema{
		Name:        "productivity_summary",
		Description: "A short productivity report over a to-do list",
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"summary", "urgentTasks", "insights", "recommendations"},
			"properties": map[string]any{
				"summary":         map[string]any{"type": "string"},
				"urgentTasks":     list(0, 5),
				"insights":        list(3, 5),
				"recommendations": list(3, 5),
			},
		},
	}
}
