package insights

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	last     ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (json.RawMessage, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

const narrative = `{"summary":"Solid day.","urgentTasks":["report"],"insights":["a","b","c"],"recommendations":["x","y","z"]}`

func TestSummarize_InputContract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tasks   []models.Task
		period  models.Period
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "absent list",
			tasks:  nil,
			period: models.PeriodToday,
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, ai.KindInvalidInput, ai.KindOf(err))
			},
		},
		{
			name:   "unknown period",
			tasks:  []models.Task{task("a", models.PriorityLow, false, nil)},
			period: models.Period("tomorrow"),
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, ai.KindInvalidInput, ai.KindOf(err))
			},
		},
		{
			name:   "empty list",
			tasks:  []models.Task{},
			period: models.PeriodToday,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNothingToAnalyze)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fc := &fakeCompleter{response: narrative}
			report, err := New(fc, nil).Summarize(context.Background(), tt.tasks, tt.period, analysisNow)
			require.Error(t, err)
			assert.Nil(t, report)
			tt.wantErr(t, err)
			assert.Zero(t, fc.calls)
		})
	}
}

func TestSummarize_ReturnsStatsAndNarrative(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{response: narrative}
	tasks := []models.Task{
		task("report", models.PriorityHigh, false, at(17), "work"),
		task("stretch", models.PriorityLow, true, at(8), "health"),
	}

	report, err := New(fc, nil).Summarize(context.Background(), tasks, models.PeriodToday, analysisNow)
	require.NoError(t, err)

	assert.Equal(t, models.PeriodToday, report.Period)
	assert.Equal(t, 2, report.Stats.Overall.Total)
	require.NotNil(t, report.Summary)
	assert.Equal(t, "Solid day.", report.Summary.Summary)
	assert.Equal(t, []string{"report"}, report.Summary.UrgentTasks)
	assert.Len(t, report.Summary.Insights, 3)
	assert.Len(t, report.Summary.Recommendations, 3)

	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, "productivity_summary", fc.last.Schema.Name)
	assert.Contains(t, fc.last.Prompt, "1. report")
	assert.Contains(t, fc.last.Prompt, "\"by_priority\"")
}

func TestSummarize_CompleterErrors(t *testing.T) {
	t.Parallel()

	tasks := []models.Task{task("a", models.PriorityLow, false, nil)}

	fc := &fakeCompleter{err: context.DeadlineExceeded}
	_, err := New(fc, nil).Summarize(context.Background(), tasks, models.PeriodWeek, analysisNow)
	assert.Equal(t, ai.KindUnavailable, ai.KindOf(err))

	fc = &fakeCompleter{err: &ai.Error{Kind: ai.KindServiceAuth, Message: "bad key"}}
	_, err = New(fc, nil).Summarize(context.Background(), tasks, models.PeriodWeek, analysisNow)
	var aiErr *ai.Error
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, ai.KindServiceAuth, aiErr.Kind)

	fc = &fakeCompleter{response: `"just a string"`}
	_, err = New(fc, nil).Summarize(context.Background(), tasks, models.PeriodWeek, analysisNow)
	assert.Equal(t, ai.KindService, ai.KindOf(err))
}

func TestSchema_NarrativeBounds(t *testing.T) {
	t.Parallel()

	props, ok := Schema().Schema["properties"].(map[string]any)
	require.True(t, ok)

	urgent := props["urgentTasks"].(map[string]any)
	assert.Equal(t, 5, urgent["maxItems"])
	assert.NotContains(t, urgent, "minItems")

	for _, key := range []string{"insights", "recommendations"} {
		p := props[key].(map[string]any)
		assert.Equal(t, 3, p["minItems"])
		assert.Equal(t, 5, p["maxItems"])
	}
}
