package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/benvon/todo-assistant/internal/reports"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/insights"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// KindNothingToAnalyze marks a report whose period held no tasks
	KindNothingToAnalyze = "NothingToAnalyze"
	// KindStorage marks a report that failed while loading tasks
	KindStorage = "StorageError"
)

// TaskLister loads an owner's tasks falling in a period
type TaskLister interface {
	ListInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*models.Task, error)
}

// Summarizer produces a summary report from tasks
type Summarizer interface {
	Summarize(ctx context.Context, tasks []models.Task, period models.Period, now time.Time) (*models.SummaryReport, error)
}

// SummaryWorker processes summary report jobs
type SummaryWorker struct {
	tasks      TaskLister
	summarizer Summarizer
	store      reports.Store
	logger     *zap.Logger
	now        func() time.Time
}

// NewSummaryWorker creates a new summary worker
func NewSummaryWorker(tasks TaskLister, summarizer Summarizer, store reports.Store, logger *zap.Logger) *SummaryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryWorker{
		tasks:      tasks,
		summarizer: summarizer,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessJob runs one job and settles its message. The message is acked once
// the outcome is stored; when the outcome cannot be stored it is dead-lettered.
func (w *SummaryWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeSummaryReport {
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			w.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := w.runSummary(ctx, job); err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("summary job %s failed: %w", job.ID, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// runSummary computes the report and stores either the result or the failure.
// The returned error means nothing could be stored.
func (w *SummaryWorker) runSummary(ctx context.Context, job *queue.Job) error {
	logger := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("report_id", job.ReportID.String()),
		zap.String("user_id", job.UserID.String()),
	)

	if !job.Period.Valid() {
		return w.fail(ctx, logger, job, string(ai.KindInvalidInput), "Period must be one of: today, week.")
	}

	now := w.now().In(job.Location())
	from, to := job.Period.Bounds(now)

	loaded, err := w.tasks.ListInRange(ctx, job.UserID, from, to)
	if err != nil {
		logger.Error("failed_to_load_tasks", zap.Error(err))
		return w.fail(ctx, logger, job, KindStorage, database.UserMessage(err))
	}

	tasks := make([]models.Task, 0, len(loaded))
	for _, t := range loaded {
		tasks = append(tasks, *t)
	}

	start := time.Now()
	report, err := w.summarizer.Summarize(ctx, tasks, job.Period, now)
	if errors.Is(err, insights.ErrNothingToAnalyze) {
		return w.fail(ctx, logger, job, KindNothingToAnalyze, err.Error())
	}
	if err != nil {
		classified := ai.Classify(err)
		logger.Warn("summary_failed",
			zap.String("kind", string(classified.Kind)),
			zap.Error(err),
		)
		return w.fail(ctx, logger, job, string(classified.Kind), classified.Message)
	}

	if err := w.store.Complete(ctx, job.UserID, job.ReportID, report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	logger.Info("summary_report_completed",
		zap.String("period", string(job.Period)),
		zap.Int("task_count", len(tasks)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (w *SummaryWorker) fail(ctx context.Context, logger *zap.Logger, job *queue.Job, kind, message string) error {
	if err := w.store.Fail(ctx, job.UserID, job.ReportID, kind, message); err != nil {
		return fmt.Errorf("failed to store report failure: %w", err)
	}
	logger.Info("summary_report_failed", zap.String("kind", kind))
	return nil
}
