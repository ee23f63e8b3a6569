package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/benvon/todo-assistant/internal/reports"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/insights"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultReportJobTTL bounds how long a queued summary job may wait
const DefaultReportJobTTL = 10 * time.Minute

// reportStaleAfter is when a still pending report is given up on; its job has
// expired on the queue by then.
const reportStaleAfter = DefaultReportJobTTL + time.Minute

const expiredJobMessage = "Summary job expired before it was processed"

// Normalizer turns a sentence into a task draft
type Normalizer interface {
	Normalize(ctx context.Context, text string, ref time.Time) (*models.TaskDraft, error)
}

// Summarizer narrates a productivity summary over tasks
type Summarizer interface {
	Summarize(ctx context.Context, tasks []models.Task, period models.Period, now time.Time) (*models.SummaryReport, error)
}

// TaskRangeLister loads the caller's tasks for a period
type TaskRangeLister interface {
	ListInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*models.Task, error)
}

// JobEnqueuer publishes background jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// AIHandler serves the natural-language parse and summary endpoints
type AIHandler struct {
	responder
	normalizer Normalizer
	summarizer Summarizer
	tasks      TaskRangeLister
	jobs       JobEnqueuer
	reports    reports.Store
}

// NewAIHandler creates a new AI handler. jobs and store may be nil, in which
// case the asynchronous summary endpoints answer 503.
func NewAIHandler(normalizer Normalizer, summarizer Summarizer, tasks TaskRangeLister, jobs JobEnqueuer, store reports.Store, opts Options) *AIHandler {
	return &AIHandler{
		responder:  newResponder(opts),
		normalizer: normalizer,
		summarizer: summarizer,
		tasks:      tasks,
		jobs:       jobs,
		reports:    store,
	}
}

// RegisterRoutes registers AI routes on the given router
// The router should already have the /ai prefix
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/parse", h.Parse).Methods("POST")
	r.HandleFunc("/summary", h.Summary).Methods("POST")
	r.HandleFunc("/summary/jobs", h.CreateSummaryJob).Methods("POST")
	r.HandleFunc("/summary/jobs/{id}", h.GetSummaryJob).Methods("GET")
}

// ParseRequest carries the sentence to normalize. Text is kept raw so a
// non-string value is reported like any other rejected input; length is
// checked by the normalizer.
type ParseRequest struct {
	Text json.RawMessage `json:"text"`
}

// text returns the sentence, treating an absent or null value as empty
func (p ParseRequest) text() (string, error) {
	if len(p.Text) == 0 || string(p.Text) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(p.Text, &s); err != nil {
		return "", ai.InvalidInput("The task description must be text.")
	}
	return s, nil
}

// SummaryRequest selects the summary period
type SummaryRequest struct {
	Period string `json:"period" validate:"required"`
}

// SummaryJobResponse is returned when a summary job is accepted
type SummaryJobResponse struct {
	ID     uuid.UUID           `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// Parse converts natural language into a task draft
func (h *AIHandler) Parse(w http.ResponseWriter, r *http.Request) {
	if id := h.identity(w, r); id == nil {
		return
	}

	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := req.text()
	if err != nil {
		h.respondAIError(w, r, err)
		return
	}

	draft, err := h.normalizer.Normalize(r.Context(), text, h.now(r))
	if err != nil {
		h.respondAIError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

// Summary loads the caller's tasks for the period and narrates them
func (h *AIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	var req SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period := models.Period(req.Period)

	now := h.now(r)
	var tasks []models.Task
	if period.Valid() {
		from, to := period.Bounds(now)
		loaded, err := h.tasks.ListInRange(r.Context(), id.UserID, from, to)
		if err != nil {
			h.respondStorageError(w, r, err)
			return
		}
		tasks = make([]models.Task, 0, len(loaded))
		for _, t := range loaded {
			tasks = append(tasks, *t)
		}
	} else {
		// the summarizer rejects the period itself
		tasks = []models.Task{}
	}

	report, err := h.summarizer.Summarize(r.Context(), tasks, period, now)
	if errors.Is(err, insights.ErrNothingToAnalyze) {
		respondJSONMessage(w, http.StatusOK, nil, err.Error())
		return
	}
	if err != nil {
		h.respondAIError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// CreateSummaryJob queues a summary for background processing
func (h *AIHandler) CreateSummaryJob(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	if h.jobs == nil || h.reports == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Background summaries are not enabled")
		return
	}

	var req SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period := models.Period(req.Period)
	if !period.Valid() {
		respondJSONError(w, http.StatusBadRequest, string(ai.KindInvalidInput), "Period must be one of: today, week.")
		return
	}

	ctx := r.Context()
	report := &models.ReportJob{ID: uuid.New(), Period: period}
	if err := h.reports.Create(ctx, id.UserID, report); err != nil {
		h.respondError(w, r, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue summary", err)
		return
	}

	job := queue.NewSummaryReportJob(id.UserID, report.ID, period, h.now(r).Location().String(), DefaultReportJobTTL)
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		if failErr := h.reports.Fail(ctx, id.UserID, report.ID, string(ai.KindUnavailable), "Failed to queue summary"); failErr != nil {
			h.logger.Warn("failed_to_mark_report_failed", zap.Error(failErr))
		}
		h.respondError(w, r, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue summary", err)
		return
	}

	h.logger.Info("summary_job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("report_id", report.ID.String()),
		zap.String("period", string(period)),
	)
	respondJSON(w, http.StatusAccepted, SummaryJobResponse{ID: report.ID, Status: report.Status})
}

// GetSummaryJob returns a queued summary owned by the caller
func (h *AIHandler) GetSummaryJob(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	if h.reports == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Background summaries are not enabled")
		return
	}

	reportID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid job ID")
		return
	}

	ctx := r.Context()
	report, err := h.reports.Get(ctx, id.UserID, reportID)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	if report.Status == models.ReportPending && !report.CreatedAt.IsZero() && time.Since(report.CreatedAt) > reportStaleAfter {
		if err := h.reports.Fail(ctx, id.UserID, report.ID, string(ai.KindUnavailable), expiredJobMessage); err != nil {
			h.logger.Warn("failed_to_mark_report_expired", zap.String("report_id", report.ID.String()), zap.Error(err))
		}
		report.Status = models.ReportFailed
		report.ErrorKind = string(ai.KindUnavailable)
		report.Error = expiredJobMessage
	}

	respondJSON(w, http.StatusOK, report)
}
