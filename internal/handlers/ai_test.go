package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/insights"
	"github.com/benvon/todo-assistant/internal/services/normalize"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNormalizer struct {
	ref   time.Time
	draft *models.TaskDraft
	err   error
}

func (s *stubNormalizer) Normalize(_ context.Context, _ string, ref time.Time) (*models.TaskDraft, error) {
	s.ref = ref
	return s.draft, s.err
}

type stubSummarizer struct {
	tasks  []models.Task
	called bool
}

// Summarize applies the summarizer input rules without calling a completer
func (s *stubSummarizer) Summarize(_ context.Context, tasks []models.Task, period models.Period, now time.Time) (*models.SummaryReport, error) {
	s.called = true
	s.tasks = tasks
	if !period.Valid() {
		return nil, ai.InvalidInput("Period must be one of: today, week.")
	}
	if len(tasks) == 0 {
		return nil, insights.ErrNothingToAnalyze
	}
	return &models.SummaryReport{Period: period, Stats: insights.ComputeStats(tasks, period, now), Summary: &models.Summary{Summary: "ok"}}, nil
}

type stubEnqueuer struct {
	jobs []*queue.Job
	err  error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, job *queue.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type memReports struct {
	owners map[uuid.UUID]uuid.UUID
	jobs   map[uuid.UUID]*models.ReportJob
}

func newMemReports() *memReports {
	return &memReports{owners: map[uuid.UUID]uuid.UUID{}, jobs: map[uuid.UUID]*models.ReportJob{}}
}

func (m *memReports) Create(_ context.Context, ownerID uuid.UUID, job *models.ReportJob) error {
	job.Status = models.ReportPending
	m.owners[job.ID] = ownerID
	m.jobs[job.ID] = job
	return nil
}

func (m *memReports) Complete(_ context.Context, _, id uuid.UUID, report *models.SummaryReport) error {
	m.jobs[id].Status = models.ReportDone
	m.jobs[id].Report = report
	return nil
}

func (m *memReports) Fail(_ context.Context, _, id uuid.UUID, kind, message string) error {
	m.jobs[id].Status = models.ReportFailed
	m.jobs[id].ErrorKind = kind
	m.jobs[id].Error = message
	return nil
}

func (m *memReports) Get(_ context.Context, ownerID, id uuid.UUID) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok || m.owners[id] != ownerID {
		return nil, database.ErrNotFound
	}
	return job, nil
}

func newAIRouter(h *AIHandler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router.PathPrefix("/api/v1/ai").Subrouter())
	return router
}

func TestAIHandler_Parse(t *testing.T) {
	t.Parallel()

	normalizer := &stubNormalizer{draft: &models.TaskDraft{
		Title: "팀 회의 준비", DueDate: "2025-06-02", DueTime: "10:00",
		Priority: models.PriorityMedium, Category: []string{"work"},
	}}
	router := newAIRouter(NewAIHandler(normalizer, &stubSummarizer{}, newMemTasks(), nil, nil, Options{}))

	req := newTestRequest(http.MethodPost, "/api/v1/ai/parse", map[string]string{"text": "내일 오전 10시에 팀 회의 준비"})
	req.Header.Set("X-Timezone", "Asia/Seoul")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(req, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Asia/Seoul", normalizer.ref.Location().String())
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "2025-06-02", data["due_date"])
}

func TestAIHandler_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		normalizer Normalizer
		body       any
		wantStatus int
		wantDetail string
	}{
		{"invalid input", &stubNormalizer{err: ai.InvalidInput("Please enter between 2 and 500 characters.")}, map[string]string{"text": "x"}, http.StatusBadRequest, ""},
		{"auth", &stubNormalizer{err: &ai.Error{Kind: ai.KindServiceAuth, Message: "rejected"}}, map[string]string{"text": "x"}, http.StatusBadGateway, ""},
		{"rate limited", &stubNormalizer{err: &ai.Error{Kind: ai.KindRateLimited, Message: "busy"}}, map[string]string{"text": "x"}, http.StatusTooManyRequests, ""},
		{"unavailable", &stubNormalizer{err: context.DeadlineExceeded}, map[string]string{"text": "x"}, http.StatusServiceUnavailable, ""},
		{"other", &stubNormalizer{err: errors.New("boom")}, map[string]string{"text": "x"}, http.StatusBadGateway, ""},
		{"number text", normalize.New(nil, nil), map[string]any{"text": 42}, http.StatusBadRequest, "must be text"},
		{"array text", normalize.New(nil, nil), map[string]any{"text": []string{"buy", "milk"}}, http.StatusBadRequest, "must be text"},
		{"missing text", normalize.New(nil, nil), map[string]any{}, http.StatusBadRequest, "enter a task description"},
		{"text over the input limit", normalize.New(nil, nil), map[string]string{"text": strings.Repeat("a", 4001)}, http.StatusBadRequest, "at most 500 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newAIRouter(NewAIHandler(tt.normalizer, &stubSummarizer{}, newMemTasks(), nil, nil, Options{}))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/parse", tt.body), uuid.New()))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Contains(t, rec.Body.String(), tt.wantDetail)
			}
		})
	}
}

func TestAIHandler_Summary(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	store := newMemTasks()
	require.NoError(t, store.Create(context.Background(), owner, &models.Task{Title: "mine", Priority: models.PriorityHigh}))
	require.NoError(t, store.Create(context.Background(), uuid.New(), &models.Task{Title: "theirs", Priority: models.PriorityLow}))

	summarizer := &stubSummarizer{}
	router := newAIRouter(NewAIHandler(&stubNormalizer{}, summarizer, store, nil, nil, Options{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/summary", map[string]string{"period": "today"}), owner))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, summarizer.tasks, 1)
	assert.Equal(t, "mine", summarizer.tasks[0].Title)
}

func TestAIHandler_SummaryNothingToAnalyze(t *testing.T) {
	t.Parallel()

	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), nil, nil, Options{}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/summary", map[string]string{"period": "today"}), uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["data"])
	assert.Equal(t, insights.ErrNothingToAnalyze.Error(), body["message"])
}

func TestAIHandler_SummaryInvalidPeriod(t *testing.T) {
	t.Parallel()

	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), nil, nil, Options{}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/summary", map[string]string{"period": "tomorrow"}), uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(ai.KindInvalidInput), decodeBody(t, rec)["error"])
}

func TestAIHandler_SummaryJobs(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	jobs := &stubEnqueuer{}
	reports := newMemReports()
	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), jobs, reports, Options{}))

	req := newTestRequest(http.MethodPost, "/api/v1/ai/summary/jobs", map[string]string{"period": "week"})
	req.Header.Set("X-Timezone", "Europe/Berlin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(req, owner))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, jobs.jobs, 1)
	job := jobs.jobs[0]
	assert.Equal(t, owner, job.UserID)
	assert.Equal(t, models.PeriodWeek, job.Period)
	assert.Equal(t, "Europe/Berlin", job.Timezone)

	// owner sees the pending report
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/ai/summary/jobs/"+job.ReportID.String(), nil), owner))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, string(models.ReportPending), data["status"])

	// anyone else gets 404
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/ai/summary/jobs/"+job.ReportID.String(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAIHandler_SummaryJobsEnqueueFailure(t *testing.T) {
	t.Parallel()

	reports := newMemReports()
	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), &stubEnqueuer{err: errors.New("channel closed")}, reports, Options{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/summary/jobs", map[string]string{"period": "today"}), uuid.New()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Len(t, reports.jobs, 1)
	for _, job := range reports.jobs {
		assert.Equal(t, models.ReportFailed, job.Status)
	}
}

func TestAIHandler_SummaryJobsDisabled(t *testing.T) {
	t.Parallel()

	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), nil, nil, Options{}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(newTestRequest(http.MethodPost, "/api/v1/ai/summary/jobs", map[string]string{"period": "today"}), uuid.New()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAIHandler_GetSummaryJobExpired(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	reports := newMemReports()
	stale := &models.ReportJob{ID: uuid.New(), Period: models.PeriodToday}
	require.NoError(t, reports.Create(context.Background(), owner, stale))
	stale.CreatedAt = time.Now().Add(-time.Hour)

	router := newAIRouter(NewAIHandler(&stubNormalizer{}, &stubSummarizer{}, newMemTasks(), &stubEnqueuer{}, reports, Options{}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/ai/summary/jobs/"+stale.ID.String(), nil), owner))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, string(models.ReportFailed), data["status"])
	assert.Equal(t, models.ReportFailed, reports.jobs[stale.ID].Status)
	assert.Equal(t, string(ai.KindUnavailable), reports.jobs[stale.ID].ErrorKind)
}
