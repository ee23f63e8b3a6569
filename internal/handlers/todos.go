package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/normalize"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	responder
	tasks database.TaskRepositoryInterface
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, opts Options) *TaskHandler {
	return &TaskHandler{responder: newResponder(opts), tasks: tasks}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTask).Methods("POST")
}

const (
	// MaxTitleLength is the maximum length for task titles. It admits a
	// normalized draft whose title was truncated with an ellipsis.
	MaxTitleLength = normalize.MaxRepairedTitleLength
	// MaxDescriptionLength is the maximum length for task descriptions
	MaxDescriptionLength = normalize.MaxRepairedDescriptionLength
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 100
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 500
	// DefaultDueTime applies when a due date is given without a time
	DefaultDueTime = "09:00"

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CreateTaskRequest represents a create task request. The due moment is
// either DueAt or DueDate with an optional DueTime, read in the caller's zone.
type CreateTaskRequest struct {
	Title       string          `json:"title" validate:"required,max=1000"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueAt       *time.Time      `json:"due_at,omitempty"`
	DueDate     *string         `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueTime     *string         `json:"due_time,omitempty" validate:"omitempty,datetime=15:04"`
	Priority    models.Priority `json:"priority,omitempty" validate:"omitempty,priority"`
	Category    []string        `json:"category,omitempty" validate:"max=20,dive,max=50"`
}

// UpdateTaskRequest represents an update task request. Absent fields are left alone.
type UpdateTaskRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,max=1000"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	DueDate     *string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueTime     *string          `json:"due_time,omitempty" validate:"omitempty,datetime=15:04"`
	ClearDue    bool             `json:"clear_due,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty" validate:"omitempty,priority"`
	Category    []string         `json:"category,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Completed   *bool            `json:"completed,omitempty"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists the caller's tasks with filters, sorting and pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	filter, err := h.parseFilter(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	tasks, total, err := h.tasks.List(r.Context(), id.UserID, filter)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	// Calculate total pages
	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// parseFilter reads list query parameters into a filter
func (h *TaskHandler) parseFilter(r *http.Request) (models.TaskFilter, error) {
	q := r.URL.Query()
	loc := h.now(r).Location()
	filter := models.TaskFilter{Page: 1, PageSize: DefaultPageSize}

	// Parse pagination parameters
	if p := q.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			filter.Page = parsed
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			filter.PageSize = min(parsed, MaxPageSize)
		}
	}

	if c := q.Get("completed"); c != "" {
		completed, err := strconv.ParseBool(c)
		if err != nil {
			return filter, fmt.Errorf("invalid completed: %s (must be true or false)", c)
		}
		filter.Completed = &completed
	}

	if p := q.Get("priority"); p != "" {
		if err := validation.ValidatePriority(p); err != nil {
			return filter, err
		}
		priority := models.Priority(p)
		filter.Priority = &priority
	}

	if c := q.Get("category"); c != "" {
		category := validation.SanitizeText(c)
		filter.Category = &category
	}

	if p := q.Get("period"); p != "" {
		if err := validation.ValidatePeriod(p); err != nil {
			return filter, err
		}
		from, to := models.Period(p).Bounds(h.now(r))
		filter.DueFrom, filter.DueTo = &from, &to
		filter.IncludeUndatedCreated = true
	}

	if v := q.Get("due_from"); v != "" {
		from, err := parseBound(v, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid due_from: %s", v)
		}
		filter.DueFrom = &from
	}
	if v := q.Get("due_to"); v != "" {
		to, err := parseBound(v, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid due_to: %s", v)
		}
		filter.DueTo = &to
	}

	if s := q.Get("sort"); s != "" {
		switch sort := models.TaskSort(s); sort {
		case models.TaskSortDueAt, models.TaskSortCreatedAt, models.TaskSortPriority:
			filter.Sort = sort
		default:
			return filter, fmt.Errorf("invalid sort: %s (must be 'due_at', 'created_at', or 'priority')", s)
		}
	}
	switch o := strings.ToLower(q.Get("order")); o {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return filter, fmt.Errorf("invalid order: %s (must be 'asc' or 'desc')", o)
	}

	return filter, nil
}

// parseBound accepts RFC3339 or a bare date at midnight in loc
func parseBound(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, v, loc)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	title, ok := sanitizeTitle(w, req.Title)
	if !ok {
		return
	}
	description, ok := sanitizeDescription(w, req.Description)
	if !ok {
		return
	}
	dueAt, err := resolveDue(req.DueAt, req.DueDate, req.DueTime, h.now(r).Location())
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		DueAt:       dueAt,
		Priority:    req.Priority,
		Category:    validation.SanitizeCategories(req.Category),
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	if err := h.tasks.Create(r.Context(), id.UserID, task); err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id.UserID, taskID)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, id.UserID, taskID)
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	// Update fields if provided with validation
	if req.Title != nil {
		title, ok := sanitizeTitle(w, *req.Title)
		if !ok {
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		description, ok := sanitizeDescription(w, req.Description)
		if !ok {
			return
		}
		task.Description = description
	}
	switch {
	case req.ClearDue:
		task.DueAt = nil
	case req.DueAt != nil || req.DueDate != nil || req.DueTime != nil:
		dueAt, err := resolveDue(req.DueAt, req.DueDate, req.DueTime, h.now(r).Location())
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.DueAt = dueAt
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		task.Category = validation.SanitizeCategories(req.Category)
	}
	if req.Completed != nil && *req.Completed != task.Completed {
		task.SetCompleted(*req.Completed, time.Now())
	}

	if err := h.tasks.Update(ctx, id.UserID, task); err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), id.UserID, taskID); err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask flips the completion flag of a task
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id := h.identity(w, r)
	if id == nil {
		return
	}
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.ToggleCompletion(r.Context(), id.UserID, taskID, time.Now())
	if err != nil {
		h.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

func sanitizeTitle(w http.ResponseWriter, raw string) (string, bool) {
	title := validation.SanitizeText(raw)
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return "", false
	}
	if n := len([]rune(title)); n > MaxTitleLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
		return "", false
	}
	return title, true
}

func sanitizeDescription(w http.ResponseWriter, raw *string) (*string, bool) {
	if raw == nil {
		return nil, true
	}
	description := validation.SanitizeText(*raw)
	if description == "" {
		return nil, true
	}
	if len([]rune(description)) > MaxDescriptionLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxDescriptionLength))
		return nil, false
	}
	return &description, true
}

// resolveDue combines the accepted due representations. DueAt wins; a date
// without a time is due at DefaultDueTime in loc.
func resolveDue(dueAt *time.Time, dueDate, dueTime *string, loc *time.Location) (*time.Time, error) {
	if dueAt != nil {
		t := *dueAt
		return &t, nil
	}
	if dueDate == nil {
		if dueTime != nil {
			return nil, fmt.Errorf("due_time requires due_date")
		}
		return nil, nil
	}

	clock := DefaultDueTime
	if dueTime != nil && *dueTime != "" {
		clock = *dueTime
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, *dueDate+" "+clock, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid due date or time")
	}
	return &t, nil
}
