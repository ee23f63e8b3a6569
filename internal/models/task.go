package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency bucket of a task
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the buckets in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the three known buckets.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank orders priorities for sorting: high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Category labels the normalizer assigns. Stored categories are free text;
// these are only the ones derived from natural-language input.
const (
	CategoryWork     = "work"
	CategoryPersonal = "personal"
	CategoryHealth   = "health"
	CategoryStudy    = "study"
)

// Task represents a single to-do item owned by one user
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Priority    Priority   `json:"priority"`
	Category    []string   `json:"category"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SetCompleted flips the completion flag and keeps CompletedAt in step with it.
func (t *Task) SetCompleted(completed bool, at time.Time) {
	t.Completed = completed
	if completed {
		ts := at
		t.CompletedAt = &ts
		return
	}
	t.CompletedAt = nil
}

// TaskSort is a whitelisted ORDER BY column for task listings
type TaskSort string

const (
	TaskSortDueAt     TaskSort = "due_at"
	TaskSortCreatedAt TaskSort = "created_at"
	TaskSortPriority  TaskSort = "priority"
)

// TaskFilter narrows a task listing. Nil fields are not applied.
type TaskFilter struct {
	Completed *bool
	Priority  *Priority
	Category  *string
	// DueFrom/DueTo bound due_at as [DueFrom, DueTo). When IncludeUndatedCreated
	// is set, tasks without due_at whose created_at falls in the same range match too.
	DueFrom               *time.Time
	DueTo                 *time.Time
	IncludeUndatedCreated bool
	Sort                  TaskSort
	Descending            bool
	Page                  int
	PageSize              int
}
