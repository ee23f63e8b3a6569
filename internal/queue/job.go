package queue

import (
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSummaryReport computes a productivity report for one user and period
	JobTypeSummaryReport JobType = "summary_report"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID     `json:"id"`
	Type       JobType       `json:"type"`
	UserID     uuid.UUID     `json:"user_id"`
	ReportID   uuid.UUID     `json:"report_id"`
	Period     models.Period `json:"period"`
	Timezone   string        `json:"timezone"`             // IANA zone the period is computed in
	NotAfter   *time.Time    `json:"not_after,omitempty"` // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time     `json:"created_at"`
	RetryCount int           `json:"retry_count"`
	MaxRetries int           `json:"max_retries"`
}

// NewSummaryReportJob creates a report job. Completion calls are not retried,
// so MaxRetries is zero; a job that outlives ttl is dropped unprocessed.
func NewSummaryReportJob(userID, reportID uuid.UUID, period models.Period, timezone string, ttl time.Duration) *Job {
	now := time.Now()
	job := &Job{
		ID:         uuid.New(),
		Type:       JobTypeSummaryReport,
		UserID:     userID,
		ReportID:   reportID,
		Period:     period,
		Timezone:   timezone,
		CreatedAt:  now,
		RetryCount: 0,
		MaxRetries: 0,
	}
	if ttl > 0 {
		notAfter := now.Add(ttl)
		job.NotAfter = &notAfter
	}
	return job
}

// Location resolves the job's timezone, falling back to UTC
func (j *Job) Location() *time.Location {
	if j.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
