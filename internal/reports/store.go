// Package reports keeps asynchronous summary reports in Redis until they expire.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a report stays readable after it is created
const DefaultTTL = 24 * time.Hour

const keyPrefix = "summary:report:"

// Store persists report jobs per owner
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, job *models.ReportJob) error
	Complete(ctx context.Context, ownerID, id uuid.UUID, report *models.SummaryReport) error
	Fail(ctx context.Context, ownerID, id uuid.UUID, kind, message string) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.ReportJob, error)
}

// KeyValue is the subset of redis.Cmdable the store uses
type KeyValue interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// record is the stored form; the owner never leaves the store
type record struct {
	OwnerID uuid.UUID        `json:"owner_id"`
	Job     models.ReportJob `json:"job"`
}

// RedisStore implements Store on Redis strings holding JSON records
type RedisStore struct {
	client KeyValue
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store. A non-positive ttl means DefaultTTL.
func NewRedisStore(client KeyValue, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// Create stores a new pending job
func (s *RedisStore) Create(ctx context.Context, ownerID uuid.UUID, job *models.ReportJob) error {
	now := s.now()
	job.Status = models.ReportPending
	job.CreatedAt = now
	job.UpdatedAt = now
	return s.put(ctx, &record{OwnerID: ownerID, Job: *job}, s.ttl)
}

// Complete marks the job done with its report
func (s *RedisStore) Complete(ctx context.Context, ownerID, id uuid.UUID, report *models.SummaryReport) error {
	return s.update(ctx, ownerID, id, func(job *models.ReportJob) {
		job.Status = models.ReportDone
		job.Report = report
		job.ErrorKind = ""
		job.Error = ""
	})
}

// Fail marks the job failed with a classified reason
func (s *RedisStore) Fail(ctx context.Context, ownerID, id uuid.UUID, kind, message string) error {
	return s.update(ctx, ownerID, id, func(job *models.ReportJob) {
		job.Status = models.ReportFailed
		job.Report = nil
		job.ErrorKind = kind
		job.Error = message
	})
}

// Get returns the job when it exists and belongs to ownerID.
// A job owned by someone else is reported as database.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.ReportJob, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, database.ErrNotFound
	}
	return &rec.Job, nil
}

func (s *RedisStore) update(ctx context.Context, ownerID, id uuid.UUID, apply func(job *models.ReportJob)) error {
	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return database.ErrNotFound
	}
	apply(&rec.Job)
	rec.Job.UpdatedAt = s.now()
	return s.put(ctx, rec, redis.KeepTTL)
}

func (s *RedisStore) load(ctx context.Context, id uuid.UUID) (*record, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) put(ctx context.Context, rec *record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := s.client.Set(ctx, key(rec.Job.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

var _ Store = (*RedisStore)(nil)
