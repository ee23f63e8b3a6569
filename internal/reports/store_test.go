package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = string(value.([]byte))
	if expiration != redis.KeepTTL {
		f.ttls[key] = expiration
	}
	return redis.NewStatusResult("OK", nil)
}

func newTestStore(t *testing.T) (*RedisStore, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	store := NewRedisStore(kv, 0)
	store.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return store, kv
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	store, kv := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	job := &models.ReportJob{ID: uuid.New(), Period: models.PeriodToday}

	require.NoError(t, store.Create(ctx, owner, job))
	assert.Equal(t, DefaultTTL, kv.ttls[key(job.ID)])

	got, err := store.Get(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, got.Status)
	assert.Equal(t, models.PeriodToday, got.Period)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRedisStore_GetOtherOwner(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()
	job := &models.ReportJob{ID: uuid.New(), Period: models.PeriodWeek}
	require.NoError(t, store.Create(ctx, uuid.New(), job))

	_, err := store.Get(ctx, uuid.New(), job.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRedisStore_GetMissing(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRedisStore_Complete(t *testing.T) {
	t.Parallel()
	store, kv := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	job := &models.ReportJob{ID: uuid.New(), Period: models.PeriodWeek}
	require.NoError(t, store.Create(ctx, owner, job))

	report := &models.SummaryReport{
		Period:  models.PeriodWeek,
		Summary: &models.Summary{Summary: "Solid week."},
	}
	require.NoError(t, store.Complete(ctx, owner, job.ID, report))

	got, err := store.Get(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDone, got.Status)
	require.NotNil(t, got.Report)
	assert.Equal(t, "Solid week.", got.Report.Summary.Summary)
	// the update keeps the original expiry
	assert.Equal(t, DefaultTTL, kv.ttls[key(job.ID)])
}

func TestRedisStore_Fail(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	job := &models.ReportJob{ID: uuid.New(), Period: models.PeriodToday}
	require.NoError(t, store.Create(ctx, owner, job))

	require.NoError(t, store.Fail(ctx, owner, job.ID, "ServiceRateLimited", "Too many requests."))

	got, err := store.Get(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, got.Status)
	assert.Equal(t, "ServiceRateLimited", got.ErrorKind)
	assert.Nil(t, got.Report)
}

func TestRedisStore_UpdateWrongOwner(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()
	job := &models.ReportJob{ID: uuid.New(), Period: models.PeriodToday}
	require.NoError(t, store.Create(ctx, uuid.New(), job))

	err := store.Fail(ctx, uuid.New(), job.ID, "ServiceError", "boom")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRedisStore_ReadError(t *testing.T) {
	t.Parallel()
	store, kv := newTestStore(t)
	kv.getErr = errors.New("connection refused")

	_, err := store.Get(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrNotFound)
}
