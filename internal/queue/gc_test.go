package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu         sync.Mutex
	calls      int
	retentions []time.Duration
	counts     []int
	err        error
	called     chan struct{}
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, retention time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.retentions = append(f.retentions, retention)
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	if len(f.counts) == 0 {
		return 0, nil
	}
	n := f.counts[0]
	f.counts = f.counts[1:]
	return n, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		purger  *fakePurger
		want    int
		wantErr bool
	}{
		{name: "purges", purger: &fakePurger{counts: []int{3}}, want: 3},
		{name: "nothing to purge", purger: &fakePurger{}, want: 0},
		{name: "broker error", purger: &fakePurger{err: errors.New("channel closed")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gc := NewGarbageCollector(tt.purger, time.Minute, 6*time.Hour, nil)
			n, err := gc.Collect(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, []time.Duration{6 * time.Hour}, tt.purger.retentions)
		})
	}
}

func TestGarbageCollector_NilPurger(t *testing.T) {
	t.Parallel()

	n, err := NewGarbageCollector(nil, time.Minute, time.Hour, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGarbageCollector_DefaultRetention(t *testing.T) {
	t.Parallel()

	p := &fakePurger{}
	_, err := NewGarbageCollector(p, time.Minute, 0, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultDLQRetention}, p.retentions)
}

func TestGarbageCollector_PurgedAccumulates(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(&fakePurger{counts: []int{2, 0, 5}}, time.Minute, time.Hour, nil)
	for range 3 {
		_, err := gc.Collect(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(7), gc.Purged())
}

func TestGarbageCollector_StartPurgesImmediately(t *testing.T) {
	t.Parallel()

	p := &fakePurger{called: make(chan struct{}, 1)}
	gc := NewGarbageCollector(p, 24*time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	select {
	case <-p.called:
	case <-time.After(2 * time.Second):
		t.Fatal("first purge did not run on start")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestGarbageCollector_StartCancelled(t *testing.T) {
	t.Parallel()

	p := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewGarbageCollector(p, time.Hour, time.Hour, nil).Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}
