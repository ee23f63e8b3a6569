package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

const defaultRatelimitRate = "5-S"

// RatelimitConfigStore reads and seeds the stored rate
type RatelimitConfigStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// RateLimitReloader wraps ulule/limiter and periodically reloads rate limit config from the database.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RatelimitConfigStore
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
	mu          sync.RWMutex
	current     *limiter.Limiter
}

// NewRateLimitReloader creates a rate limit middleware over store (Redis in
// production). It starts on defaultRate; Reload or Start picks up the stored rate.
func NewRateLimitReloader(store limiter.Store, repo RatelimitConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	r := &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
	if rate, err := limiter.NewRateFromFormatted(defaultRate); err == nil {
		r.current = limiter.New(store, rate)
	} else {
		log.Error("failed_to_parse_default_rate_limit", zap.Error(err), zap.String("default_rate", defaultRate))
	}
	return r
}

// Middleware returns a middleware that rate limits next with the current rate.
// It may be applied to several routers.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			instance := r.current
			r.mu.RUnlock()
			if instance == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw := stdlibmw.NewMiddleware(instance,
				stdlibmw.WithKeyGetter(request.ClientIP),
				stdlibmw.WithLimitReachedHandler(r.limitReached),
				stdlibmw.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
					// fail open
					r.log.Warn("rate_limiter_store_error", zap.Error(err))
					next.ServeHTTP(w, req)
				}),
			)
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start loads the stored rate, then reloads it every interval until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	r.Reload(ctx)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reload(ctx)
		}
	}
}

// Reload reads the stored rate, seeding the default when none is stored.
func (r *RateLimitReloader) Reload(ctx context.Context) {
	cfg, err := r.repo.Get(ctx)
	rateStr := r.defaultRate
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	} else if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	} else if err = r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("failed_to_save_default_ratelimit_config",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_keeping_current",
			zap.Error(err),
			zap.String("rate_str", rateStr),
		)
		return
	}

	instance := limiter.New(r.store, rate)
	r.mu.Lock()
	r.current = instance
	r.mu.Unlock()
}

// limitReached answers with the JSON envelope and a Retry-After derived from the window reset
func (r *RateLimitReloader) limitReached(w http.ResponseWriter, req *http.Request) {
	retryAfter := 1
	if reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if secs := reset - time.Now().Unix(); secs > 0 {
			retryAfter = int(secs)
		}
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	respondErrorJSON(w, req, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Please slow down.", r.log)
}
