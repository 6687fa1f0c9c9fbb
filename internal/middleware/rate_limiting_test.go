package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myazlifresh/foundersite/internal/middleware"
	"github.com/myazlifresh/foundersite/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/stretchr/testify/assert"
)

type fakeRateLimiter struct {
	allowed int
}

func (f *fakeRateLimiter) Allow(_ context.Context, _ string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{
		Allowed:    f.allowed,
		RetryAfter: 30 * time.Second,
	}, nil
}

func TestRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed", func(t *testing.T) {
		handler := middleware.RateLimit(
			&fakeRateLimiter{allowed: 1}, "login", 5, metrics.NewTestManager(),
		)(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("limited", func(t *testing.T) {
		handler := middleware.RateLimit(
			&fakeRateLimiter{allowed: 0}, "login", 5, metrics.NewTestManager(),
		)(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "retry after")
	})
}
