// Package reports serves the console's secondary views: cartera, gastos,
// productivity, draw administration and the gallery year list.  They are
// pass-throughs to the backend with lenient decoding and a short-lived
// cache; none of them touches the seat grid.
package reports

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/reportcache"
)

const (
	maxAttempts = 3
	retryStep   = 600 * time.Millisecond
)

// Conn is the operator-bound backend connection a report call goes through.
// Owner identifies the credential; cached reports are partitioned by it.
type Conn interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
	Put(ctx context.Context, path string, body any) (any, error)
	Owner() string
}

// Service runs report queries through the cache.
type Service struct {
	cache *reportcache.Cache
	now   func() time.Time
	step  time.Duration
}

// New returns a Service backed by cache.
func New(cache *reportcache.Cache) *Service {
	return &Service{cache: cache, now: time.Now, step: retryStep}
}

// Invalidate drops cached reports of the given scopes.
func (s *Service) Invalidate(ctx context.Context, scopes ...string) error {
	return s.cache.Invalidate(ctx, scopes...)
}

// invalidate is Invalidate after a committed mutation: failures are logged,
// the mutation already happened.
func (s *Service) invalidate(ctx context.Context, scopes ...string) {
	if err := s.cache.Invalidate(ctx, scopes...); err != nil {
		log.Warnf("reports: invalidating %v: %v", scopes, err)
	}
}

// cached runs load through the cache under scope, the caller's credential
// and params.
func (s *Service) cached(ctx context.Context, conn Conn, scope string, params url.Values, dst any, load func(ctx context.Context) (any, error)) error {
	return s.cache.Fetch(ctx, s.cache.Key(scope, conn.Owner(), params), dst, func(ctx context.Context) (any, error) {
		return s.retry(ctx, load)
	})
}

// retry calls fn up to maxAttempts times, waiting step×attempt between
// retriable failures.  Rejections and auth errors return at once.
func (s *Service) retry(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, backend.ErrUnauthorized) || !backend.IsRetriable(err) || attempt == maxAttempts {
			break
		}
		log.Debugf("reports: attempt %d failed, retrying: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.step * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}
