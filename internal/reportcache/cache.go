// Package reportcache is the short-lived cache in front of the reporting
// endpoints (receivables, expenses, productivity, draw lists).  Reports may
// be a few seconds stale; seat data never goes through here.  Every write
// that can change a report invalidates its scope explicitly.
package reportcache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/labstack/gommon/log"
)

// Report scopes.  A key is prefix:scope:owner:hash, so a whole scope can be
// dropped at once and one operator's entries are never served to another.
const (
	ScopeReceivables  = "receivables"
	ScopeExpenses     = "expenses"
	ScopeProductivity = "productivity"
	ScopeDraws        = "draws"
	ScopeGallery      = "gallery"
	ScopeLotteries    = "lotteries"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the raw byte store behind the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache stores decoded report values as JSON.
type Cache struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// New returns a cache over store.  A non-positive ttl disables caching:
// Fetch always loads and nothing is stored.
func New(store Store, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "reports"
	}
	return &Cache{store: store, prefix: prefix, ttl: ttl}
}

// Key builds a stable key for scope, owner and query parameters.  owner is
// the credential the report was fetched with.  url.Values encodes sorted by
// key, so parameter order never splits the cache.
func (c *Cache) Key(scope, owner string, params url.Values) string {
	sum := sha1.Sum([]byte(params.Encode()))
	if owner == "" {
		owner = "-"
	}
	return fmt.Sprintf("%s:%s:%s:%x", c.prefix, scope, owner, sum[:])
}

// Fetch fills dst from the cache, or calls load, stores its result and
// copies it into dst.  dst must be a pointer.  Store failures are logged
// and treated as misses; the report is still served.
func (c *Cache) Fetch(ctx context.Context, key string, dst any, load func(ctx context.Context) (any, error)) error {
	if c.ttl > 0 {
		raw, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			if jerr := json.Unmarshal(raw, dst); jerr == nil {
				return nil
			}
			log.Warnf("reportcache: dropping undecodable entry %s", key)
		case !errors.Is(err, ErrMiss):
			log.Warnf("reportcache: get %s: %v", key, err)
		}
	}

	val, err := load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if c.ttl > 0 {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			log.Warnf("reportcache: set %s: %v", key, err)
		}
	}
	return json.Unmarshal(raw, dst)
}

// Invalidate drops every entry of the given scopes.
func (c *Cache) Invalidate(ctx context.Context, scopes ...string) error {
	var errs []error
	for _, s := range scopes {
		if err := c.store.DeletePrefix(ctx, c.prefix+":"+s+":"); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
