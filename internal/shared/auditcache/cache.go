// Package auditcache memoises derived audit results by the hash of their
// inputs. Entries carry a TTL and expired entries are evicted lazily on read,
// so a stale result is never served.
package auditcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
)

var ErrInvalidEntry = errors.New("audit cache entry is invalid")

type Entry struct {
	ServiceID  string
	InputHash  string
	Result     []byte
	Confidence float64
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type Store interface {
	Get(ctx context.Context, serviceID string, inputHash string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, serviceID string, inputHash string) error
}

type LookupObserver interface {
	ObserveCacheLookup(service string, hit bool)
}

type Cache struct {
	store     Store
	serviceID string
	now       func() time.Time
	observer  LookupObserver
	logger    *slog.Logger
}

type Options struct {
	Now      func() time.Time
	Observer LookupObserver
	Logger   *slog.Logger
}

func New(store Store, serviceID string, opts Options) *Cache {
	c := &Cache{
		store:     store,
		serviceID: strings.TrimSpace(serviceID),
		now:       opts.Now,
		observer:  opts.Observer,
		logger:    opts.Logger,
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CheckCache decodes a live entry for inputHash into out. An expired entry is
// deleted and reported as a miss.
func (c *Cache) CheckCache(ctx context.Context, inputHash string, out any) (bool, float64, error) {
	entry, found, err := c.store.Get(ctx, c.serviceID, inputHash)
	if err != nil {
		return false, 0, err
	}
	if found && !entry.ExpiresAt.After(c.now()) {
		if err := c.store.Delete(ctx, c.serviceID, inputHash); err != nil {
			c.logger.Warn("audit cache eviction failed",
				"event", "audit_cache_evict_failed",
				"module", "internal/shared/auditcache",
				"layer", "platform",
				"service_id", c.serviceID,
				"input_hash", inputHash,
				"error", err.Error(),
			)
		}
		found = false
	}
	if !found {
		c.observe(false)
		return false, 0, nil
	}
	if err := json.Unmarshal(entry.Result, out); err != nil {
		return false, 0, err
	}
	c.observe(true)
	return true, entry.Confidence, nil
}

// SetCache stores result under inputHash. Concurrent writers for the same hash
// are last-write-wins.
func (c *Cache) SetCache(ctx context.Context, inputHash string, result any, confidence float64, ttl time.Duration) error {
	if strings.TrimSpace(inputHash) == "" || ttl <= 0 {
		return ErrInvalidEntry
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	now := c.now()
	return c.store.Put(ctx, Entry{
		ServiceID:  c.serviceID,
		InputHash:  inputHash,
		Result:     payload,
		Confidence: confidence,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	})
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(c.serviceID, hit)
	}
}

// Backend is the method set Remember needs. *Cache satisfies it.
type Backend interface {
	CheckCache(ctx context.Context, inputHash string, out any) (bool, float64, error)
	SetCache(ctx context.Context, inputHash string, result any, confidence float64, ttl time.Duration) error
}

// Remember returns the cached value for inputHash or computes and stores it.
// Cache failures degrade to computing; they are logged, never returned. The
// boolean reports a cache hit.
func Remember[T any](
	ctx context.Context,
	backend Backend,
	inputHash string,
	ttl time.Duration,
	logger *slog.Logger,
	compute func() (T, float64, error),
) (T, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cached T
	if backend != nil {
		hit, _, err := backend.CheckCache(ctx, inputHash, &cached)
		if err != nil {
			logger.Warn("audit cache lookup failed",
				"event", "audit_cache_lookup_failed",
				"module", "internal/shared/auditcache",
				"layer", "platform",
				"input_hash", inputHash,
				"error", err.Error(),
			)
		} else if hit {
			return cached, true, nil
		}
	}

	value, confidence, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}
	if backend != nil {
		if err := backend.SetCache(ctx, inputHash, value, confidence, ttl); err != nil {
			logger.Warn("audit cache store failed",
				"event", "audit_cache_store_failed",
				"module", "internal/shared/auditcache",
				"layer", "platform",
				"input_hash", inputHash,
				"error", err.Error(),
			)
		}
	}
	return value, false, nil
}
