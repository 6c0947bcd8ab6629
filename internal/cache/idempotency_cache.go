package cache

import (
	"context"
	"time"

	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultIdempotencyTTL = 24 * time.Hour
	// MaxIdempotencyKeyLength bounds memory per entry; longer keys are ignored
	MaxIdempotencyKeyLength = 255
)

type idempotencyEntry struct {
	done chan struct{}
	resp *models.BookAppointmentResponse
}

// IdempotencyCache remembers successful booking responses by client key so a
// resubmitted form returns the original appointment instead of a new one.
// Concurrent submissions with the same key wait for the first to finish.
type IdempotencyCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewIdempotencyCache creates a cache whose entries expire after ttl
func NewIdempotencyCache(ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyCache{
		cache: gocache.New(ttl, time.Hour),
		ttl:   ttl,
	}
}

// Do runs fn once per key. A later call with the same key gets the stored
// response and replayed=true. Failed attempts are forgotten so the client can
// retry. An empty or oversized key bypasses the cache.
func (c *IdempotencyCache) Do(
	ctx context.Context,
	key string,
	fn func() (*models.BookAppointmentResponse, error),
) (resp *models.BookAppointmentResponse, replayed bool, err error) {
	if key == "" || len(key) > MaxIdempotencyKeyLength {
		resp, err = fn()
		return resp, false, err
	}

	for {
		entry := &idempotencyEntry{done: make(chan struct{})}
		if addErr := c.cache.Add(key, entry, c.ttl); addErr == nil {
			return c.lead(key, entry, fn)
		}

		existing, found := c.cache.Get(key)
		if !found {
			// Expired or deleted between Add and Get
			continue
		}
		prev, ok := existing.(*idempotencyEntry)
		if !ok {
			logger.Error("Invalid idempotency cache data type", zap.String("key", key))
			c.cache.Delete(key)
			continue
		}

		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}

		if prev.resp != nil {
			metrics.IdempotentReplays.Inc()
			logger.Info("Replaying idempotent booking response",
				zap.String("appointment_id", prev.resp.AppointmentID))
			return prev.resp, true, nil
		}
		// The first attempt failed and was forgotten; try again
	}
}

func (c *IdempotencyCache) lead(
	key string,
	entry *idempotencyEntry,
	fn func() (*models.BookAppointmentResponse, error),
) (*models.BookAppointmentResponse, bool, error) {
	defer close(entry.done)

	resp, err := fn()
	if err != nil || resp == nil || !resp.Success {
		c.cache.Delete(key)
		return resp, false, err
	}

	entry.resp = resp
	return resp, false, nil
}

// ItemCount returns the number of remembered keys
func (c *IdempotencyCache) ItemCount() int {
	return c.cache.ItemCount()
}
