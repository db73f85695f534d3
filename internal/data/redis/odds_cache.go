package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oddsly-wagering-ledger/internal/domain/event"
	"github.com/oddsly-wagering-ledger/internal/platform/metrics"
)

// OddsCache is a cache-aside event catalog. PostgreSQL stays the source of
// truth; a Redis outage only costs the extra read.
type OddsCache struct {
	client  *redis.Client
	events  event.Repository
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewOddsCache creates a catalog that caches events read from events
func NewOddsCache(logger *slog.Logger, client *redis.Client, events event.Repository, ttl time.Duration, m *metrics.Metrics) *OddsCache {
	return &OddsCache{
		client:  client,
		events:  events,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

var _ event.Catalog = (*OddsCache)(nil)

func keyEvent(eventID uuid.UUID) string { return "odds:event:" + eventID.String() }

// GetEvent returns the event from Redis, falling back to the repository on a
// miss or a cache failure
func (c *OddsCache) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	b, err := c.client.Get(ctx, keyEvent(id)).Bytes()
	switch {
	case err == nil:
		var ev event.Event
		if err := json.Unmarshal(b, &ev); err == nil {
			c.metrics.IncOddsCache("hit")
			return &ev, nil
		}
		c.logger.Warn("Discarding undecodable cached event", "event_id", id.String())
	case errors.Is(err, redis.Nil):
		c.metrics.IncOddsCache("miss")
	default:
		c.metrics.IncOddsCache("error")
		c.logger.Warn("Odds cache read failed", "event_id", id.String(), "error", err)
	}

	ev, err := c.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, ev)
	return ev, nil
}

// Invalidate drops the cached copy so the next read reloads it
func (c *OddsCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, keyEvent(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached event %s: %w", id, err)
	}
	return nil
}

func (c *OddsCache) store(ctx context.Context, ev *event.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("Failed to encode event for cache", "event_id", ev.ID.String(), "error", err)
		return
	}
	if err := c.client.Set(ctx, keyEvent(ev.ID), b, c.ttl).Err(); err != nil {
		c.logger.Warn("Odds cache write failed", "event_id", ev.ID.String(), "error", err)
	}
}
