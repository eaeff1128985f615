package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultCacheTTL = 24 * time.Hour

// ErrCacheMiss indicates no cached metrics document for the conversation.
var ErrCacheMiss = fmt.Errorf("analysis: metrics not cached")

// Cache keeps the latest metrics document per conversation in Redis so the
// read path does not hit Postgres for hot conversations.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewCache wraps the provided Redis client. A zero ttl falls back to 24h.
func NewCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Cache {
	if client == nil {
		panic("analysis: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("cadence.internal.analysis.cache")
	}
	return &Cache{redis: client, ttl: ttl, tracer: tracer}
}

// Save stores the metrics document under the conversation key.
func (c *Cache) Save(ctx context.Context, doc *MetricsDocument) error {
	ctx, span := c.tracer.Start(ctx, "analysis.cache_save")
	defer span.End()

	data, err := json.Marshal(doc)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("analysis: failed to marshal metrics document: %w", err)
	}
	if err := c.redis.Set(ctx, metricsKey(doc.ConversationID), data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("analysis: failed to cache metrics: %w", err)
	}
	return nil
}

// Load returns the cached document or ErrCacheMiss.
func (c *Cache) Load(ctx context.Context, conversationID string) (*MetricsDocument, error) {
	ctx, span := c.tracer.Start(ctx, "analysis.cache_load")
	defer span.End()

	data, err := c.redis.Get(ctx, metricsKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		span.RecordError(err)
		return nil, fmt.Errorf("analysis: failed to load cached metrics: %w", err)
	}

	var doc MetricsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analysis: failed to decode cached metrics: %w", err)
	}
	return &doc, nil
}

// Invalidate drops the cached document, e.g. after a purge.
func (c *Cache) Invalidate(ctx context.Context, conversationID string) error {
	ctx, span := c.tracer.Start(ctx, "analysis.cache_invalidate")
	defer span.End()

	if err := c.redis.Del(ctx, metricsKey(conversationID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("analysis: failed to invalidate cached metrics: %w", err)
	}
	return nil
}

func metricsKey(conversationID string) string {
	return fmt.Sprintf("metrics:%s", conversationID)
}
