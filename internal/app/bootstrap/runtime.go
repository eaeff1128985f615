package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatlens/cadence/internal/analysis"
	appconfig "github.com/chatlens/cadence/internal/config"
	"github.com/chatlens/cadence/internal/latency"
	"github.com/chatlens/cadence/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildMetricsCache wires the Redis-backed metrics cache, or nil when Redis
// is not configured.
func BuildMetricsCache(redisClient *redis.Client, ttl time.Duration) *analysis.Cache {
	if redisClient == nil {
		return nil
	}
	return analysis.NewCache(redisClient, ttl, nil)
}

// BuildEngineOptions maps service configuration onto engine options. Zero
// values fall through to the engine defaults.
func BuildEngineOptions(cfg *appconfig.Config, logger *logging.Logger) latency.Options {
	opts := latency.DefaultOptions()
	if cfg == nil {
		return opts
	}
	if logger == nil {
		logger = logging.Default()
	}

	if tz := strings.TrimSpace(cfg.AnalysisTimezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			logger.Warn("invalid analysis timezone, using UTC", "tz", tz, "error", err)
		} else {
			opts.Location = loc
		}
	}
	if cfg.EWRTHalfLife > 0 {
		opts.EWRTHalfLife = cfg.EWRTHalfLife
	}
	if cfg.TrendThreshold > 0 {
		opts.TrendThreshold = cfg.TrendThreshold
	}
	if cfg.AnomalyFactor > 0 {
		opts.AnomalyFactor = cfg.AnomalyFactor
	}
	return opts
}
