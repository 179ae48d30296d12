// Package cache guarda snapshots de mercados en Redis para que el modo follow
// no repita requests a la API en cada refresco.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/resolwatch/internal/domain"
)

const (
	keyPrefix  = "resolwatch:market:"
	defaultTTL = 30 * time.Second
)

// Config son los parámetros de conexión a Redis.
type Config struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	TTL        time.Duration // 0 = defaultTTL
}

// RedisMarketCache implementa ports.MarketCache con un string JSON por mercado.
//
//	resolwatch:market:{conditionID} → JSON de domain.Market (con TTL)
type RedisMarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisMarketCache conecta con Redis y verifica la conexión con un PING.
func NewRedisMarketCache(ctx context.Context, cfg Config) (*RedisMarketCache, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache.NewRedisMarketCache: ping %s: %w", cfg.Addr, err)
	}
	return newWithClient(rdb, cfg.TTL), nil
}

func newWithClient(rdb *redis.Client, ttl time.Duration) *RedisMarketCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisMarketCache{rdb: rdb, ttl: ttl}
}

func marketKey(conditionID string) string { return keyPrefix + conditionID }

// Get devuelve domain.ErrNotFound si el mercado no está o expiró.
func (c *RedisMarketCache) Get(ctx context.Context, conditionID string) (domain.Market, error) {
	data, err := c.rdb.Get(ctx, marketKey(conditionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("cache.Get %s: %w", conditionID, err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, fmt.Errorf("cache.Get %s: unmarshal: %w", conditionID, err)
	}
	return m, nil
}

// Set guarda el mercado con el TTL configurado.
func (c *RedisMarketCache) Set(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("cache.Set %s: marshal: %w", m.ConditionID, err)
	}
	if err := c.rdb.Set(ctx, marketKey(m.ConditionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Set %s: %w", m.ConditionID, err)
	}
	return nil
}

// Invalidate borra el snapshot del mercado.
func (c *RedisMarketCache) Invalidate(ctx context.Context, conditionID string) error {
	if err := c.rdb.Del(ctx, marketKey(conditionID)).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate %s: %w", conditionID, err)
	}
	return nil
}

// Close cierra la conexión.
func (c *RedisMarketCache) Close() error {
	return c.rdb.Close()
}
