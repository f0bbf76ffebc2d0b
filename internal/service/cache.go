package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cacheBackend 缓存读写，未命中返回 redis.Nil
type cacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisBackend struct {
	rdb *redis.Client
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return b.rdb.Get(ctx, key).Bytes()
}

func (b redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b redisBackend) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// FootprintCache 产品碳足迹汇总缓存。未配置 redis 时所有操作为空操作
type FootprintCache struct {
	backend cacheBackend
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
}

// NewFootprintCache 创建缓存
func NewFootprintCache(rdb *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger) *FootprintCache {
	var backend cacheBackend
	if rdb != nil {
		backend = redisBackend{rdb: rdb}
	}
	return newFootprintCache(backend, ttl, prefix, logger)
}

func newFootprintCache(backend cacheBackend, ttl time.Duration, prefix string, logger *zap.Logger) *FootprintCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FootprintCache{backend: backend, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *FootprintCache) enabled() bool {
	return c != nil && c.backend != nil && c.ttl > 0
}

// Key 缓存键
func (c *FootprintCache) Key(productID string) string {
	return c.prefix + "footprint:" + productID
}

// Get 读取缓存
func (c *FootprintCache) Get(ctx context.Context, productID string) (*Footprint, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.backend.Get(ctx, c.Key(productID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Footprint cache read failed", zap.String("product_id", productID), zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var fp Footprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		c.logger.Warn("Footprint cache entry corrupt", zap.String("product_id", productID), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &fp, true
}

// Set 写入缓存
func (c *FootprintCache) Set(ctx context.Context, fp *Footprint) {
	if !c.enabled() || fp == nil {
		return
	}
	raw, err := json.Marshal(fp)
	if err != nil {
		c.logger.Warn("Footprint cache encode failed", zap.String("product_id", fp.ProductID), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, c.Key(fp.ProductID), raw, c.ttl); err != nil {
		c.logger.Warn("Footprint cache write failed", zap.String("product_id", fp.ProductID), zap.Error(err))
	}
}

// Invalidate 删除缓存
func (c *FootprintCache) Invalidate(ctx context.Context, productID string) {
	if !c.enabled() {
		return
	}
	if err := c.backend.Del(ctx, c.Key(productID)); err != nil {
		c.logger.Warn("Footprint cache invalidate failed", zap.String("product_id", productID), zap.Error(err))
	}
}
