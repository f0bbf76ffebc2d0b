package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend 内存缓存后端，行为与 redis 一致：未命中返回 redis.Nil
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *memBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *memBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

// flakyProducts 可按需让汇总写回失败
type flakyProducts struct {
	ProductStore
	failUpdates bool
}

func (f *flakyProducts) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if f.failUpdates {
		return errors.New("connection reset")
	}
	return f.ProductStore.UpdateFields(ctx, id, fields)
}

type cachedEnv struct {
	*testEnv
	backend  *memBackend
	cache    *FootprintCache
	products *flakyProducts
}

func setupCachedService(t *testing.T) *cachedEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	hub := sse.NewHub(nil)
	backend := newMemBackend()
	cache := newFootprintCache(backend, time.Minute, "test:", nil)
	products := &flakyProducts{ProductStore: repos.Product}

	pcf := NewPCFService(products, repos.Component, repos.ChangeLog, repos.Scenario, cache, nil, hub, nil)
	pcf.now = func() time.Time { return fixedNow }
	svc := &Services{
		Product:   NewProductService(products, pcf, nil),
		Component: NewComponentService(repos.Component, products, pcf, nil),
		PCF:       pcf,
	}
	return &cachedEnv{
		testEnv:  &testEnv{db: db, repos: repos, svc: svc, hub: hub},
		backend:  backend,
		cache:    cache,
		products: products,
	}
}

func TestFootprintCacheServesCachedTotals(t *testing.T) {
	env := setupCachedService(t)
	ctx := context.Background()
	productID, ids := seedSample(t, env.testEnv)

	require.True(t, env.backend.has(env.cache.Key(productID)), "recompute should populate the cache")

	// 绕过服务直接改库，缓存命中时仍返回旧值
	require.NoError(t, env.db.Exec("UPDATE pcf_components SET quantity = 20, co2e_kg = 10 WHERE id = ?", ids[0]).Error)
	fp, err := env.svc.PCF.GetFootprint(ctx, productID)
	require.NoError(t, err)
	assert.InDelta(t, 11.2, fp.Aggregation.GrandTotal, 1e-9)

	env.svc.PCF.Invalidate(ctx, productID)
	fp, err = env.svc.PCF.GetFootprint(ctx, productID)
	require.NoError(t, err)
	assert.InDelta(t, 16.2, fp.Aggregation.GrandTotal, 1e-9)
}

func TestFootprintCacheDroppedWhenRecomputeFails(t *testing.T) {
	env := setupCachedService(t)
	ctx := context.Background()
	productID, _ := seedSample(t, env.testEnv)

	fp, err := env.svc.PCF.GetFootprint(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.Aggregation.MissingCount)

	env.products.failUpdates = true
	_, err = env.svc.Component.Create(ctx, productID, "u1", &ComponentRequest{
		Name: "Aluminium", Quantity: 2, EmissionFactor: carbon.Float(8), LifecycleStage: "raw_material_acquisition",
	})
	require.NoError(t, err, "the component write itself committed")
	assert.False(t, env.backend.has(env.cache.Key(productID)))

	fp, err = env.svc.PCF.GetFootprint(ctx, productID)
	require.NoError(t, err)
	assert.InDelta(t, 11.2+16, fp.Aggregation.GrandTotal, 1e-9)
	assert.Equal(t, 4, fp.Aggregation.ComponentCount)
}

func TestFootprintCacheCorruptEntryIsMiss(t *testing.T) {
	env := setupCachedService(t)
	ctx := context.Background()
	productID, _ := seedSample(t, env.testEnv)

	require.NoError(t, env.backend.Set(ctx, env.cache.Key(productID), []byte("{not json"), time.Minute))
	_, ok := env.cache.Get(ctx, productID)
	assert.False(t, ok)

	fp, err := env.svc.PCF.GetFootprint(ctx, productID)
	require.NoError(t, err)
	assert.InDelta(t, 11.2, fp.Aggregation.GrandTotal, 1e-9)
}
