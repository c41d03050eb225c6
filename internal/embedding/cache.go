package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores vectors by content key. Misses and backend failures both
// report ok == false.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	if x, found := m.c.Get(key); found {
		return x.([]float32), true
	}
	return nil, false
}

func (m *MemoryCache) Set(_ context.Context, key string, vec []float32) {
	m.c.Set(key, vec, cache.DefaultExpiration)
}

// RedisCache shares vectors between advisor replicas.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("failed to parse redis URL, using it as address", zap.Error(err))
		opt = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := r.rdb.Get(ctx, "emb:"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, "emb:"+key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("embedding cache write failed", zap.Error(err))
	}
}

func (r *RedisCache) Close() error { return r.rdb.Close() }

// CachedEmbedder only forwards texts it has not seen for the same model.
type CachedEmbedder struct {
	next  Embedder
	cache Cache
}

func NewCachedEmbedder(next Embedder, c Cache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c}
}

func (e *CachedEmbedder) Model() string { return e.next.Model() }

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, t := range texts {
		if vec, ok := e.cache.Get(ctx, cacheKey(e.next.Model(), t)); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := e.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		e.cache.Set(ctx, cacheKey(e.next.Model(), missing[j]), vec)
	}
	return out, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
