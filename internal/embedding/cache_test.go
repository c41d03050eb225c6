package embedding

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (c *countingEmbedder) Model() string { return "fake" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachedEmbedder_OnlyForwardsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewMemoryCache(time.Minute))

	first, err := e.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	second, err := e.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, []float32{3, 1}, second[1])
}

func TestCachedEmbedder_PropagatesErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	e := NewCachedEmbedder(inner, NewMemoryCache(time.Minute))

	_, err := EmbedOne(context.Background(), e, "x")
	require.Error(t, err)

	inner.err = nil
	vec, err := EmbedOne(context.Background(), e, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, vec)
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "text"), cacheKey("b", "text"))
	assert.Equal(t, cacheKey("a", "text"), cacheKey("a", "text"))
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewRedisCache(url, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := cacheKey("test", t.Name())
	c.Set(ctx, key, []float32{0.5, 0.25})

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 0.25}, got)
}
