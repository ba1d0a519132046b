package embedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/embedcache"
)

type countingEmbedder struct {
	batches [][]string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func TestLRUEmbedderOnlyMissesGoUpstream(t *testing.T) {
	inner := &countingEmbedder{}
	cached := embedcache.WrapLRUCacheToEmbedder(inner, 128, time.Minute)

	first, err := cached.Embed(context.Background(), []string{"aa", "bbb"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, inner.batches, 1)

	// second call mixes one hit and one miss; only the miss goes upstream,
	// in a single batch
	second, err := cached.Embed(context.Background(), []string{"aa", "cccc"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"cccc"}, inner.batches[1])
	assert.Equal(t, first[0], second[0])

	// full-hit batch never calls upstream
	_, err = cached.Embed(context.Background(), []string{"bbb", "aa"})
	require.NoError(t, err)
	assert.Len(t, inner.batches, 2)
}

func TestWrapDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Equal(t, inner, embedcache.WrapLRUCacheToEmbedder(inner, 0, time.Minute))
	assert.Equal(t, inner, embedcache.WrapLRUCacheToEmbedder(inner, 10, 0))
}
