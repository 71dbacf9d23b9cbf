package embedding

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached memoizes query embeddings. Repeated questions in a chat session hit
// the cache instead of the model.
type Cached struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

// NewCached wraps next with an LRU of size entries. ttl <= 0 keeps entries
// until evicted by size.
func NewCached(next Embedder, size int, ttl time.Duration) *Cached {
	if ttl < 0 {
		ttl = 0
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

// Embed returns the cached vector for text or computes and stores it.
// Errors are not cached.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// EmbedBatch bypasses the cache.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedBatch(ctx, texts)
}

func (c *Cached) Model() string  { return c.next.Model() }
func (c *Cached) Dimension() int { return c.next.Dimension() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}
