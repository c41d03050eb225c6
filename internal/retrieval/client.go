// Package retrieval decides when to search and runs filtered nearest-neighbour
// queries against a vector backend.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/embedding"
	"ut.ee/course-advisor/internal/filter"
)

const (
	DefaultTopK = 5
	MinTopK     = 3
	MaxTopK     = 10
)

// Query is what a backend receives: a normalized vector plus an optional filter.
type Query struct {
	Text   string
	Vector []float32
	Filter *filter.Expression
	TopK   int
}

// Hit is one raw backend result.
type Hit struct {
	Metadata map[string]string
	Distance float64
	Document string
}

type Backend interface {
	Name() string
	Query(ctx context.Context, q Query) ([]Hit, error)
}

type TopKBounds struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// RetrievalError wraps any embedding or backend failure during a search.
type RetrievalError struct {
	Stage   string
	Backend string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Backend, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

type Client struct {
	embedder embedding.Embedder
	backend  Backend
	bounds   TopKBounds
	logger   *zap.Logger
}

func NewClient(embedder embedding.Embedder, backend Backend, bounds TopKBounds, logger *zap.Logger) *Client {
	if bounds.Min <= 0 {
		bounds.Min = MinTopK
	}
	if bounds.Max < bounds.Min {
		bounds.Max = MaxTopK
	}
	if bounds.Default < bounds.Min || bounds.Default > bounds.Max {
		bounds.Default = DefaultTopK
	}
	return &Client{embedder: embedder, backend: backend, bounds: bounds, logger: logger.Named("retrieval")}
}

func (c *Client) Bounds() TopKBounds { return c.bounds }

func (c *Client) BackendName() string { return c.backend.Name() }

// ClampTopK maps zero to the default and anything else into [Min, Max].
func (c *Client) ClampTopK(k int) int {
	if k == 0 {
		return c.bounds.Default
	}
	return min(max(k, c.bounds.Min), c.bounds.Max)
}

// Search embeds text, queries the backend and returns records in the order the
// backend ranked them. No hits is an empty slice, not an error.
func (c *Client) Search(ctx context.Context, text string, expr *filter.Expression, topK int) ([]course.Record, error) {
	start := time.Now()
	topK = c.ClampTopK(topK)

	vec, err := embedding.EmbedOne(ctx, c.embedder, text)
	if err != nil {
		return nil, &RetrievalError{Stage: "embed", Backend: c.embedder.Model(), Err: err}
	}

	hits, err := c.backend.Query(ctx, Query{Text: text, Vector: vec, Filter: expr, TopK: topK})
	if err != nil {
		return nil, &RetrievalError{Stage: "query", Backend: c.backend.Name(), Err: err}
	}

	records := make([]course.Record, 0, len(hits))
	for _, h := range hits {
		records = append(records, course.FromHit(h.Metadata, h.Distance, h.Document))
	}
	if len(records) > topK {
		records = records[:topK]
	}

	fields := []zap.Field{
		zap.String("backend", c.backend.Name()),
		zap.Int("top_k", topK),
		zap.Int("hits", len(records)),
		zap.Duration("took", time.Since(start)),
	}
	if expr != nil {
		fields = append(fields, zap.Stringer("filter", expr))
	}
	c.logger.Debug("search completed", fields...)
	return records, nil
}
