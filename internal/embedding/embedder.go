// Package embedding turns query and document text into unit-length vectors.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces one L2-normalized vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder %s returned no vector", e.Model())
	}
	return vecs[0], nil
}
