package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
)

type stubEmbedder struct{ err error }

func (s stubEmbedder) Model() string { return "stub" }

func (s stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubBackend struct {
	hits  []Hit
	err   error
	calls []Query
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Query(_ context.Context, q Query) ([]Hit, error) {
	s.calls = append(s.calls, q)
	return s.hits, s.err
}

func hit(code string, distance float64) Hit {
	return Hit{Metadata: map[string]string{course.FieldCode: code, course.FieldTitleEN: "Course " + code}, Distance: distance}
}

func TestClient_SearchMapsSimilarity(t *testing.T) {
	backend := &stubBackend{hits: []Hit{
		hit("A", 0.1), hit("B", 0.2), hit("C", 0.3), hit("D", 0.4), hit("E", 0.5),
	}}
	c := NewClient(stubEmbedder{}, backend, TopKBounds{}, zap.NewNop())

	records, err := c.Search(context.Background(), "I want to learn machine learning", nil, 5)
	require.NoError(t, err)
	require.Len(t, records, 5)

	wantSim := []float64{0.9, 0.8, 0.7, 0.6, 0.5}
	for i, r := range records {
		assert.Equal(t, string(rune('A'+i)), r.Code)
		assert.InDelta(t, wantSim[i], r.Similarity, 1e-9)
	}
	assert.Nil(t, backend.calls[0].Filter)
	assert.Equal(t, []float32{1, 0}, backend.calls[0].Vector)
}

func TestClient_SearchPassesFilterAndClampsTopK(t *testing.T) {
	backend := &stubBackend{}
	c := NewClient(stubEmbedder{}, backend, TopKBounds{Min: 3, Max: 10, Default: 5}, zap.NewNop())
	expr := filter.Eq(course.FieldSemester, "spring")

	_, err := c.Search(context.Background(), "q", &expr, 50)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q", nil, 0)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q", nil, 1)
	require.NoError(t, err)

	assert.Equal(t, &expr, backend.calls[0].Filter)
	assert.Equal(t, 10, backend.calls[0].TopK)
	assert.Equal(t, 5, backend.calls[1].TopK)
	assert.Equal(t, 3, backend.calls[2].TopK)
}

func TestClient_EmptyHitsIsNotAnError(t *testing.T) {
	c := NewClient(stubEmbedder{}, &stubBackend{}, TopKBounds{}, zap.NewNop())

	records, err := c.Search(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestClient_WrapsFailures(t *testing.T) {
	cause := errors.New("connection refused")

	c := NewClient(stubEmbedder{}, &stubBackend{err: cause}, TopKBounds{}, zap.NewNop())
	_, err := c.Search(context.Background(), "q", nil, 5)
	var rerr *RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "query", rerr.Stage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query stub: connection refused", err.Error())

	c = NewClient(stubEmbedder{err: cause}, &stubBackend{}, TopKBounds{}, zap.NewNop())
	_, err = c.Search(context.Background(), "q", nil, 5)
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "embed", rerr.Stage)
}

func TestClient_KeepsBackendOrder(t *testing.T) {
	backend := &stubBackend{hits: []Hit{hit("first", 0.3), hit("second", 0.3), hit("third", 0.2)}}
	c := NewClient(stubEmbedder{}, backend, TopKBounds{}, zap.NewNop())

	records, err := c.Search(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Code)
	assert.Equal(t, "second", records[1].Code)
	assert.Equal(t, "third", records[2].Code)
}
