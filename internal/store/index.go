package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/retrieval"
	"ut.ee/course-advisor/internal/utils"
)

// CourseIndex is an in-memory cosine index over the stored courses. It
// evaluates filters locally, so any filter.Expression is supported.
type CourseIndex struct {
	mu     sync.RWMutex
	docs   []CourseDocument
	logger *zap.Logger
}

func NewCourseIndex(docs []CourseDocument, logger *zap.Logger) *CourseIndex {
	idx := &CourseIndex{logger: logger.Named("index")}
	idx.Replace(docs)
	return idx
}

// LoadCourseIndex builds an index from everything in the store.
func LoadCourseIndex(ctx context.Context, s *SQLiteStore, logger *zap.Logger) (*CourseIndex, error) {
	docs, err := s.GetAllCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load courses for index: %w", err)
	}
	idx := NewCourseIndex(docs, logger)
	if len(docs) == 0 {
		idx.logger.Warn("course index is empty, run ingest first")
	} else {
		idx.logger.Info("course index loaded", zap.Int("courses", len(docs)))
	}
	return idx, nil
}

func (i *CourseIndex) Replace(docs []CourseDocument) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = docs
}

func (i *CourseIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

func (i *CourseIndex) Name() string { return "sqlite" }

type scoredDoc struct {
	doc      *CourseDocument
	distance float64
}

// Query returns up to q.TopK filtered courses by ascending cosine distance.
// Ties keep storage order.
func (i *CourseIndex) Query(ctx context.Context, q retrieval.Query) ([]retrieval.Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	scored := make([]scoredDoc, 0, len(i.docs))
	for n := range i.docs {
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		doc := &i.docs[n]
		if len(doc.Embedding) == 0 {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(doc.Metadata) {
			continue
		}
		d, err := utils.CosineDistance(q.Vector, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("course %s: %w", doc.Code, err)
		}
		scored = append(scored, scoredDoc{doc: doc, distance: d})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].distance < scored[b].distance
	})
	if q.TopK > 0 && len(scored) > q.TopK {
		scored = scored[:q.TopK]
	}

	hits := make([]retrieval.Hit, len(scored))
	for n, s := range scored {
		hits[n] = retrieval.Hit{Metadata: s.doc.Metadata, Distance: s.distance, Document: s.doc.Document}
	}
	return hits, nil
}
