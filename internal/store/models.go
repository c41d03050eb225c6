package store

import (
	"time"

	"ut.ee/course-advisor/internal/course"
)

// CourseDocument is one indexed course: display/filter metadata, the text
// that was embedded, and its vector.
type CourseDocument struct {
	ID            string            `json:"id"` // UUID
	Code          string            `json:"code"`
	Metadata      map[string]string `json:"metadata"`
	Document      string            `json:"document"`
	Embedding     []float32         `json:"-"`
	EmbeddingJSON string            `json:"-"` // Store as JSON string for DB
	Model         string            `json:"model"`
	IndexedAt     time.Time         `json:"indexed_at"`
}

// facetColumns are denormalized out of the metadata so enumerations can be
// derived with plain SELECT DISTINCT.
var facetColumns = []string{
	course.FieldSemester,
	course.FieldLanguages,
	course.FieldLevels,
	course.FieldCredits,
}
