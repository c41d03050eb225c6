package store

import (
	"context"
	"fmt"
	"os"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
)

// DeriveEnumerations reads the distinct composite values of every
// multi-value facet from the stored corpus.
func (s *SQLiteStore) DeriveEnumerations(ctx context.Context, version string) (filter.Enumerations, error) {
	e := filter.Enumerations{Version: version, Fields: map[string][]string{}}
	for _, field := range []string{course.FieldSemester, course.FieldLanguages, course.FieldLevels} {
		values, err := s.DistinctValues(ctx, field)
		if err != nil {
			return filter.Enumerations{}, err
		}
		e.Fields[field] = values
	}
	return e, nil
}

func WriteEnumerations(path string, e filter.Enumerations) error {
	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal facets: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write facets file: %w", err)
	}
	return nil
}
