package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/embedding"
)

const DefaultIngestBatch = 64

// metadataFields are copied from each source row into stored metadata.
var metadataFields = []string{
	course.FieldCode,
	course.FieldTitleEN,
	course.FieldTitleET,
	course.FieldCredits,
	course.FieldSemester,
	course.FieldCity,
	course.FieldLanguages,
	course.FieldLevels,
	course.FieldAssessmentScale,
	course.FieldDescriptionEN,
	course.FieldDescriptionET,
	"target_language",
	"course_type",
	"is_continuous_learning",
}

type IngestOptions struct {
	BatchSize int
	Limiter   *rate.Limiter // one token per embedding request; nil means unlimited
	// MaxFailureRatio is the share of rows that may fail to embed before the
	// ingest is aborted. Zero tolerates any loss short of every row.
	MaxFailureRatio float64
}

// IngestCoursesFromFile reads a JSON Lines course export, embeds each row's
// rag_text and replaces the stored corpus. Rows whose batch fails to embed are
// skipped and logged. When nothing embeds, or more than MaxFailureRatio of the
// rows drop out, the stored corpus is left untouched and an error is returned.
func (s *SQLiteStore) IngestCoursesFromFile(ctx context.Context, filePath string, embedder embedding.Embedder, opts IngestOptions) (int, error) {
	docs, err := readCourseRows(filePath)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		s.logger.Warn("no courses found in data file", zap.String("path", filePath))
		return 0, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultIngestBatch
	}

	s.logger.Info("embedding courses", zap.Int("courses", len(docs)), zap.String("model", embedder.Model()))

	embedded := make([]CourseDocument, 0, len(docs))
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batch := docs[start:end]

		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return 0, fmt.Errorf("ingest interrupted: %w", err)
			}
		}

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Document
		}
		vecs, err := embedder.Embed(ctx, texts)
		if err != nil {
			s.logger.Warn("failed to embed batch, skipping",
				zap.Int("from", start), zap.Int("to", end), zap.Error(err))
			continue
		}
		for i := range batch {
			batch[i].Embedding = vecs[i]
			batch[i].Model = embedder.Model()
			embedded = append(embedded, batch[i])
		}
		s.logger.Info("embedded courses", zap.Int("done", end), zap.Int("total", len(docs)))
	}

	failed := len(docs) - len(embedded)
	if len(embedded) == 0 {
		return 0, fmt.Errorf("no courses could be embedded (%d rows failed), keeping the existing corpus", failed)
	}
	if opts.MaxFailureRatio > 0 && float64(failed)/float64(len(docs)) > opts.MaxFailureRatio {
		return 0, fmt.Errorf("%d of %d courses failed to embed, above the %.0f%% limit; keeping the existing corpus",
			failed, len(docs), opts.MaxFailureRatio*100)
	}

	if err := s.ReplaceCourses(ctx, embedded); err != nil {
		return 0, err
	}
	s.logger.Info("ingest complete", zap.Int("stored", len(embedded)))
	return len(embedded), nil
}

func readCourseRows(filePath string) ([]CourseDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", filePath, err)
	}
	defer f.Close()

	var docs []CourseDocument
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		meta := make(map[string]string, len(metadataFields))
		for _, field := range metadataFields {
			meta[field] = safeString(row[field])
		}
		if meta[course.FieldCode] == "" {
			return nil, fmt.Errorf("line %d: missing course code", line)
		}
		docs = append(docs, CourseDocument{
			Code:     meta[course.FieldCode],
			Metadata: meta,
			Document: safeString(row["rag_text"]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan data file: %w", err)
	}
	return docs, nil
}

// safeString renders a JSON scalar as text, mapping nulls and NA markers to "".
func safeString(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	switch s {
	case "nan", "NaN", "None":
		return ""
	}
	return s
}
