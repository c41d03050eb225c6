package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger.Named("store")}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS courses (
        id TEXT PRIMARY KEY, -- UUID
        code TEXT NOT NULL,
        semester TEXT NOT NULL DEFAULT '',
        study_languages_en TEXT NOT NULL DEFAULT '',
        study_levels_en TEXT NOT NULL DEFAULT '',
        eap TEXT NOT NULL DEFAULT '',
        metadata_json TEXT NOT NULL,
        document TEXT NOT NULL,
        embedding_json TEXT, -- Storing as JSON string of []float32
        model TEXT NOT NULL,
        indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_courses_code ON courses (code);
    `
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceCourses drops every stored course and inserts docs in one
// transaction, so re-runs of ingest are idempotent.
func (s *SQLiteStore) ReplaceCourses(ctx context.Context, docs []CourseDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
		return fmt.Errorf("failed to clear courses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO courses (id, code, semester, study_languages_en, study_levels_en, eap,
                             metadata_json, document, embedding_json, model, indexed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare course insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range docs {
		doc := &docs[i]
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		doc.IndexedAt = now

		metaBytes, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.Code, err)
		}
		embeddingBytes, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for %s: %w", doc.Code, err)
		}
		doc.EmbeddingJSON = string(embeddingBytes)

		args := []any{doc.ID, doc.Code}
		for _, col := range facetColumns {
			args = append(args, doc.Metadata[col])
		}
		args = append(args, string(metaBytes), doc.Document, doc.EmbeddingJSON, doc.Model, doc.IndexedAt)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert course %s: %w", doc.Code, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetAllCourses(ctx context.Context) ([]CourseDocument, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, code, metadata_json, document, embedding_json, model, indexed_at FROM courses ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var docs []CourseDocument
	for rows.Next() {
		var doc CourseDocument
		var metaJSON string
		var embeddingJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Code, &metaJSON, &doc.Document, &embeddingJSON, &doc.Model, &doc.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for course %s: %w", doc.Code, err)
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			doc.EmbeddingJSON = embeddingJSON.String
			if err := json.Unmarshal([]byte(embeddingJSON.String), &doc.Embedding); err != nil {
				s.logger.Warn("failed to unmarshal embedding, course will not be searchable",
					zap.String("code", doc.Code), zap.Error(err))
				doc.Embedding = nil
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) CountCourses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

// DistinctValues returns the non-empty stored values of a facet column, sorted.
func (s *SQLiteStore) DistinctValues(ctx context.Context, field string) ([]string, error) {
	known := false
	for _, col := range facetColumns {
		if col == field {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("field %q is not a facet column", field)
	}

	// field is one of facetColumns, never user input
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %[1]s FROM courses WHERE %[1]s != '' ORDER BY %[1]s", field))
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", field, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
