package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ut.ee/course-advisor/internal/config"
	"ut.ee/course-advisor/internal/store"
)

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.AppConfig
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	facetsOut, _ := cmd.Flags().GetString("facets-out")
	batch, _ := cmd.Flags().GetInt("batch")
	maxFailure, _ := cmd.Flags().GetFloat64("max-failure-ratio")

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		defer c.Close()
	}

	db, err := store.NewSQLiteStore(cfg.DatabaseURL, log.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	opts := store.IngestOptions{BatchSize: batch, MaxFailureRatio: maxFailure}
	if cfg.IngestRatePerSec > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.IngestRatePerSec), 1)
	}

	log.Info("starting course ingestion", zap.String("file", file), zap.String("db", cfg.DatabaseURL))
	n, err := db.IngestCoursesFromFile(ctx, file, embedder, opts)
	if err != nil {
		return fmt.Errorf("course ingestion failed: %w", err)
	}
	log.Info("course ingestion complete", zap.Int("courses", n))

	if facetsOut == "" {
		return nil
	}
	version := fmt.Sprintf("%s@%s", filepath.Base(file), time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	enums, err := db.DeriveEnumerations(ctx, version)
	if err != nil {
		return err
	}
	if err := store.WriteEnumerations(facetsOut, enums); err != nil {
		return err
	}
	log.Info("facet enumerations written", zap.String("path", facetsOut), zap.String("version", version))
	return nil
}
