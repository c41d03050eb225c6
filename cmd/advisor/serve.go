package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/api"
	"ut.ee/course-advisor/internal/auth"
	"ut.ee/course-advisor/internal/config"
	"ut.ee/course-advisor/internal/session"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.AppConfig
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	apiHandler := api.NewAPIHandler(api.Options{
		Advisor:       a.advisor,
		Sessions:      session.NewStore(cfg.SessionTTL),
		Issuer:        issuer,
		Compiler:      a.compiler,
		Costs:         a.costs,
		TopK:          a.topK,
		DefaultAPIKey: cfg.CompletionAPIKey,
		// Up to four UTF-8 bytes per allowed rune, plus room for the facet fields.
		MaxBodyBytes: int64(cfg.MaxQueryLength)*4 + 4<<10,
		Logger:       log.Named("api"),
	})
	router := api.NewRouter(apiHandler, a.registry)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Turns stream for as long as the model keeps talking.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
	case <-quit:
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited gracefully")
	return nil
}
