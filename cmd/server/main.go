package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sumire/jobtracker/internal/config"
	"github.com/sumire/jobtracker/internal/handler"
	"github.com/sumire/jobtracker/internal/notion"
	"github.com/sumire/jobtracker/internal/repository"
	"github.com/sumire/jobtracker/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx := context.Background()

	client, err := repository.NewClient(ctx, repository.ClientConfig{
		BaseURL: cfg.RecordStoreURL,
		Token:   cfg.RecordStoreToken,
		Timeout: cfg.RecordStoreTimeout,
	})
	if err != nil {
		return fmt.Errorf("record store client: %w", err)
	}

	markers, err := repository.OpenMarkerStore(ctx, cfg.SessionStoreURL, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer markers.Close()

	slog.Info("session store ready")

	var jobOpts []service.JobServiceOption
	if cfg.NotionEnabled() {
		mirror := notion.New(cfg.NotionToken, cfg.NotionDBID)
		if err := mirror.Ping(ctx); err != nil {
			slog.Warn("notion database unreachable, mirroring anyway", "error", err)
		}
		jobOpts = append(jobOpts, service.WithMirror(mirror))
		slog.Info("notion mirror enabled")
	}

	guard := service.NewSessionGuard(repository.NewUserRepository(client), markers, service.SessionConfig{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
	})
	jobSvc := service.NewJobService(repository.NewJobRepository(client), jobOpts...)

	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	e := handler.NewServer(renderer)
	handler.RegisterRoutes(e, guard,
		handler.NewAuthHandler(guard, cfg.CookieSecure),
		handler.NewJobHandler(jobSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "record_store", cfg.RecordStoreURL)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
