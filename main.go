// Package main our entry point.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johndosdos/msglog/internal/auth"
	"github.com/johndosdos/msglog/internal/config"
	"github.com/johndosdos/msglog/internal/database"
	"github.com/johndosdos/msglog/internal/handler"
	ratelimiter "github.com/johndosdos/msglog/internal/rate_limiter"
	"github.com/johndosdos/msglog/internal/service"
	"github.com/johndosdos/msglog/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting application...")

	// Init DB
	slog.Info("Initializing Database connection...")

	pool, db, err := database.Open(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return err
	}

	users, err := service.NewUsers(database.NewUsers(db))
	if err != nil {
		return err
	}

	messageRepo := database.NewMessages(db)

	limiter := ratelimiter.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer limiter.Cancel()

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Users:          users,
			Tokens:         tokens,
			Messages:       service.NewMessages(messageRepo, store, cfg.MaxUploadBytes),
			Files:          service.NewFiles(messageRepo, store),
			DB:             db,
			Limiter:        limiter,
			MaxUploadBytes: cfg.MaxUploadBytes,
			PublicURL:      cfg.PublicURL,
			CORSOrigin:     cfg.CORSOrigin,
			TrustProxy:     cfg.TrustProxy,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	slog.Info("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.Any("error", err))
	}

	slog.Info("Server stopped")
	return nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.StorageBackend == config.StorageS3 {
		slog.Info("Using S3 attachment storage", slog.String("bucket", cfg.S3Bucket))
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}

	slog.Info("Using disk attachment storage", slog.String("dir", cfg.UploadDir))
	return storage.NewDisk(cfg.UploadDir)
}
