// Package main is the entry point for the review-jury HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/config"
	"github.com/fleveque/review-jury/internal/llm"
	"github.com/fleveque/review-jury/internal/roles"
	"github.com/fleveque/review-jury/internal/server"
	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/storage"
)

// defaultSelectionSize is how many personas the form pre-selects.
const defaultSelectionSize = 2

func main() {
	// run() keeps deferred cleanup working; os.Exit skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("JURY_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr; nothing to do about it.
	defer func() { _ = logger.Sync() }()

	// Personas are read once; a broken file stops startup.
	personas, err := roles.LoadAll(cfg.Roles.Path)
	if err != nil {
		return fmt.Errorf("loading personas: %w", err)
	}
	logger.Info("personas loaded", zap.Int("count", len(personas)), zap.String("path", cfg.Roles.Path))

	factory, err := llm.NewFactory(cfg.LLM)
	if err != nil {
		return fmt.Errorf("configuring llm: %w", err)
	}

	uploads, err := storage.NewUploadStore(cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("initializing upload storage: %w", err)
	}

	processor := service.NewImageProcessor(cfg.Image.MaxDimension, cfg.Image.MaxBytes)
	reviews := service.NewReviewService(personas, factory, uploads, processor, cfg.Review.ImageInstruction, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepUploads(sweepCtx, uploads, cfg.Storage.UploadTTL, logger)

	srv, err := server.New(cfg, server.Deps{
		Reviews:  reviews,
		Uploads:  uploads,
		Defaults: roles.DefaultSelection(personas, defaultSelectionSize),
	}, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight reviews time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// sweepUploads removes uploads that outlived ttl until ctx is cancelled.
func sweepUploads(ctx context.Context, uploads *storage.UploadStore, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := uploads.Sweep(now, ttl)
			if err != nil {
				logger.Warn("upload sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("removed stale uploads", zap.Int("count", removed))
			}
		}
	}
}
