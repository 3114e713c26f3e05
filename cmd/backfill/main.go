package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penstream/broadcast/internal/config"
	"github.com/penstream/broadcast/internal/logger"
	"github.com/penstream/broadcast/internal/pexels"
	"github.com/penstream/broadcast/internal/queue"
	"github.com/penstream/broadcast/internal/ranker"
	"github.com/penstream/broadcast/internal/resolver"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "penstream-backfill",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	queueDir := flag.String("queue-dir", "", "Queue directory (overrides config)")
	pace := flag.Duration("pace", time.Second, "Delay between resolution calls")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	dir := cfg.Queue.Dir
	if *queueDir != "" {
		dir = *queueDir
	}

	appLogger.WithFields(logger.Fields{
		"queue_dir": dir,
		"pace":      pace.String(),
	}).Info("Starting media backfill")

	searchClient := pexels.NewClient(&pexels.Config{
		APIKey:        cfg.Pexels.APIKey,
		VideoEndpoint: cfg.Pexels.VideoEndpoint,
		PhotoEndpoint: cfg.Pexels.PhotoEndpoint,
		Timeout:       cfg.Pexels.Timeout,
	})
	if !searchClient.HasKey() {
		appLogger.Warn("PEXELS_API_KEY not set, items will receive the default asset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel on interrupt so a half-finished pass still writes its backup
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("Interrupt received, stopping backfill")
		cancel()
	}()

	var semantic ranker.Scorer
	if cfg.Embedding.APIKey != "" {
		s := ranker.NewSemantic(&ranker.SemanticConfig{
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
			Threshold:  cfg.Resolver.SemanticThreshold,
		})
		if s.Detect(ctx) {
			semantic = s
		}
	}

	mediaResolver := resolver.New(searchClient, semantic, resolver.Config{
		MaxAttempts:  cfg.Resolver.MaxAttempts,
		PerPage:      cfg.Resolver.PerPage,
		HDMinWidth:   cfg.Resolver.HDMinWidth,
		PageBackoff:  cfg.Resolver.PageBackoff,
		DefaultVideo: cfg.Resolver.DefaultVideo,
	}, nil)

	manager, err := queue.NewManager(dir, cfg.Queue.MaxSize, mediaResolver)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open queue directory")
	}

	changed, err := manager.FillMissing(ctx, *pace)
	if err != nil {
		appLogger.WithError(err).WithField("updated", changed).Fatal("Backfill failed")
	}

	appLogger.WithField("updated", changed).Info("Backfill complete")
}
