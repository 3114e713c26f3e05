package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penstream/broadcast/internal/api"
	"github.com/penstream/broadcast/internal/api/handler"
	"github.com/penstream/broadcast/internal/api/middleware"
	"github.com/penstream/broadcast/internal/cache"
	"github.com/penstream/broadcast/internal/config"
	"github.com/penstream/broadcast/internal/logger"
	"github.com/penstream/broadcast/internal/pexels"
	"github.com/penstream/broadcast/internal/queue"
	"github.com/penstream/broadcast/internal/ranker"
	"github.com/penstream/broadcast/internal/resolver"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx := context.Background()

	// Initialize the two-tier proxy cache. Losing the durable tier degrades
	// the cache to memory-only; it never blocks startup.
	memory := cache.NewMemory(cfg.Proxy.CacheMaxEntries, cfg.Proxy.CacheTTL)
	durable, err := cache.NewDurable(cfg, cfg.Proxy.CacheTTL)
	if err != nil {
		appLogger.WithError(err).Warn("Durable cache tier unavailable, running memory-only")
		durable = nil
	}
	store := cache.NewTiered(memory, durable)

	// Initialize the stock media search client
	searchClient := pexels.NewClient(&pexels.Config{
		APIKey:        cfg.Pexels.APIKey,
		VideoEndpoint: cfg.Pexels.VideoEndpoint,
		PhotoEndpoint: cfg.Pexels.PhotoEndpoint,
		Timeout:       cfg.Pexels.Timeout,
	})
	if !searchClient.HasKey() {
		appLogger.Warn("PEXELS_API_KEY not set, media resolution will use the default asset")
	}

	// Probe the embedding endpoint once; without it, ranking is lexical only
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
			appLogger.WithField("model", cfg.Embedding.Model).Info("Semantic ranking enabled")
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

	// Initialize the run-of-show queue manager
	queueManager, err := queue.NewManager(cfg.Queue.Dir, cfg.Queue.MaxSize, mediaResolver)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize queue manager")
	}

	// Create handlers
	proxyHandler := handler.NewProxyHandler(store, &handler.ProxyConfig{
		Token:           cfg.Proxy.Token,
		AllowedHosts:    cfg.Proxy.AllowedHosts,
		UpstreamTimeout: cfg.Proxy.UpstreamTimeout,
		CacheMaxBytes:   cfg.Proxy.CacheMaxBytes,
	})
	queueHandler := handler.NewQueueHandler(queueManager)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Window)
	}

	// Setup router
	router := api.SetupRouter(cfg, appLogger, proxyHandler, queueHandler, limiter)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting broadcast server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
