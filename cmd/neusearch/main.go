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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/app"
	"github.com/kailas-cloud/neusearch/internal/config"
	logpkg "github.com/kailas-cloud/neusearch/internal/logger"
	"github.com/kailas-cloud/neusearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/neusearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/neusearch/internal/usecase/health"
	"github.com/kailas-cloud/neusearch/internal/usecase/recommend"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
	"github.com/kailas-cloud/neusearch/internal/version"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting neusearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	ctx := context.Background()
	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer backend.Close()

	if err := backend.EnsureIndex(ctx, false); err != nil {
		logger.Fatal("Failed to prepare search index", zap.Error(err))
	}
	logger.Info("Connected to catalog", zap.String("driver", backend.Driver))

	emb := app.NewEmbedding(cfg, backend.Cache, logger)
	logger.Info("Providers configured", app.Describe(cfg)...)

	engine := retrieval.New(backend.Index, emb.Client, retrieval.Options{
		DefaultThreshold: cfg.Retrieval.DefaultThreshold,
		DefaultCount:     cfg.Retrieval.DefaultCount,
		Enhance:          *cfg.Retrieval.Enhance,
	}, logger)

	// Pass nil interfaces, not typed nil pointers, when generation is off.
	var (
		generator      recommend.TextGenerator
		generatorProbe healthuc.ProviderChecker
	)
	if g := app.NewGenerator(cfg.Generation, logger); g != nil {
		generator = g
		generatorProbe = g
	} else {
		logger.Warn("Generation API key not set, recommendations use templated replies")
	}

	orchestrator := recommend.New(engine, generator, recommend.Options{
		AutoAdjust: *cfg.Retrieval.AutoAdjust,
		Policy:     app.Policy(cfg.Generation.MaxAttempts, cfg.Generation.TimeoutSec),
	}, logger)

	healthSvc := healthuc.New(backend.Pinger, emb.Provider, generatorProbe, logger)

	server := chiTransport.NewServer(
		engine, orchestrator, backend.Catalog, healthSvc,
		chiTransport.Options{AutoAdjust: *cfg.Retrieval.AutoAdjust},
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}
