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

	httpadapter "github.com/sahil-chaple/jalrakshak-risk-engine/internal/adapter/http"
	kafkaadapter "github.com/sahil-chaple/jalrakshak-risk-engine/internal/adapter/kafka"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/config"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/observability"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/pipeline"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Engine surface: indicator specs, thresholds, dwell. Invalid
	// configuration is fatal; the engine refuses to start.
	eng, registry, scorer, classifier, err := config.LoadEngine(cfg.EngineConfigPath)
	if err != nil {
		logger.Error("failed to load engine config", "path", cfg.EngineConfigPath, "error", err)
		os.Exit(1)
	}
	logger.Info("engine config loaded",
		"path", cfg.EngineConfigPath,
		"indicators", registry.Size(),
		"dwell", time.Duration(eng.DowngradeDwell),
	)

	trk, err := tracker.New(classifier, time.Duration(eng.DowngradeDwell))
	if err != nil {
		logger.Error("failed to create tracker", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	assessor := pipeline.NewAssessor(scorer, trk, logger, metrics)

	p := pipeline.New(reader, assessor, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, trk, time.Duration(eng.TrendLookback), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
