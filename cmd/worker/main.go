package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/openminutes/scribe/internal/config"
	"github.com/openminutes/scribe/internal/jobstore"
	"github.com/openminutes/scribe/internal/logger"
	"github.com/openminutes/scribe/internal/metrics"
	"github.com/openminutes/scribe/internal/pipeline"
	"github.com/openminutes/scribe/internal/services/audit"
	"github.com/openminutes/scribe/internal/services/oauth"
	"github.com/openminutes/scribe/internal/services/recognition"
	"github.com/openminutes/scribe/internal/services/summary"
	"github.com/openminutes/scribe/internal/telemetry"
	"github.com/openminutes/scribe/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, nil)
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	// Initialize logger with OTel support
	logger := logger.New(cfg.Env)
	slog.SetDefault(logger)

	// Database connection
	pool, err := jobstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jobs := jobstore.New(pool)
	if err := jobs.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Service clients
	speechTokens := oauth.NewTokenSource(cfg.Speech.TokenURL, cfg.Speech.Scope, cfg.SpeechClientID, cfg.SpeechSecret)
	recognizer := recognition.NewClient(cfg.Speech.RecognizeURL, speechTokens)

	// Summary generation is optional: without credentials the worker still
	// transcribes and delivers, it just skips the summary step.
	var summarizer worker.Summarizer
	if cfg.SummaryClientID != "" {
		summaryTokens := oauth.NewTokenSource(cfg.Summary.TokenURL, cfg.Summary.Scope, cfg.SummaryClientID, cfg.SummarySecret)
		summarizer = summary.NewClient(cfg.Summary.BaseURL, cfg.Summary.Model, summaryTokens)
	}

	sink := audit.NewClient(cfg.AuditBaseURL, cfg.AuditToken)
	defer sink.Flush()

	pipe := pipeline.New(recognizer, sink, cfg.Pipeline)

	processor := worker.NewTranscriptionProcessor(
		jobs,
		pipe,
		summarizer,
		sink,
		cfg.Pipeline.MaxMessageLength,
		cfg.UploadDir,
	)

	jobMetrics, err := worker.NewJobMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	// Asynq server
	srv := worker.NewServer(cfg.RedisURL)

	// Register handlers
	mux := asynq.NewServeMux()
	mux.Use(worker.OTelMiddleware)
	mux.Use(jobMetrics.Middleware)
	mux.HandleFunc(worker.TypeTranscribeAudio, processor.HandleTranscribeAudio)
	mux.HandleFunc(worker.TypeCleanupUploads, processor.HandleCleanupUploads)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down worker...")
		srv.Shutdown()
	}()

	slog.Info("Starting worker", "redis", cfg.RedisURL)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
