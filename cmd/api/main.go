package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatlens/cadence/cmd/mainconfig"
	"github.com/chatlens/cadence/internal/analysis"
	"github.com/chatlens/cadence/internal/api/router"
	"github.com/chatlens/cadence/internal/app/bootstrap"
	appconfig "github.com/chatlens/cadence/internal/config"
	"github.com/chatlens/cadence/internal/observability/metrics"
	"github.com/chatlens/cadence/pkg/logging"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cadence API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	store := analysis.NewStore(db)

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	cache := bootstrap.BuildMetricsCache(redisClient, cfg.CacheTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewAnalysisMetrics(registry)

	var (
		queue      analysis.Queue
		jobStore   analysis.JobRecorder
		jobUpdater analysis.JobUpdater
	)
	if cfg.UseMemoryQueue {
		logger.Info("using in-memory analysis queue")
		queue = analysis.NewMemoryQueue(0)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue = analysis.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AnalysisQueueURL)
		jobs := analysis.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.AnalysisJobsTable, logger)
		jobStore = jobs
		jobUpdater = jobs
	}

	publisher := analysis.NewPublisher(queue, logger)
	handler := analysis.NewHandler(store, cache, publisher, jobStore, logger)

	// With the in-memory queue there is no separate worker binary, so the
	// API process drains its own jobs.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	var worker *analysis.Worker
	if cfg.UseMemoryQueue {
		worker = analysis.NewWorker(store, cache, jobUpdater, queue, logger,
			analysis.WithWorkerCount(cfg.WorkerCount),
			analysis.WithMetrics(appMetrics),
			analysis.WithEngineOptions(bootstrap.BuildEngineOptions(cfg, logger)),
		)
		worker.Start(workerCtx)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		AnalysisHandler:    handler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Metrics:            appMetrics,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		DB:                 db,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if worker != nil {
		workerCancel()
		worker.Wait()
	}

	logger.Info("server stopped")
}
