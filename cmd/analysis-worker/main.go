package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chatlens/cadence/cmd/mainconfig"
	"github.com/chatlens/cadence/internal/analysis"
	"github.com/chatlens/cadence/internal/app/bootstrap"
	"github.com/chatlens/cadence/internal/archive"
	appconfig "github.com/chatlens/cadence/internal/config"
	"github.com/chatlens/cadence/internal/observability/metrics"
	"github.com/chatlens/cadence/pkg/logging"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cadence analysis worker", "env", cfg.Env)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	store := analysis.NewStore(db)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := analysis.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AnalysisQueueURL)
	jobs := analysis.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.AnalysisJobsTable, logger)
	archiver := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	cache := bootstrap.BuildMetricsCache(redisClient, cfg.CacheTTL)

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewAnalysisMetrics(registry)

	worker := analysis.NewWorker(store, cache, jobs, queue, logger,
		analysis.WithWorkerCount(cfg.WorkerCount),
		analysis.WithMetrics(appMetrics),
		analysis.WithEngineOptions(bootstrap.BuildEngineOptions(cfg, logger)),
		analysis.WithArchiver(archiver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down analysis worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("analysis worker stopped")
	case <-doneCtx.Done():
		logger.Error("analysis worker shutdown timed out", "error", doneCtx.Err())
	}
}
