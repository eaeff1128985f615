package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatlens/cadence/internal/latency"
	"github.com/chatlens/cadence/internal/observability/metrics"
	"github.com/chatlens/cadence/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Archiver persists completed analysis snapshots to long-term storage.
type Archiver interface {
	ArchiveResult(ctx context.Context, doc *MetricsDocument) error
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	archiver         Archiver
	metrics          *metrics.AnalysisMetrics
	engineOpts       latency.Options
}

// WithWorkerCount sets how many goroutines drain the queue.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait per receive call.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			seconds = 0
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets the max messages fetched per receive call.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithArchiver stores completed analyses in long-term storage.
func WithArchiver(archiver Archiver) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.archiver = archiver
	}
}

// WithMetrics records run outcomes and durations.
func WithMetrics(m *metrics.AnalysisMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// WithEngineOptions overrides the analysis engine defaults.
func WithEngineOptions(opts latency.Options) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.engineOpts = opts
	}
}

// Worker consumes analysis jobs from the queue and runs the latency engine.
type Worker struct {
	store  *Store
	cache  *Cache
	jobs   JobUpdater
	queue  Queue
	logger *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

// NewWorker wires a queue consumer to the store, cache, and job tracker.
// The cache and jobs dependencies are optional.
func NewWorker(store *Store, cache *Cache, jobs JobUpdater, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if store == nil {
		panic("analysis: store cannot be nil")
	}
	if queue == nil {
		panic("analysis: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		engineOpts:       latency.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		store:  store,
		cache:  cache,
		jobs:   jobs,
		queue:  queue,
		logger: logger,
		cfg:    cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("analysis worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("analysis worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive analysis jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode analysis job", "error", err)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.logger.Info("worker processing job", "job_id", payload.ID, "conversation_id", payload.ConversationID)

	doc, err := w.analyze(ctx, payload.ConversationID)
	if err != nil {
		w.logger.Error("analysis job failed", "error", err, "job_id", payload.ID, "conversation_id", payload.ConversationID)
		w.cfg.metrics.ObserveRun("error", 0, 0)
		if payload.TrackStatus && w.jobs != nil {
			if storeErr := w.jobs.MarkFailed(ctx, payload.ID, err.Error()); storeErr != nil {
				w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
			}
		}
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	if payload.TrackStatus && w.jobs != nil {
		status := JobStatusCompleted
		if doc.Status == StatusInsufficientData {
			status = JobStatusInsufficientData
		}
		if storeErr := w.jobs.MarkDone(ctx, payload.ID, status); storeErr != nil {
			w.logger.Error("failed to update job status", "error", storeErr, "job_id", payload.ID)
		}
	}

	w.logger.Debug("analysis job processed", "job_id", payload.ID, "status", doc.Status)
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) analyze(ctx context.Context, conversationID string) (*MetricsDocument, error) {
	started := time.Now()

	conv, err := w.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("analysis: conversation %s not found", conversationID)
	}

	msgs, err := w.store.LoadMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	doc := &MetricsDocument{
		ConversationID: conversationID,
		AnalyzedAt:     time.Now().UTC(),
	}

	result, err := latency.AnalyzeWithOptions(msgs, conv.Participants, w.cfg.engineOpts)
	switch {
	case errors.Is(err, latency.ErrInsufficientData):
		doc.Status = StatusInsufficientData
		w.cfg.metrics.ObserveInsufficientData()
	case err != nil:
		return nil, err
	default:
		doc.Status = StatusOK
		doc.Metrics = result
	}

	if err := w.store.SaveResult(ctx, doc); err != nil {
		return nil, err
	}

	if w.cache != nil {
		if err := w.cache.Save(ctx, doc); err != nil {
			w.logger.Warn("failed to cache analysis result", "error", err, "conversation_id", conversationID)
		}
	}

	if w.cfg.archiver != nil && doc.Status == StatusOK {
		if err := w.cfg.archiver.ArchiveResult(ctx, doc); err != nil {
			w.logger.Warn("failed to archive analysis result", "error", err, "conversation_id", conversationID)
		}
	}

	w.cfg.metrics.ObserveRun(doc.Status, time.Since(started).Seconds(), len(msgs))
	return doc, nil
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete analysis job", "error", err)
	}
}
