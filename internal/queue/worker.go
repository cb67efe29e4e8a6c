package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/zombar/detectiveai/internal/database"
	"github.com/zombar/detectiveai/internal/metrics"
)

// Worker wraps the Asynq server for processing classification tasks
type Worker struct {
	server           *asynq.Server
	mux              *asynq.ServeMux
	db               *database.DB
	concurrency      int
	logger           *slog.Logger
	detectionMetrics *metrics.DetectionMetrics
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a new queue worker
func NewWorker(cfg WorkerConfig, db *database.DB, detectionMetrics *metrics.DetectionMetrics) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		Concurrency: cfg.Concurrency,

		Queues: map[string]int{
			"classification": 5,
		},

		// Classification is cheap; short backoff is enough to ride out
		// transient storage contention.
		RetryDelayFunc: retryDelay,

		ShutdownTimeout: 30 * time.Second,

		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			slog.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
	}

	w := &Worker{
		server:           asynq.NewServer(redisOpt, serverCfg),
		mux:              asynq.NewServeMux(),
		db:               db,
		concurrency:      cfg.Concurrency,
		logger:           slog.Default(),
		detectionMetrics: detectionMetrics,
	}

	w.registerHandlers()

	return w
}

// retryDelay returns the backoff schedule for failed tasks.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	delays := []time.Duration{
		5 * time.Second,
		30 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
	}
	if n < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

// registerHandlers registers all task handlers with the worker
func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeClassifyText, w.handleClassifyText)
}

// Start starts the worker to begin processing tasks. Run blocks until
// shutdown.
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queues", map[string]int{"classification": 5},
	)

	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}
