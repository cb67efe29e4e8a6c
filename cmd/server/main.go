package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/zombar/detectiveai/internal/api"
	"github.com/zombar/detectiveai/internal/database"
	"github.com/zombar/detectiveai/internal/metrics"
	"github.com/zombar/detectiveai/internal/queue"
	"github.com/zombar/detectiveai/internal/tracing"
	"github.com/zombar/detectiveai/pkg/logging"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("detectiveai service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("detectiveai")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "detectiveai.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "localhost:6379")
	useQueueDefault := getEnvBool("USE_QUEUE", false)
	maxWordsDefault := getEnvInt("MAX_WORDS", 5000)
	concurrencyDefault := getEnvInt("WORKER_CONCURRENCY", 4)

	var (
		port        = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath      = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr   = flag.String("redis-addr", redisAddrDefault, "Redis address for the task queue (env: REDIS_ADDR)")
		useQueue    = flag.Bool("use-queue", useQueueDefault, "Enable asynchronous detection via Redis (env: USE_QUEUE)")
		maxWords    = flag.Int("max-words", maxWordsDefault, "Maximum accepted input length in words, 0 disables (env: MAX_WORDS)")
		concurrency = flag.Int("worker-concurrency", concurrencyDefault, "Queue worker concurrency (env: WORKER_CONCURRENCY)")
	)
	flag.Parse()

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database metrics
	dbMetrics := metrics.NewDatabaseMetrics("detectiveai")
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			dbMetrics.UpdateDBStats(db.Conn())
		}
	}()
	logger.Info("database metrics initialized")

	detectionMetrics := metrics.NewDetectionMetrics("detectiveai")

	// Initialize the task queue when enabled. Without it the async
	// endpoint reports unavailable and synchronous detection still works.
	var queueClient api.QueueClient
	var worker *queue.Worker
	if *useQueue {
		client := queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
		defer client.Close()
		queueClient = client

		worker = queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   *redisAddr,
			Concurrency: *concurrency,
		}, db, detectionMetrics)
		go func() {
			if err := worker.Start(); err != nil {
				logger.Error("queue worker stopped", "error", err)
				os.Exit(1)
			}
		}()
		logger.Info("task queue initialized", "redis_addr", *redisAddr, "concurrency", *concurrency)
	} else {
		logger.Info("task queue disabled, synchronous detection only")
	}

	// Initialize API handler
	apiHandler := api.NewHandler(db, queueClient, detectionMetrics, *maxWords)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("detectiveai")(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("detectiveai service starting",
			"port", *port,
			"database", *dbPath,
			"queue_enabled", *useQueue,
			"max_words", *maxWords,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if worker != nil {
		worker.Shutdown()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
