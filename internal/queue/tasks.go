package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/zombar/detectiveai/internal/classifier"
	"github.com/zombar/detectiveai/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// handleClassifyText runs the heuristic classifier for a queued request
// and persists the resulting report.
func (w *Worker) handleClassifyText(ctx context.Context, t *asynq.Task) error {
	var payload ClassifyTextPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		queueWaitTime = time.Since(time.Unix(0, payload.EnqueuedAt))
	}

	retryCount, _ := asynq.GetRetryCount(ctx)

	w.logger.Info("processing classification task",
		"report_id", payload.ReportID,
		"text_length", len(payload.Text),
		"retry_count", retryCount,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	// Continue the trace started at enqueue time, if the payload
	// carries one.
	if payload.TraceID != "" && payload.SpanID != "" {
		traceID, err := trace.TraceIDFromHex(payload.TraceID)
		if err == nil {
			spanID, err := trace.SpanIDFromHex(payload.SpanID)
			if err == nil {
				remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
					TraceID:    traceID,
					SpanID:     spanID,
					TraceFlags: trace.FlagsSampled,
					Remote:     true,
				})
				ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

				var span trace.Span
				ctx, span = otel.Tracer("detectiveai").Start(ctx, "asynq.task.classify",
					trace.WithSpanKind(trace.SpanKindConsumer),
					trace.WithAttributes(
						attribute.String("task.type", TypeClassifyText),
						attribute.String("report.id", payload.ReportID),
						attribute.Int("text.length", len(payload.Text)),
						attribute.Int("retry_count", retryCount),
						attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
					),
				)
				defer span.End()
			}
		}
	}

	start := time.Now()
	result := classifier.Classify(payload.Text)
	if w.detectionMetrics != nil {
		w.detectionMetrics.ObserveClassifyDuration(ctx, time.Since(start).Seconds())
		w.detectionMetrics.RecordDetection(models.VerdictLabel(result.IsAI), models.SourceText, result.Confidence)
	}

	now := time.Now().UTC()
	report := &models.Report{
		ID:        payload.ReportID,
		Title:     payload.Title,
		Text:      payload.Text,
		Source:    models.SourceText,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := w.db.SaveReport(report); err != nil {
		if isRetriableStorageError(err) {
			w.logger.Warn("retriable storage error, will retry",
				"report_id", payload.ReportID,
				"error", err,
				"retry_count", retryCount,
			)
			return err // let Asynq retry
		}

		w.logger.Error("permanent error saving report",
			"report_id", payload.ReportID,
			"error", err,
		)
		return fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("classification task completed",
		"report_id", payload.ReportID,
		"verdict", models.VerdictLabel(result.IsAI),
		"confidence", result.Confidence,
	)

	return nil
}

// isRetriableStorageError distinguishes transient storage contention
// from permanent failures.
func isRetriableStorageError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"database is locked",
		"database table is locked",
		"busy",
		"timeout",
		"context deadline exceeded",
		"context canceled",
		"i/o timeout",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
