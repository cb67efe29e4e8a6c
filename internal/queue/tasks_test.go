package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zombar/detectiveai/internal/database"
	"github.com/zombar/detectiveai/internal/models"
)

func setupTestWorker(t *testing.T) (*Worker, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "queue_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	// Redis is never dialed: the handler is invoked directly.
	w := NewWorker(WorkerConfig{RedisAddr: "localhost:6379", Concurrency: 1}, db, nil)
	return w, db
}

func classifyTask(t *testing.T, payload ClassifyTextPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TypeClassifyText, data)
}

func TestHandleClassifyTextSavesReport(t *testing.T) {
	w, db := setupTestWorker(t)

	payload := ClassifyTextPayload{
		ReportID:   "report-queue-1",
		Title:      "Queued detection",
		Text:       "Machine learning has changed how we build software.",
		EnqueuedAt: time.Now().UnixNano(),
	}

	err := w.handleClassifyText(context.Background(), classifyTask(t, payload))
	require.NoError(t, err)

	report, err := db.GetReport("report-queue-1")
	require.NoError(t, err)

	assert.Equal(t, "Queued detection", report.Title)
	assert.Equal(t, models.SourceText, report.Source)
	assert.True(t, report.Result.IsAI)
	assert.Equal(t, 85, report.Result.Confidence)
	assert.Len(t, report.Result.Reasons, 1)
}

func TestHandleClassifyTextHumanVerdict(t *testing.T) {
	w, db := setupTestWorker(t)

	payload := ClassifyTextPayload{
		ReportID: "report-queue-2",
		Title:    "Plain prose",
		Text:     "The quick brown fox jumps over the lazy dog.",
	}

	err := w.handleClassifyText(context.Background(), classifyTask(t, payload))
	require.NoError(t, err)

	report, err := db.GetReport("report-queue-2")
	require.NoError(t, err)

	assert.False(t, report.Result.IsAI)
	assert.Equal(t, 50, report.Result.Confidence)
	assert.Equal(t, 9, report.Result.Statistics.TotalWords)
}

func TestHandleClassifyTextInvalidPayload(t *testing.T) {
	w, _ := setupTestWorker(t)

	task := asynq.NewTask(TypeClassifyText, []byte("not json"))
	err := w.handleClassifyText(context.Background(), task)
	assert.Error(t, err)
}
