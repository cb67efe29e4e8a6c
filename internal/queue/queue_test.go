package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

// TestClassifyTextPayload tests the ClassifyTextPayload structure
func TestClassifyTextPayload(t *testing.T) {
	payload := ClassifyTextPayload{
		ReportID:   "test-123",
		Title:      "Sample report",
		Text:       "Sample text for classification",
		EnqueuedAt: time.Now().UnixNano(),
	}

	data, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded ClassifyTextPayload
	err = json.Unmarshal(data, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, payload.ReportID, decoded.ReportID)
	assert.Equal(t, payload.Title, decoded.Title)
	assert.Equal(t, payload.Text, decoded.Text)
	assert.Equal(t, payload.EnqueuedAt, decoded.EnqueuedAt)
}

// TestIsRetriableStorageError tests error classification
func TestIsRetriableStorageError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "database locked",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			expected: true,
		},
		{
			name:     "busy",
			err:      errors.New("SQLITE_BUSY: database busy"),
			expected: true,
		},
		{
			name:     "context deadline exceeded",
			err:      errors.New("context deadline exceeded"),
			expected: true,
		},
		{
			name:     "constraint violation",
			err:      errors.New("UNIQUE constraint failed: reports.id"),
			expected: false,
		},
		{
			name:     "marshal error",
			err:      errors.New("failed to marshal result"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetriableStorageError(tt.err))
		})
	}
}

// TestRetryDelaySchedule tests the backoff schedule
func TestRetryDelaySchedule(t *testing.T) {
	task := asynq.NewTask(TypeClassifyText, nil)

	assert.Equal(t, 5*time.Second, retryDelay(0, nil, task))
	assert.Equal(t, 30*time.Second, retryDelay(1, nil, task))
	assert.Equal(t, 1*time.Minute, retryDelay(2, nil, task))
	assert.Equal(t, 15*time.Minute, retryDelay(4, nil, task))
	// Past the end of the schedule the last delay repeats.
	assert.Equal(t, 15*time.Minute, retryDelay(9, nil, task))
}
