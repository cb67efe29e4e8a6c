package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zombar/detectiveai/internal/models"
)

// ErrNotFound is returned when a report or feedback row does not exist.
var ErrNotFound = errors.New("report not found")

// SaveReport inserts a report, or replaces it when the ID already exists.
func (db *DB) SaveReport(report *models.Report) error {
	resultJSON, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	isAI := 0
	if report.Result.IsAI {
		isAI = 1
	}

	_, err = db.conn.Exec(`
		INSERT INTO reports (id, title, text, source, is_ai, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			source = excluded.source,
			is_ai = excluded.is_ai,
			result = excluded.result,
			updated_at = excluded.updated_at
	`, report.ID, report.Title, report.Text, report.Source, isAI, resultJSON, report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetReport retrieves a report by ID.
func (db *DB) GetReport(id string) (*models.Report, error) {
	var (
		title      string
		text       string
		source     string
		resultJSON string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := db.conn.QueryRow(`
		SELECT title, text, source, result, created_at, updated_at
		FROM reports
		WHERE id = ?
	`, id).Scan(&title, &text, &source, &resultJSON, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var result models.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &models.Report{
		ID:        id,
		Title:     title,
		Text:      text,
		Source:    source,
		Result:    result,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ListReports retrieves reports newest first with pagination.
func (db *DB) ListReports(limit, offset int) ([]*models.Report, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, text, source, result, created_at, updated_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetReportsByVerdict retrieves all reports with the given AI verdict,
// newest first.
func (db *DB) GetReportsByVerdict(isAI bool) ([]*models.Report, error) {
	verdict := 0
	if isAI {
		verdict = 1
	}

	rows, err := db.conn.Query(`
		SELECT id, title, text, source, result, created_at, updated_at
		FROM reports
		WHERE is_ai = ?
		ORDER BY created_at DESC
	`, verdict)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports by verdict: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

func scanReports(rows *sql.Rows) ([]*models.Report, error) {
	var reports []*models.Report
	for rows.Next() {
		var (
			id         string
			title      string
			text       string
			source     string
			resultJSON string
			createdAt  time.Time
			updatedAt  time.Time
		)

		if err := rows.Scan(&id, &title, &text, &source, &resultJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var result models.Result
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}

		reports = append(reports, &models.Report{
			ID:        id,
			Title:     title,
			Text:      text,
			Source:    source,
			Result:    result,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reports, nil
}

// DeleteReport deletes a report by ID. Feedback rows cascade.
func (db *DB) DeleteReport(id string) error {
	result, err := db.conn.Exec("DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveFeedback stores a feedback entry for an existing report.
func (db *DB) SaveFeedback(fb *models.Feedback) error {
	agree := 0
	if fb.Agree {
		agree = 1
	}

	_, err := db.conn.Exec(`
		INSERT INTO feedback (id, report_id, agree, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, fb.ID, fb.ReportID, agree, fb.Comment, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	return nil
}

// GetFeedbackForReport retrieves all feedback entries for a report,
// oldest first.
func (db *DB) GetFeedbackForReport(reportID string) ([]*models.Feedback, error) {
	rows, err := db.conn.Query(`
		SELECT id, agree, comment, created_at
		FROM feedback
		WHERE report_id = ?
		ORDER BY created_at ASC
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []*models.Feedback
	for rows.Next() {
		var (
			id        string
			agree     int
			comment   sql.NullString
			createdAt time.Time
		)

		if err := rows.Scan(&id, &agree, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entries = append(entries, &models.Feedback{
			ID:        id,
			ReportID:  reportID,
			Agree:     agree == 1,
			Comment:   comment.String,
			CreatedAt: createdAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
