package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/zombar/detectiveai/internal/classifier"
	"github.com/zombar/detectiveai/internal/database"
	"github.com/zombar/detectiveai/internal/metrics"
	"github.com/zombar/detectiveai/internal/models"
	"github.com/zombar/detectiveai/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// titleWordLimit caps how many leading words of the text are used when
// no title is supplied.
const titleWordLimit = 8

// QueueClient enqueues classification work for asynchronous processing.
type QueueClient interface {
	EnqueueClassifyText(ctx context.Context, reportID, title, text string) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	queueClient QueueClient // nil when the queue is disabled
	metrics     *metrics.DetectionMetrics
	maxWords    int
	mux         *http.ServeMux
}

// NewHandler creates a new API handler with CORS support. maxWords caps
// accepted input length; zero disables the ceiling.
func NewHandler(db *database.DB, queueClient QueueClient, detectionMetrics *metrics.DetectionMetrics, maxWords int) http.Handler {
	h := &Handler{
		db:          db,
		queueClient: queueClient,
		metrics:     detectionMetrics,
		maxWords:    maxWords,
		mux:         http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint
	h.mux.HandleFunc("/api/detect", h.handleDetect)
	h.mux.HandleFunc("/api/detect/async", h.handleDetectAsync)
	h.mux.HandleFunc("/api/detect/image", h.handleDetectImage)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/reports", h.handleListReports)
	h.mux.HandleFunc("/api/reports/", h.handleReportOperations)
	h.mux.HandleFunc("/api/search", h.handleSearchByVerdict)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type detectRequest struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

// validateDetectRequest enforces the caller-side input contract: the
// classifier itself accepts anything, so empty and oversized input are
// rejected here.
func (h *Handler) validateDetectRequest(w http.ResponseWriter, req *detectRequest) bool {
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return false
	}
	if h.maxWords > 0 {
		if words := len(strings.Fields(req.Text)); words > h.maxWords {
			respondError(w, fmt.Sprintf("Text exceeds the %d word limit", h.maxWords), http.StatusBadRequest)
			return false
		}
	}
	return true
}

// handleDetect classifies text synchronously and stores the report.
func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.validateDetectRequest(w, &req) {
		return
	}

	ctx := r.Context()
	tracing.SetSpanAttributes(ctx, attribute.Int("text.length", len(req.Text)))

	start := time.Now()
	result := classifier.Classify(req.Text)
	if h.metrics != nil {
		h.metrics.ObserveClassifyDuration(ctx, time.Since(start).Seconds())
		h.metrics.RecordDetection(models.VerdictLabel(result.IsAI), models.SourceText, result.Confidence)
	}

	now := time.Now().UTC()
	report := &models.Report{
		ID:        uuid.NewString(),
		Title:     orDerivedTitle(req.Title, req.Text),
		Text:      req.Text,
		Source:    models.SourceText,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.db.SaveReport(report); err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report, http.StatusCreated)
}

// handleDetectAsync enqueues a classification task and returns a job ID
// the caller can poll.
func (h *Handler) handleDetectAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.queueClient == nil {
		respondError(w, "Asynchronous detection is not configured", http.StatusServiceUnavailable)
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.validateDetectRequest(w, &req) {
		return
	}

	ctx := r.Context()
	tracing.SetSpanAttributes(ctx, attribute.Int("text.length", len(req.Text)))

	reportID := uuid.NewString()
	taskID, err := h.queueClient.EnqueueClassifyText(ctx, reportID, orDerivedTitle(req.Title, req.Text), req.Text)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to enqueue detection: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":  reportID,
		"task_id": taskID,
		"status":  "queued",
		"message": "Detection queued for processing",
	}, http.StatusAccepted)
}

// handleDetectImage is the image-upload stub: it bypasses the classifier
// and records a canned result.
func (h *Handler) handleDetectImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	title := req.Filename
	if title == "" {
		title = "Image upload"
	}

	now := time.Now().UTC()
	report := &models.Report{
		ID:        uuid.NewString(),
		Title:     title,
		Source:    models.SourceImage,
		Result:    cannedImageResult(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if h.metrics != nil {
		h.metrics.RecordDetection(models.VerdictLabel(report.Result.IsAI), models.SourceImage, report.Result.Confidence)
	}

	if err := h.db.SaveReport(report); err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report, http.StatusCreated)
}

// cannedImageResult fabricates the fixed verdict used for image uploads.
// There is no pixel-level analysis; the heuristic engine only handles
// text.
func cannedImageResult() models.Result {
	return models.Result{
		IsAI:       true,
		Confidence: 78,
		Reasons: []models.Reason{
			{
				Type:        models.ReasonWarning,
				Title:       "Image heuristics unavailable",
				Description: "Pixel-level analysis is not implemented; this verdict is a canned placeholder.",
				Impact:      models.ImpactLow,
			},
			{
				Type:        models.ReasonSuccess,
				Title:       "File received",
				Description: "The upload was accepted and recorded in history.",
				Impact:      models.ImpactLow,
			},
		},
	}
}

// handleJobStatus reports on an asynchronously queued detection.
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}
	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	report, err := h.db.GetReport(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, map[string]interface{}{
				"job_id":  jobID,
				"status":  "not_found",
				"message": "Report not found - it may still be queued",
			}, http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id": jobID,
		"status": "completed",
		"report": report,
	}, http.StatusOK)
}

// handleListReports handles listing all reports with pagination
func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	reports, err := h.db.ListReports(limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	respondJSON(w, reports, http.StatusOK)
}

// handleReportOperations dispatches /api/reports/{id} and its subpaths.
func (h *Handler) handleReportOperations(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if path == "" {
		respondError(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getReport(w, id)
		case http.MethodDelete:
			h.deleteReport(w, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "export":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.exportReport(w, id)
	case "feedback":
		switch r.Method {
		case http.MethodPost:
			h.addFeedback(w, r, id)
		case http.MethodGet:
			h.listFeedback(w, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		respondError(w, "Unknown report operation", http.StatusNotFound)
	}
}

// getReport retrieves a specific report
func (h *Handler) getReport(w http.ResponseWriter, id string) {
	report, err := h.db.GetReport(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, report, http.StatusOK)
}

// deleteReport deletes a specific report
func (h *Handler) deleteReport(w http.ResponseWriter, id string) {
	if err := h.db.DeleteReport(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// exportReport returns the report as a downloadable JSON document.
func (h *Handler) exportReport(w http.ResponseWriter, id string) {
	report, err := h.db.GetReport(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "detectiveai-report-"+id+".json"))
	respondJSON(w, report, http.StatusOK)
}

// addFeedback records agreement or disagreement with a report's verdict.
func (h *Handler) addFeedback(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Agree   *bool  `json:"agree"`
		Comment string `json:"comment,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Agree == nil {
		respondError(w, "Agree field is required", http.StatusBadRequest)
		return
	}

	if _, err := h.db.GetReport(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	fb := &models.Feedback{
		ID:        uuid.NewString(),
		ReportID:  id,
		Agree:     *req.Agree,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.db.SaveFeedback(fb); err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.FeedbackTotal.WithLabelValues(strconv.FormatBool(fb.Agree)).Inc()
	}

	respondJSON(w, fb, http.StatusCreated)
}

// listFeedback returns all feedback recorded for a report.
func (h *Handler) listFeedback(w http.ResponseWriter, id string) {
	if _, err := h.db.GetReport(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	entries, err := h.db.GetFeedbackForReport(id)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.Feedback{}
	}

	respondJSON(w, entries, http.StatusOK)
}

// handleSearchByVerdict filters the report history by final verdict.
func (h *Handler) handleSearchByVerdict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var isAI bool
	switch r.URL.Query().Get("verdict") {
	case "ai":
		isAI = true
	case "human":
		isAI = false
	case "":
		respondError(w, "Verdict parameter is required", http.StatusBadRequest)
		return
	default:
		respondError(w, "Verdict parameter must be 'ai' or 'human'", http.StatusBadRequest)
		return
	}

	reports, err := h.db.GetReportsByVerdict(isAI)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	respondJSON(w, reports, http.StatusOK)
}

// orDerivedTitle returns title, or a short preview of text when no title
// was supplied.
func orDerivedTitle(title, text string) string {
	if title != "" {
		return title
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return "Untitled analysis"
	}
	if len(words) <= titleWordLimit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWordLimit], " ") + "…"
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
