package models

import "time"

// Report wraps a classification result with the identity and timestamps
// used by the history store.
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Source    string    `json:"source"` // text, document, image
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report sources
const (
	SourceText     = "text"
	SourceDocument = "document"
	SourceImage    = "image"
)

// Result is the outcome of a single classification run.
type Result struct {
	IsAI            bool       `json:"is_ai"`
	Confidence      int        `json:"confidence"` // 5-95, certainty in the final verdict
	HighlightedText string     `json:"highlighted_text"`
	Reasons         []Reason   `json:"detection_reasons"`
	Statistics      Statistics `json:"statistics"`
}

// Reason is a structured explanation entry justifying part of the score.
type Reason struct {
	Type        string `json:"type"` // critical, warning, info, success
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // Low, Medium, High
}

// Reason types
const (
	ReasonCritical = "critical"
	ReasonWarning  = "warning"
	ReasonInfo     = "info"
	ReasonSuccess  = "success"
)

// Reason impact levels
const (
	ImpactLow    = "Low"
	ImpactMedium = "Medium"
	ImpactHigh   = "High"
)

// VerdictLabel renders the boolean verdict as the label used in the API
// and in metrics.
func VerdictLabel(isAI bool) string {
	if isAI {
		return "ai"
	}
	return "human"
}

// Statistics contains basic text statistics computed during classification.
type Statistics struct {
	TotalWords        int     `json:"total_words"`
	Sentences         int     `json:"sentences"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// Feedback records a user's agreement or disagreement with a stored report.
type Feedback struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	Agree     bool      `json:"agree"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
