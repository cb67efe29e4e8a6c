package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zombar/detectiveai/internal/models"
)

// Scoring constants. Each rule is independent; the boosts stack.
const (
	baseConfidence  = 50
	patternBoost    = 35
	keywordBoost    = 20
	transitionBoost = 15

	keywordThreshold    = 3 // matched keywords needed to fire the warning rule
	transitionThreshold = 2 // matched transitions needed to fire the info rule

	aiVerdictThreshold = 60 // accumulated confidence at or above this means AI

	minConfidence = 5
	maxConfidence = 95
)

var sentenceDelims = regexp.MustCompile(`[.!?]+`)

// Classify runs the heuristic AI-content scan over text and returns a
// fresh Result. It is pure: deterministic for identical input, no side
// effects, and it cannot fail — empty input yields zero statistics and
// the base-score human verdict.
func Classify(text string) models.Result {
	lower := strings.ToLower(text)

	foundPatterns := matchTerms(lower, suspiciousPatterns)
	foundKeywords := matchTerms(lower, aiKeywords)
	foundTransitions := matchTerms(lower, transitionWords)

	confidence := baseConfidence
	var reasons []models.Reason

	if len(foundPatterns) >= 1 {
		confidence += patternBoost
		reasons = append(reasons, models.Reason{
			Type:        models.ReasonCritical,
			Title:       "Explicit AI phrasing detected",
			Description: fmt.Sprintf("Found %d suspicious pattern(s): %s", len(foundPatterns), strings.Join(foundPatterns, ", ")),
			Impact:      models.ImpactHigh,
		})
	}

	if len(foundKeywords) >= keywordThreshold {
		confidence += keywordBoost
		reasons = append(reasons, models.Reason{
			Type:        models.ReasonWarning,
			Title:       "High density of AI-associated vocabulary",
			Description: fmt.Sprintf("%d terms commonly over-represented in generated prose", len(foundKeywords)),
			Impact:      models.ImpactHigh,
		})
	}

	if len(foundTransitions) >= transitionThreshold {
		confidence += transitionBoost
		reasons = append(reasons, models.Reason{
			Type:        models.ReasonInfo,
			Title:       "Formal transition words",
			Description: fmt.Sprintf("Frequent discourse connectives: %s", strings.Join(foundTransitions, ", ")),
			Impact:      models.ImpactMedium,
		})
	}

	// The numeric threshold alone decides the verdict; individual rules
	// only contribute through the score.
	isAI := confidence >= aiVerdictThreshold

	if confidence > maxConfidence {
		confidence = maxConfidence
	} else if confidence < minConfidence {
		confidence = minConfidence
	}

	// Confidence reports certainty in the displayed verdict, so the
	// human-written branch inverts the AI-likelihood score.
	if !isAI {
		confidence = 100 - confidence
	}

	// Highlight order: keywords, then patterns, then transitions.
	matched := make([]string, 0, len(foundKeywords)+len(foundPatterns)+len(foundTransitions))
	matched = append(matched, foundKeywords...)
	matched = append(matched, foundPatterns...)
	matched = append(matched, foundTransitions...)

	words := len(strings.Fields(text))
	sentences := countSentences(text)
	stats := models.Statistics{
		TotalWords: words,
		Sentences:  sentences,
	}
	if sentences > 0 {
		stats.AvgSentenceLength = float64(words) / float64(sentences)
	}

	return models.Result{
		IsAI:            isAI,
		Confidence:      confidence,
		HighlightedText: highlightTerms(text, matched),
		Reasons:         reasons,
		Statistics:      stats,
	}
}

// matchTerms returns the entries of terms found in lower, preserving
// list order, one hit per entry. Matching is plain substring search.
func matchTerms(lower string, terms []string) []string {
	var found []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// countSentences splits on runs of sentence punctuation and counts the
// non-empty fragments. Text without terminal punctuation counts as one
// sentence; punctuation-only text counts as zero.
func countSentences(text string) int {
	count := 0
	for _, frag := range sentenceDelims.Split(text, -1) {
		if strings.TrimSpace(frag) != "" {
			count++
		}
	}
	return count
}
