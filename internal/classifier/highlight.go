package classifier

import (
	"regexp"
	"sort"
	"strings"
)

// Highlight markers wrapped around matched terms in rendered output.
const (
	MarkStart = "<mark>"
	MarkEnd   = "</mark>"
)

// boundaryMatcher compiles a case-insensitive matcher for term with word
// boundaries around the whole term, so multi-word phrases match as one
// unit. Regex metacharacters in the term are escaped first.
func boundaryMatcher(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

// highlightTerms wraps every word-bounded, case-insensitive occurrence
// of each distinct term in highlight markers, preserving the original
// casing of the text. Matches are resolved positionally before any
// markup is inserted, so each byte of the input is wrapped at most once
// and stripping the markers reproduces the input exactly.
func highlightTerms(text string, terms []string) string {
	if len(terms) == 0 {
		return text
	}

	type span struct{ start, end int }
	var spans []span
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		for _, loc := range boundaryMatcher(term).FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	if len(spans) == 0 {
		return text
	}

	// Earliest match wins; on ties the longer match wins.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(MarkStart)+len(MarkEnd)))
	last := 0
	for _, s := range spans {
		if s.start < last {
			continue // overlaps a span already written
		}
		b.WriteString(text[last:s.start])
		b.WriteString(MarkStart)
		b.WriteString(text[s.start:s.end])
		b.WriteString(MarkEnd)
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// StripHighlights removes all highlight markers, recovering the original
// classified text from a highlighted rendering.
func StripHighlights(highlighted string) string {
	return strings.NewReplacer(MarkStart, "", MarkEnd, "").Replace(highlighted)
}
