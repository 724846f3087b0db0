package nli

import (
	"regexp"
	"sort"
)

// Labels assigned by the span recognizer. They pass through into the
// entity map unmodified.
const (
	LabelCardinal = "CARDINAL"
	LabelQuantity = "QUANTITY"
	LabelIPAddr   = "IPADDR"
)

// Span is one recognized region of the raw utterance.
type Span struct {
	Label string
	Text  string
	Start int
	End   int
}

type spanPattern struct {
	label   string
	pattern *regexp.Regexp
}

// defaultSpanPatterns returns the recognizer patterns, most specific first:
// earlier patterns suppress overlapping matches from later ones, so "2 GB"
// is a QUANTITY and never also a CARDINAL.
func defaultSpanPatterns() []spanPattern {
	return []spanPattern{
		{LabelIPAddr, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
		{LabelQuantity, regexp.MustCompile(`(?i)\b\d+\s*(?:[kmgt]i?b|[kmgt])\b`)},
		{LabelCardinal, regexp.MustCompile(`\b\d+\b`)},
	}
}

// Recognizer finds labeled spans (bare numbers, sizes, addresses) in raw
// utterance text.
type Recognizer struct {
	patterns []spanPattern
}

// NewRecognizer creates a recognizer over shared language resources.
func NewRecognizer(res *Resources) *Recognizer {
	return &Recognizer{patterns: res.spanPatterns}
}

// Recognize scans the raw text and returns non-overlapping labeled spans in
// text order.
func (r *Recognizer) Recognize(text string) []Span {
	var spans []Span
	for _, sp := range r.patterns {
		for _, loc := range sp.pattern.FindAllStringIndex(text, -1) {
			if overlaps(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, Span{
				Label: sp.label,
				Text:  text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func overlaps(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && end > s.Start {
			return true
		}
	}
	return false
}
