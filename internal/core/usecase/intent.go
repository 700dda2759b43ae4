package usecase

import (
	"regexp"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// defaultPersonalMarkers flag a query as asking about the user's own
// policy rather than insurance in general.
var defaultPersonalMarkers = []string{
	"my",
	"mine",
	"am i",
	"do i",
	"do i have",
	"does my",
	"is my",
	"will my",
	"i am",
	"i have",
	"under my",
	"in my policy",
	"my coverage",
}

// IntentDetector classifies a query as personal or general from a
// marker set. Markers match on whole-word boundaries, so "my" never
// fires inside "mystery". Pure function of the query text.
type IntentDetector struct {
	markers []*regexp.Regexp
}

// NewIntentDetector compiles the marker set; an empty set selects the
// built-in markers.
func NewIntentDetector(markers []string) *IntentDetector {
	if len(markers) == 0 {
		markers = defaultPersonalMarkers
	}
	compiled := make([]*regexp.Regexp, 0, len(markers))
	for _, marker := range markers {
		marker = strings.TrimSpace(strings.ToLower(marker))
		if marker == "" {
			continue
		}
		compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(marker)+`\b`))
	}
	return &IntentDetector{markers: compiled}
}

func (d *IntentDetector) Detect(query string) domain.QueryIntent {
	for _, marker := range d.markers {
		if marker.MatchString(query) {
			return domain.IntentPersonal
		}
	}
	return domain.IntentGeneral
}
