package domain

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Citation attributes part of the assembled context to its source chunk.
type Citation struct {
	Source       string           `json:"source"`
	Category     DocumentCategory `json:"category"`
	PolicyNumber string           `json:"policy_number,omitempty"`
	Section      string           `json:"section,omitempty"`
	Page         string           `json:"page,omitempty"`
	Snippet      string           `json:"snippet"`
}

// ValidationReport collects the post-generation checks feeding the
// confidence scorer.
type ValidationReport struct {
	RetrievalOK      bool     `json:"retrieval_ok"`
	Faithfulness     float64  `json:"faithfulness"`
	UnverifiedClaims []string `json:"unverified_claims,omitempty"`
	CitationCount    int      `json:"citation_count"`
	// Degraded marks that the faithfulness check was unavailable and
	// its score is the conservative fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// Answer is the only entity crossing the system boundary to the caller.
type Answer struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Level      ConfidenceLevel `json:"level"`
	Citations  []Citation      `json:"citations"`
	Sources    []string        `json:"sources"`
	Disclaimer string          `json:"disclaimer,omitempty"`
	// NoRelevantDocs is set when the retrieval quality gate failed and
	// generation was skipped entirely.
	NoRelevantDocs bool             `json:"no_relevant_docs,omitempty"`
	Validation     ValidationReport `json:"validation"`
}

// ExclusionCheck records one policy exclusion evaluated during a
// coverage determination.
type ExclusionCheck struct {
	Section     string `json:"section"`
	Description string `json:"description"`
	Applies     bool   `json:"applies"`
}

// CoverageAnswer is the structured result of a coverage check. It reuses
// the full answer pipeline; the generation prompt is reframed as a
// yes/no claim-scenario analysis.
type CoverageAnswer struct {
	Scenario      string           `json:"scenario"`
	Covered       bool             `json:"covered"`
	Determination string           `json:"determination"`
	PolicySection string           `json:"policy_section,omitempty"`
	CoverageLimit string           `json:"coverage_limit,omitempty"`
	Deductible    string           `json:"deductible,omitempty"`
	Exclusions    []ExclusionCheck `json:"exclusions_checked,omitempty"`
	Conditions    string           `json:"conditions,omitempty"`
	Answer        Answer           `json:"answer"`
}

// ComparisonItem is one policy's value for the compared aspect.
type ComparisonItem struct {
	PolicyType   string `json:"policy_type"`
	PolicyNumber string `json:"policy_number,omitempty"`
	Value        string `json:"value"`
	Section      string `json:"section,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// ComparisonAnswer merges per-policy pipeline runs into one comparison.
type ComparisonAnswer struct {
	Aspect    string           `json:"aspect"`
	Items     []ComparisonItem `json:"items"`
	Summary   string           `json:"summary"`
	Citations []Citation       `json:"citations"`
	Sources   []string         `json:"sources"`
}
