package usecase

import (
	"regexp"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// degradedFaithfulness is the conservative score assumed when the
// faithfulness check is unavailable. The answer still reaches the user,
// with confidence computed from this fallback instead of the query
// failing outright.
const degradedFaithfulness = 0.5

var (
	currencyPattern = regexp.MustCompile(`[$₹€£]\s?[\d,]+(?:\.\d{1,2})?`)
	percentPattern  = regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)
	// Policy-number shaped codes, e.g. HO-2024-001234.
	policyCodePattern = regexp.MustCompile(`[A-Z]{2,4}[-\s]?\d{4}[-\s]?\d{4,6}`)
)

// verifyNumericClaims extracts currency amounts, percentages and
// policy-number-like codes from the draft answer and checks each for a
// textual match in the assembled context. Purely deterministic; the
// last line of defense against fabricated figures.
func verifyNumericClaims(answer, context string) []string {
	normalizedContext := normalizeNumericText(context)

	var unverified []string
	seen := make(map[string]struct{})

	check := func(tokens []string) {
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			if !strings.Contains(normalizedContext, normalizeNumericText(token)) {
				unverified = append(unverified, token)
			}
		}
	}

	check(currencyPattern.FindAllString(answer, -1))
	check(percentPattern.FindAllString(answer, -1))
	check(policyCodePattern.FindAllString(answer, -1))

	return unverified
}

// normalizeNumericText strips currency symbols, thousand separators and
// spacing so "$1,500" in the answer matches "$ 1500" in the context.
func normalizeNumericText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '$', '₹', '€', '£', ',', ' ', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// scoreConfidence combines the validation signals into one scalar and a
// discrete level. Each unverified numeric claim subtracts a fixed
// penalty, floored at zero.
func scoreConfidence(report domain.ValidationReport, contextChunks int, s Settings) (float64, domain.ConfidenceLevel) {
	retrieval := 0.0
	if report.RetrievalOK {
		retrieval = 1.0
	}

	coverage := 0.0
	if contextChunks > 0 {
		coverage = float64(report.CitationCount) / float64(contextChunks)
		if coverage > 1.0 {
			coverage = 1.0
		}
	}

	confidence := s.RetrievalWeight*retrieval +
		s.FaithfulnessWeight*report.Faithfulness +
		s.CitationWeight*coverage

	confidence -= float64(len(report.UnverifiedClaims)) * s.ClaimPenalty
	if confidence < 0 {
		confidence = 0
	}

	switch {
	case confidence >= s.ConfidenceHigh:
		return confidence, domain.ConfidenceHigh
	case confidence >= s.ConfidenceLow:
		return confidence, domain.ConfidenceMedium
	default:
		return confidence, domain.ConfidenceLow
	}
}

const lowConfidenceDisclaimer = "This answer has low confidence. Please verify against your actual policy documents or contact your insurance provider."

// assembleAnswer builds the final response entity. Pure construction:
// nothing upstream is mutated.
func assembleAnswer(text string, citations []domain.Citation, confidence float64, level domain.ConfidenceLevel, report domain.ValidationReport) *domain.Answer {
	answer := &domain.Answer{
		Text:       text,
		Confidence: confidence,
		Level:      level,
		Citations:  citations,
		Sources:    uniqueSources(citations),
		Validation: report,
	}
	if level == domain.ConfidenceLow {
		answer.Disclaimer = lowConfidenceDisclaimer
	}
	return answer
}
