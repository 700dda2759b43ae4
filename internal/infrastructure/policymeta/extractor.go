package policymeta

import (
	"regexp"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// Extractor pulls policy metadata out of declaration-page text with
// regular expressions. Insurance declaration pages are formulaic
// enough that this stays deterministic and model-free.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

var (
	policyNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Policy\s*Number[:\s]+([A-Z]{2,4}[-\s]?\d{4}[-\s]?\d{4,6})`),
		regexp.MustCompile(`(?i)Policy\s*#[:\s]+([A-Z]{2,4}[-\s]?\d{4}[-\s]?\d{4,6})`),
		regexp.MustCompile(`(?i)Policy\s*No\.?[:\s]+([A-Z]{2,4}[-\s]?\d{4}[-\s]?\d{4,6})`),
	}
	policyholderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Named\s+)?Insured[:\s]+([A-Za-z .]+?)(?:\n|Address|$)`),
		regexp.MustCompile(`(?i)Policyholder[:\s]+([A-Za-z .]+?)(?:\n|Address|$)`),
	}
	effectiveDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Effective\s+Date[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Effective[:\s]+(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)Policy\s+Period[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	}
	statePattern = regexp.MustCompile(`(?i)State[:\s]+([A-Za-z ]+?)(?:\n|$)`)

	sectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)SECTION\s+(\d+(?:\.\d+)?)[:\s]`),
		regexp.MustCompile(`(\d+\.\d+)\s+[A-Z][A-Z ]+`),
	}
	pagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Page\s+(\d+)`),
		regexp.MustCompile(`P\.\s*(\d+)`),
	}
)

func (e *Extractor) ExtractPolicy(text, filename string) domain.PolicyMetadata {
	meta := domain.PolicyMetadata{
		PolicyType: detectPolicyType(text, filename),
	}

	if m := firstMatch(policyNumberPatterns, text); m != "" {
		meta.PolicyNumber = m
	}
	if m := firstMatch(policyholderPatterns, text); m != "" {
		meta.Policyholder = m
	}
	if m := firstMatch(effectiveDatePatterns, text); m != "" {
		meta.EffectiveDate = m
	}
	if m := statePattern.FindStringSubmatch(text); m != nil {
		meta.State = strings.TrimSpace(m[1])
	}

	return meta
}

// ExtractSectionAndPage reads section and page markers from one chunk.
// Both are optional; they feed the provenance labels on citations.
func (e *Extractor) ExtractSectionAndPage(chunk string) (section, page string) {
	for _, pattern := range sectionPatterns {
		if m := pattern.FindStringSubmatch(chunk); m != nil {
			section = "Section " + m[1]
			break
		}
	}
	for _, pattern := range pagePatterns {
		if m := pattern.FindStringSubmatch(chunk); m != nil {
			page = "Page " + m[1]
			break
		}
	}
	return section, page
}

func detectPolicyType(text, filename string) string {
	filenameLower := strings.ToLower(filename)
	textLower := strings.ToLower(text)

	switch {
	case strings.Contains(filenameLower, "homeowner") || strings.Contains(textLower, "homeowner"):
		return "homeowners"
	case strings.Contains(filenameLower, "auto") ||
		strings.Contains(textLower, "auto insurance") ||
		strings.Contains(textLower, "personal auto"):
		return "auto"
	case strings.Contains(filenameLower, "commercial") || strings.Contains(textLower, "commercial property"):
		return "commercial"
	case strings.Contains(filenameLower, "umbrella") || strings.Contains(textLower, "umbrella"):
		return "umbrella"
	case strings.Contains(filenameLower, "renter") || strings.Contains(textLower, "renter"):
		return "renters"
	default:
		return ""
	}
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
