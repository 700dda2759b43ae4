package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

type comparisonResponse struct {
	Items []struct {
		PolicyType   string `json:"policy_type"`
		PolicyNumber string `json:"policy_number"`
		Value        string `json:"value"`
		Section      string `json:"section"`
		Notes        string `json:"notes"`
	} `json:"items"`
	Summary string `json:"summary"`
}

// ComparePolicies retrieves once per policy type with a metadata filter,
// merges the per-policy contexts and citations, and asks the generator
// for a structured comparison. Policy types with no passing candidates
// are reported as not found rather than dropped silently.
func (uc *QueryUseCase) ComparePolicies(
	ctx context.Context,
	aspect string,
	policyTypes []string,
) (*domain.ComparisonAnswer, error) {
	aspect = strings.TrimSpace(aspect)
	if aspect == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare policies", errors.New("empty aspect"))
	}
	if len(policyTypes) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare policies", errors.New("need at least two policy types"))
	}

	var (
		sections  []string
		citations []domain.Citation
		found     []string
		missing   []string
	)

	for _, policyType := range policyTypes {
		policyType = strings.TrimSpace(strings.ToLower(policyType))
		if policyType == "" {
			continue
		}

		retrieval, err := uc.retrieve(ctx, aspect, uc.settings.TopK, domain.SearchFilter{PolicyType: policyType})
		if err != nil {
			return nil, err
		}
		if !retrieval.QualityOK {
			missing = append(missing, policyType)
			continue
		}

		contextText, policyCitations := assembleContext(retrieval.Candidates, uc.settings.ContextCharBudget)
		sections = append(sections, fmt.Sprintf("=== %s policy ===\n%s", policyType, contextText))
		citations = append(citations, policyCitations...)
		found = append(found, policyType)
	}

	if len(found) == 0 {
		return &domain.ComparisonAnswer{
			Aspect:    aspect,
			Items:     []domain.ComparisonItem{},
			Summary:   noRelevantDocsText,
			Citations: []domain.Citation{},
			Sources:   []string{},
		}, nil
	}

	raw, err := uc.generator.GenerateJSON(ctx, buildComparePrompt(aspect, strings.Join(sections, "\n\n"), found))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate comparison", err)
	}

	parsed, parseOK := parseComparisonResponse(raw)
	summary := parsed.Summary
	if summary == "" {
		summary = strings.TrimSpace(raw)
	}
	if !parseOK {
		uc.logger.WarnContext(ctx, "comparison response was not valid JSON, using raw text")
	}

	result := &domain.ComparisonAnswer{
		Aspect:    aspect,
		Items:     []domain.ComparisonItem{},
		Summary:   summary,
		Citations: citations,
		Sources:   uniqueSources(citations),
	}
	for _, item := range parsed.Items {
		result.Items = append(result.Items, domain.ComparisonItem{
			PolicyType:   item.PolicyType,
			PolicyNumber: item.PolicyNumber,
			Value:        item.Value,
			Section:      item.Section,
			Notes:        item.Notes,
		})
	}
	for _, policyType := range missing {
		result.Items = append(result.Items, domain.ComparisonItem{
			PolicyType: policyType,
			Value:      "no matching policy documents indexed",
		})
	}
	return result, nil
}

func parseComparisonResponse(raw string) (comparisonResponse, bool) {
	var parsed comparisonResponse
	object, ok := extractJSONObject(raw)
	if !ok {
		return parsed, false
	}
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return comparisonResponse{}, false
	}
	return parsed, true
}
