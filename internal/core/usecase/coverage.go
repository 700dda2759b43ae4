package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// coverageRetrievalTerms widens the retrieval query so exclusion and
// limit clauses rank alongside the granting clause.
const coverageRetrievalTerms = " coverage exclusion limit deductible"

type coverageResponse struct {
	IsCovered     bool   `json:"is_covered"`
	Determination string `json:"determination"`
	PolicySection string `json:"policy_section"`
	CoverageLimit string `json:"coverage_limit"`
	Deductible    string `json:"deductible"`
	Exclusions    []struct {
		Section     string `json:"section"`
		Description string `json:"description"`
		Applies     bool   `json:"applies"`
	} `json:"exclusions_checked"`
	Conditions string `json:"conditions"`
}

// CheckCoverage reframes the query as a claim-scenario coverage
// determination. Same retrieval and validation pipeline, larger
// candidate window, JSON-structured generation.
func (uc *QueryUseCase) CheckCoverage(
	ctx context.Context,
	scenario string,
	filter domain.SearchFilter,
) (*domain.CoverageAnswer, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "check coverage", errors.New("empty scenario"))
	}

	retrieval, err := uc.retrieve(ctx, scenario+coverageRetrievalTerms, uc.settings.MaxK, filter)
	if err != nil {
		return nil, err
	}

	if !retrieval.QualityOK {
		uc.logger.InfoContext(ctx, "coverage check gate failed",
			"top_score", retrieval.TopScore,
			"min_relevance", uc.settings.MinRelevance,
		)
		return &domain.CoverageAnswer{
			Scenario:      scenario,
			Covered:       false,
			Determination: noRelevantDocsText,
			Answer:        *noRelevantDocsAnswer(),
		}, nil
	}

	contextText, citations := assembleContext(retrieval.Candidates, uc.settings.ContextCharBudget)

	raw, err := uc.generator.GenerateJSON(ctx, buildCoveragePrompt(scenario, contextText))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate coverage determination", err)
	}

	parsed, parseOK := parseCoverageResponse(raw)
	determination := parsed.Determination
	if determination == "" {
		determination = strings.TrimSpace(raw)
	}

	report := uc.validate(ctx, determination, contextText, citations)
	confidence, level := scoreConfidence(report, len(retrieval.Candidates), uc.settings)

	if !parseOK {
		uc.logger.WarnContext(ctx, "coverage response was not valid JSON, using raw text")
	}

	answer := assembleAnswer(determination, citations, confidence, level, report)

	result := &domain.CoverageAnswer{
		Scenario:      scenario,
		Covered:       parsed.IsCovered,
		Determination: determination,
		PolicySection: parsed.PolicySection,
		CoverageLimit: parsed.CoverageLimit,
		Deductible:    parsed.Deductible,
		Conditions:    parsed.Conditions,
		Answer:        *answer,
	}
	for _, e := range parsed.Exclusions {
		result.Exclusions = append(result.Exclusions, domain.ExclusionCheck{
			Section:     e.Section,
			Description: e.Description,
			Applies:     e.Applies,
		})
	}
	return result, nil
}

func parseCoverageResponse(raw string) (coverageResponse, bool) {
	var parsed coverageResponse
	object, ok := extractJSONObject(raw)
	if !ok {
		return parsed, false
	}
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return coverageResponse{}, false
	}
	return parsed, true
}
