package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/insuright/policy-rag/internal/config"
	"github.com/insuright/policy-rag/internal/core/domain"
)

type queryFake struct {
	answer     *domain.Answer
	coverage   *domain.CoverageAnswer
	comparison *domain.ComparisonAnswer
	err        error

	gotQuestion string
	gotScenario string
	gotK        int
	gotFilter   domain.SearchFilter
	gotAspect   string
	gotTypes    []string
}

func (f *queryFake) Query(_ context.Context, question string, k int, filter domain.SearchFilter) (*domain.Answer, error) {
	f.gotQuestion = question
	f.gotK = k
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &domain.Answer{Text: "ok", Level: domain.ConfidenceHigh}, nil
}

func (f *queryFake) CheckCoverage(_ context.Context, scenario string, filter domain.SearchFilter) (*domain.CoverageAnswer, error) {
	f.gotScenario = scenario
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	if f.coverage != nil {
		return f.coverage, nil
	}
	return &domain.CoverageAnswer{Scenario: scenario, Covered: true}, nil
}

func (f *queryFake) ComparePolicies(_ context.Context, aspect string, policyTypes []string) (*domain.ComparisonAnswer, error) {
	f.gotAspect = aspect
	f.gotTypes = policyTypes
	if f.err != nil {
		return nil, f.err
	}
	if f.comparison != nil {
		return f.comparison, nil
	}
	return &domain.ComparisonAnswer{Aspect: aspect, Summary: "ok"}, nil
}

type ingestFake struct {
	doc *domain.Document
	err error

	gotFilename string
	gotMimeType string
	gotCategory domain.DocumentCategory
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, category domain.DocumentCategory, body io.Reader) (*domain.Document, error) {
	f.gotFilename = filename
	f.gotMimeType = mimeType
	f.gotCategory = category
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: "doc-1", Filename: filename, Category: category, Status: domain.StatusUploaded}, nil
}

type docsFake struct {
	doc *domain.Document
	err error
}

func (f *docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: "doc-1", Status: domain.StatusReady}, nil
}

func newTestHandler(cfg config.Config, ingest *ingestFake, query *queryFake, docs *docsFake) http.Handler {
	if ingest == nil {
		ingest = &ingestFake{}
	}
	if query == nil {
		query = &queryFake{}
	}
	if docs == nil {
		docs = &docsFake{}
	}
	return NewRouter(cfg, ingest, query, docs).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnswerQuerySuccess(t *testing.T) {
	query := &queryFake{answer: &domain.Answer{
		Text:       "Your deductible is $1,500.",
		Confidence: 0.91,
		Level:      domain.ConfidenceHigh,
		Sources:    []string{"policy.pdf"},
	}}
	handler := newTestHandler(config.Config{}, nil, query, nil)

	res := postJSON(t, handler, "/v1/query", map[string]any{
		"question":    "What is my deductible?",
		"k":           4,
		"policy_type": "homeowners",
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if query.gotQuestion != "What is my deductible?" || query.gotK != 4 {
		t.Errorf("question/k not passed through: %q %d", query.gotQuestion, query.gotK)
	}
	if query.gotFilter.PolicyType != "homeowners" {
		t.Errorf("filter.PolicyType = %q, want homeowners", query.gotFilter.PolicyType)
	}

	var resp domain.Answer
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "Your deductible is $1,500." || resp.Level != domain.ConfidenceHigh {
		t.Errorf("unexpected answer payload: %+v", resp)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestAnswerQueryRequiresQuestion(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)
	res := postJSON(t, handler, "/v1/query", map[string]any{"question": "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnswerQueryMapsErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid input",
			err:  domain.WrapError(domain.ErrInvalidInput, "query", errors.New("bad query")),
			want: http.StatusBadRequest,
		},
		{
			name: "index unavailable",
			err:  domain.WrapError(domain.ErrIndexUnavailable, "lexical search", errors.New("connection refused")),
			want: http.StatusBadGateway,
		},
		{
			name: "generation failed",
			err:  domain.WrapError(domain.ErrGenerationFailed, "generate", errors.New("model timeout")),
			want: http.StatusBadGateway,
		},
		{
			name: "temporary",
			err:  domain.WrapError(domain.ErrTemporary, "generate", errors.New("circuit open")),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(config.Config{}, nil, &queryFake{err: tc.err}, nil)
			res := postJSON(t, handler, "/v1/query", map[string]any{"question": "q"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestCheckCoverageEndpoint(t *testing.T) {
	query := &queryFake{coverage: &domain.CoverageAnswer{
		Scenario:      "burst pipe flooded the kitchen",
		Covered:       true,
		Determination: "Covered under Section 4.",
		Deductible:    "$1,500",
	}}
	handler := newTestHandler(config.Config{}, nil, query, nil)

	res := postJSON(t, handler, "/v1/coverage-check", map[string]any{
		"scenario":      "burst pipe flooded the kitchen",
		"policy_number": "HO-2024-001234",
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if query.gotFilter.PolicyNumber != "HO-2024-001234" {
		t.Errorf("filter.PolicyNumber = %q", query.gotFilter.PolicyNumber)
	}

	var resp domain.CoverageAnswer
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Covered || resp.Deductible != "$1,500" {
		t.Errorf("unexpected coverage payload: %+v", resp)
	}
}

func TestCheckCoverageRequiresScenario(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)
	res := postJSON(t, handler, "/v1/coverage-check", map[string]any{"scenario": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestComparePoliciesEndpoint(t *testing.T) {
	query := &queryFake{}
	handler := newTestHandler(config.Config{}, nil, query, nil)

	res := postJSON(t, handler, "/v1/policies/compare", map[string]any{
		"aspect":       "deductible",
		"policy_types": []string{"homeowners", "auto"},
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if query.gotAspect != "deductible" {
		t.Errorf("aspect = %q", query.gotAspect)
	}
	if len(query.gotTypes) != 2 || query.gotTypes[0] != "homeowners" || query.gotTypes[1] != "auto" {
		t.Errorf("policy types = %v", query.gotTypes)
	}
}

func TestComparePoliciesPropagatesInvalidInput(t *testing.T) {
	query := &queryFake{err: domain.WrapError(domain.ErrInvalidInput, "compare", errors.New("need at least two policy types"))}
	handler := newTestHandler(config.Config{}, nil, query, nil)

	res := postJSON(t, handler, "/v1/policies/compare", map[string]any{
		"aspect":       "deductible",
		"policy_types": []string{"homeowners"},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
