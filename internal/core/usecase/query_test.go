package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/insuright/policy-rag/internal/core/domain"
)

type embedderFake struct {
	err error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type lexicalFake struct {
	hits    []domain.RetrievedChunk
	err     error
	filters []domain.SearchFilter
}

func (f *lexicalFake) IndexChunks(context.Context, *domain.Document, []domain.RetrievedChunk) error {
	return nil
}

func (f *lexicalFake) Search(_ context.Context, _ string, _ int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return filterHits(f.hits, filter), nil
}

type vectorFake struct {
	hits []domain.RetrievedChunk
	err  error
}

func (f *vectorFake) IndexChunks(context.Context, *domain.Document, []domain.RetrievedChunk, [][]float32) error {
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ []float32, _ int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return filterHits(f.hits, filter), nil
}

func filterHits(hits []domain.RetrievedChunk, filter domain.SearchFilter) []domain.RetrievedChunk {
	if filter.PolicyType == "" && filter.PolicyNumber == "" {
		return hits
	}
	var out []domain.RetrievedChunk
	for _, h := range hits {
		if filter.PolicyType != "" && h.Policy.PolicyType != filter.PolicyType {
			continue
		}
		if filter.PolicyNumber != "" && h.Policy.PolicyNumber != filter.PolicyNumber {
			continue
		}
		out = append(out, h)
	}
	return out
}

type generatorFake struct {
	answer    string
	jsonBody  string
	err       error
	calls     int
	jsonCalls int
	prompts   []string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *generatorFake) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.jsonCalls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.jsonBody, nil
}

type verifierFake struct {
	score float64
	err   error
}

func (f *verifierFake) Verify(context.Context, string, string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func personalChunk(id string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		ChunkID:    id,
		DocumentID: "doc-personal",
		Filename:   "my_policy.pdf",
		Category:   domain.CategoryPersonalPolicy,
		Policy:     domain.PolicyMetadata{PolicyType: "homeowners", PolicyNumber: "HO-2024-001234"},
		Text:       "SECTION 4: The deductible is $1,500 per occurrence.",
		Score:      score,
	}
}

func generalChunk(id string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		ChunkID:    id,
		DocumentID: "doc-guide",
		Filename:   "guide.txt",
		Category:   domain.CategoryGeneralKnowledge,
		Text:       "A deductible is the amount you pay before insurance kicks in.",
		Score:      score,
	}
}

func newTestQueryUseCase(lex *lexicalFake, vec *vectorFake, gen *generatorFake, ver *verifierFake) *QueryUseCase {
	return NewQueryUseCase(
		&embedderFake{},
		lex,
		vec,
		gen,
		ver,
		NewIntentDetector(nil),
		DefaultSettings(),
		testLogger(),
	)
}

func TestQueryHappyPath(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 4.2), generalChunk("g1", 3.0)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.8), generalChunk("g1", 0.7)}}
	gen := &generatorFake{answer: "Your deductible is $1,500 per occurrence."}
	ver := &verifierFake{score: 1.0}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	answer, err := uc.Query(context.Background(), "What is my deductible?", 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.NoRelevantDocs {
		t.Fatal("quality gate should have passed")
	}
	if answer.Level != domain.ConfidenceHigh {
		t.Errorf("level = %s, want high (confidence %f)", answer.Level, answer.Confidence)
	}
	if len(answer.Citations) != 2 {
		t.Errorf("expected 2 citations, got %d", len(answer.Citations))
	}
	if len(answer.Validation.UnverifiedClaims) != 0 {
		t.Errorf("claims should verify against context, got %v", answer.Validation.UnverifiedClaims)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if len(gen.prompts) == 1 && !strings.Contains(gen.prompts[0], "PERSONAL POLICY DOCUMENTS") {
		t.Error("prompt must contain the assembled personal-first context")
	}
}

func TestQueryGateSkipsGenerator(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{generalChunk("g1", 1.0)}}
	// Semantic misses entirely, so the lone hit fuses to the lexical
	// weight 0.5, below the raised threshold.
	vec := &vectorFake{}
	gen := &generatorFake{answer: "should never be called"}
	ver := &verifierFake{score: 1.0}

	settings := DefaultSettings()
	settings.MinRelevance = 0.75

	uc := NewQueryUseCase(&embedderFake{}, lex, vec, gen, ver, NewIntentDetector(nil), settings, testLogger())

	answer, err := uc.Query(context.Background(), "What is a deductible?", 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !answer.NoRelevantDocs {
		t.Fatal("expected a no-relevant-documents answer")
	}
	if gen.calls != 0 || gen.jsonCalls != 0 {
		t.Errorf("generator must not be invoked on gate failure, calls=%d json=%d", gen.calls, gen.jsonCalls)
	}
	if answer.Level != domain.ConfidenceLow {
		t.Errorf("gate failure must report low confidence, got %s", answer.Level)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("gate failure must carry no citations, got %d", len(answer.Citations))
	}
}

func TestQueryPersonalBoostEndToEnd(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.4), generalChunk("g1", 0.9)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.3), generalChunk("g1", 0.9)}}
	gen := &generatorFake{answer: "Your deductible is $1,500."}
	ver := &verifierFake{score: 1.0}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	retrieval, err := uc.retrieve(context.Background(), "What is my deductible?", 6, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if retrieval.Intent != domain.IntentPersonal {
		t.Fatalf("intent = %s, want personal", retrieval.Intent)
	}

	var personal domain.FusedCandidate
	found := false
	for _, c := range retrieval.Candidates {
		if c.Chunk.ChunkID == "p1" {
			personal = c
			found = true
		}
	}
	if !found {
		t.Fatal("personal chunk missing from candidates")
	}
	if personal.Boost <= 1.0 {
		t.Errorf("personal chunk should carry the boost, got %f", personal.Boost)
	}
	if personal.Boosted() <= personal.Score {
		t.Errorf("boosted score %f must exceed pre-boost score %f", personal.Boosted(), personal.Score)
	}
	if retrieval.Candidates[0].Chunk.ChunkID != "g1" {
		t.Errorf("general chunk at 0.9/0.9 should still rank first, got %s", retrieval.Candidates[0].Chunk.ChunkID)
	}
}

func TestQueryIndexUnavailable(t *testing.T) {
	gen := &generatorFake{}

	for name, uc := range map[string]*QueryUseCase{
		"lexical down":  newTestQueryUseCase(&lexicalFake{err: errors.New("connection refused")}, &vectorFake{}, gen, &verifierFake{}),
		"semantic down": newTestQueryUseCase(&lexicalFake{}, &vectorFake{err: errors.New("connection refused")}, gen, &verifierFake{}),
	} {
		_, err := uc.Query(context.Background(), "What is a deductible?", 0, domain.SearchFilter{})
		if !domain.IsKind(err, domain.ErrIndexUnavailable) {
			t.Errorf("%s: expected ErrIndexUnavailable, got %v", name, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator must not run when an index is down, calls=%d", gen.calls)
	}
}

func TestQueryGenerationFailure(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 4.2)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.8)}}
	gen := &generatorFake{err: errors.New("model not loaded")}

	uc := newTestQueryUseCase(lex, vec, gen, &verifierFake{})

	_, err := uc.Query(context.Background(), "What is my deductible?", 0, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestQueryVerifierFailureDegrades(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 4.2)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.8)}}
	gen := &generatorFake{answer: "Your deductible is $1,500."}
	ver := &verifierFake{err: errors.New("verifier timeout")}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	answer, err := uc.Query(context.Background(), "What is my deductible?", 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("verifier failure must not fail the query: %v", err)
	}
	if !answer.Validation.Degraded {
		t.Error("validation report should be marked degraded")
	}
	if answer.Validation.Faithfulness != degradedFaithfulness {
		t.Errorf("faithfulness = %f, want conservative %f", answer.Validation.Faithfulness, degradedFaithfulness)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	uc := newTestQueryUseCase(&lexicalFake{}, &vectorFake{}, &generatorFake{}, &verifierFake{})

	_, err := uc.Query(context.Background(), "   ", 0, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckCoverageParsesStructuredResponse(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 4.2)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.8)}}
	gen := &generatorFake{jsonBody: "```json\n" + `{
		"is_covered": true,
		"determination": "Sudden water discharge is covered under SECTION 4 with a $1,500 deductible.",
		"policy_section": "SECTION 4",
		"coverage_limit": "$250,000",
		"deductible": "$1,500",
		"exclusions_checked": [{"section": "SECTION 8", "description": "flood", "applies": false}],
		"conditions": "Damage must be reported promptly."
	}` + "\n```"}
	ver := &verifierFake{score: 0.9}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	result, err := uc.CheckCoverage(context.Background(), "A pipe burst and flooded the kitchen", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Covered {
		t.Error("expected covered=true")
	}
	if result.PolicySection != "SECTION 4" || result.Deductible != "$1,500" {
		t.Errorf("structured fields not parsed: %+v", result)
	}
	if len(result.Exclusions) != 1 || result.Exclusions[0].Applies {
		t.Errorf("exclusions not parsed: %+v", result.Exclusions)
	}
	if gen.jsonCalls != 1 || gen.calls != 0 {
		t.Errorf("coverage must use the JSON generation path, calls=%d json=%d", gen.calls, gen.jsonCalls)
	}
	if result.Answer.NoRelevantDocs {
		t.Error("gate should have passed")
	}
}

func TestCheckCoverageGateFailure(t *testing.T) {
	gen := &generatorFake{jsonBody: "{}"}
	uc := newTestQueryUseCase(&lexicalFake{}, &vectorFake{}, gen, &verifierFake{})

	result, err := uc.CheckCoverage(context.Background(), "A meteor hit the garage", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Covered {
		t.Error("gate failure must not report coverage")
	}
	if !result.Answer.NoRelevantDocs {
		t.Error("expected no-relevant-documents outcome")
	}
	if gen.jsonCalls != 0 {
		t.Errorf("generator must not run on gate failure, json calls=%d", gen.jsonCalls)
	}
}

func TestCheckCoverageMalformedJSONFallsBack(t *testing.T) {
	lex := &lexicalFake{hits: []domain.RetrievedChunk{personalChunk("p1", 4.2)}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{personalChunk("p1", 0.8)}}
	gen := &generatorFake{jsonBody: "The scenario appears to be covered under SECTION 4."}
	ver := &verifierFake{score: 0.8}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	result, err := uc.CheckCoverage(context.Background(), "A pipe burst", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Determination == "" {
		t.Error("raw generator output should back the determination when JSON parsing fails")
	}
	if result.Covered {
		t.Error("unparsed response must default to covered=false")
	}
}

func TestComparePoliciesPerTypeRetrieval(t *testing.T) {
	home := personalChunk("p1", 4.2)
	auto := personalChunk("p2", 3.8)
	auto.Policy = domain.PolicyMetadata{PolicyType: "auto", PolicyNumber: "AU-2024-567890"}
	auto.Filename = "auto_policy.pdf"
	auto.Text = "Collision deductible: $500."

	lex := &lexicalFake{hits: []domain.RetrievedChunk{home, auto}}
	vec := &vectorFake{hits: []domain.RetrievedChunk{home, auto}}
	gen := &generatorFake{jsonBody: `{
		"items": [
			{"policy_type": "homeowners", "value": "$1,500"},
			{"policy_type": "auto", "value": "$500"}
		],
		"summary": "The homeowners deductible is three times the auto collision deductible."
	}`}
	ver := &verifierFake{score: 1.0}

	uc := newTestQueryUseCase(lex, vec, gen, ver)

	result, err := uc.ComparePolicies(context.Background(), "deductible", []string{"homeowners", "auto"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 comparison items, got %+v", result.Items)
	}
	if result.Summary == "" {
		t.Error("summary missing")
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected sources from both policies, got %v", result.Sources)
	}

	wantFilters := map[string]bool{"homeowners": false, "auto": false}
	for _, f := range lex.filters {
		if _, ok := wantFilters[f.PolicyType]; ok {
			wantFilters[f.PolicyType] = true
		}
	}
	for policyType, seen := range wantFilters {
		if !seen {
			t.Errorf("no filtered retrieval for policy type %s", policyType)
		}
	}
}

func TestComparePoliciesValidatesInput(t *testing.T) {
	uc := newTestQueryUseCase(&lexicalFake{}, &vectorFake{}, &generatorFake{}, &verifierFake{})

	if _, err := uc.ComparePolicies(context.Background(), "", []string{"a", "b"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("empty aspect: expected ErrInvalidInput, got %v", err)
	}
	if _, err := uc.ComparePolicies(context.Background(), "deductible", []string{"auto"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("single policy type: expected ErrInvalidInput, got %v", err)
	}
}
