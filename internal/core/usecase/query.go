package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/core/ports"
)

// QueryUseCase runs the full hybrid retrieval and answer validation
// pipeline: fan-out search, fusion, intent-conditional boost, quality
// gate, context assembly, generation, validation, confidence scoring.
type QueryUseCase struct {
	embedder  ports.Embedder
	lexical   ports.LexicalIndex
	vector    ports.VectorIndex
	generator ports.AnswerGenerator
	verifier  ports.FaithfulnessVerifier
	intents   *IntentDetector
	settings  Settings
	logger    *slog.Logger
}

func NewQueryUseCase(
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	generator ports.AnswerGenerator,
	verifier ports.FaithfulnessVerifier,
	intents *IntentDetector,
	settings Settings,
	logger *slog.Logger,
) *QueryUseCase {
	if intents == nil {
		intents = NewIntentDetector(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		embedder:  embedder,
		lexical:   lexical,
		vector:    vector,
		generator: generator,
		verifier:  verifier,
		intents:   intents,
		settings:  settings.normalize(),
		logger:    logger,
	}
}

func (uc *QueryUseCase) Query(
	ctx context.Context,
	question string,
	k int,
	filter domain.SearchFilter,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", errors.New("empty question"))
	}
	k = uc.clampK(k)

	retrieval, err := uc.retrieve(ctx, question, k, filter)
	if err != nil {
		return nil, err
	}

	if !retrieval.QualityOK {
		uc.logger.InfoContext(ctx, "retrieval quality gate failed",
			"top_score", retrieval.TopScore,
			"min_relevance", uc.settings.MinRelevance,
			"candidates", len(retrieval.Candidates),
		)
		return noRelevantDocsAnswer(), nil
	}

	contextText, citations := assembleContext(retrieval.Candidates, uc.settings.ContextCharBudget)

	draft, err := uc.generator.Generate(ctx, buildQAPrompt(question, contextText))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate answer", err)
	}

	report := uc.validate(ctx, draft, contextText, citations)
	confidence, level := scoreConfidence(report, len(retrieval.Candidates), uc.settings)

	uc.logger.InfoContext(ctx, "query answered",
		"intent", string(retrieval.Intent),
		"candidates", len(retrieval.Candidates),
		"top_score", retrieval.TopScore,
		"faithfulness", report.Faithfulness,
		"unverified_claims", len(report.UnverifiedClaims),
		"confidence", confidence,
		"level", string(level),
	)

	return assembleAnswer(draft, citations, confidence, level, report), nil
}

// retrieve runs the lexical and semantic searches concurrently, then
// fuses, boosts and gates the combined candidate set. A failed index
// branch fails the whole retrieval; no partial answer is produced.
func (uc *QueryUseCase) retrieve(
	ctx context.Context,
	question string,
	k int,
	filter domain.SearchFilter,
) (domain.RetrievalResult, error) {
	fetch := uc.settings.HybridCandidates
	if fetch < k {
		fetch = k
	}

	var (
		wg       sync.WaitGroup
		lexical  []domain.RetrievedChunk
		semantic []domain.RetrievedChunk
		lexErr   error
		semErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		lexical, lexErr = uc.lexical.Search(ctx, question, fetch, filter)
	}()
	go func() {
		defer wg.Done()
		vectorQuery, err := uc.embedder.EmbedQuery(ctx, question)
		if err != nil {
			semErr = fmt.Errorf("embed query: %w", err)
			return
		}
		semantic, semErr = uc.vector.Search(ctx, vectorQuery, fetch, filter)
	}()
	wg.Wait()

	if lexErr != nil {
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", lexErr)
	}
	if semErr != nil {
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrIndexUnavailable, "semantic search", semErr)
	}

	candidates := fuseCandidates(lexical, semantic, uc.settings.LexicalWeight, uc.settings.SemanticWeight)

	intent := uc.intents.Detect(question)
	candidates = applyPersonalBoost(candidates, intent, uc.settings.PersonalBoost)
	candidates = trimCandidates(candidates, k)

	ok, topScore := checkRetrievalQuality(candidates, uc.settings.TopK, uc.settings.MinRelevance)

	return domain.RetrievalResult{
		Candidates: candidates,
		Intent:     intent,
		QualityOK:  ok,
		TopScore:   topScore,
	}, nil
}

// validate runs the post-generation checks. Verifier failures degrade
// the faithfulness score instead of failing the query.
func (uc *QueryUseCase) validate(
	ctx context.Context,
	draft, contextText string,
	citations []domain.Citation,
) domain.ValidationReport {
	report := domain.ValidationReport{
		RetrievalOK:   true,
		CitationCount: len(citations),
	}

	faithfulness, err := uc.verifier.Verify(ctx, draft, contextText)
	if err != nil {
		uc.logger.WarnContext(ctx, "faithfulness check unavailable, degrading confidence", "error", err)
		report.Faithfulness = degradedFaithfulness
		report.Degraded = true
	} else {
		report.Faithfulness = clamp01(faithfulness)
	}

	report.UnverifiedClaims = verifyNumericClaims(draft, contextText)
	return report
}

func (uc *QueryUseCase) clampK(k int) int {
	if k <= 0 {
		return uc.settings.TopK
	}
	if k > uc.settings.MaxK {
		return uc.settings.MaxK
	}
	return k
}

const noRelevantDocsText = "I could not find relevant information in the indexed policy documents to answer this question. Try rephrasing the question, or upload the policy document that covers it."

// noRelevantDocsAnswer is the structured response for a failed quality
// gate. The generator is never consulted for it.
func noRelevantDocsAnswer() *domain.Answer {
	return &domain.Answer{
		Text:           noRelevantDocsText,
		Confidence:     0,
		Level:          domain.ConfidenceLow,
		Citations:      []domain.Citation{},
		Sources:        []string{},
		NoRelevantDocs: true,
		Validation:     domain.ValidationReport{RetrievalOK: false},
	}
}
