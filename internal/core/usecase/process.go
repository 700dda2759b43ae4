package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into searchable
// chunks: extract text, derive policy metadata, split, embed, and write
// both the lexical and the vector index. A document is only marked
// ready once both indexes accepted its chunks.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	metadata  ports.MetadataExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	lexical   ports.LexicalIndex
	vector    ports.VectorIndex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	metadata ports.MetadataExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		metadata:  metadata,
		chunker:   chunker,
		embedder:  embedder,
		lexical:   lexical,
		vector:    vector,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return err
	}

	meta := uc.metadata.ExtractPolicy(text, doc.Filename)
	doc.Policy = meta
	if err := uc.repo.SavePolicyMetadata(ctx, doc.ID, meta); err != nil {
		return fmt.Errorf("save policy metadata: %w", err)
	}

	chunks, err := uc.chunk(text)
	if err != nil {
		return err
	}
	retrieved := uc.buildChunks(doc, chunks)

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return err
	}
	if len(vectors) != len(retrieved) {
		return domain.WrapError(domain.ErrInvalidInput, "embed chunks",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(retrieved)))
	}

	if err := uc.lexical.IndexChunks(ctx, doc, retrieved); err != nil {
		return fmt.Errorf("index chunks (lexical): %w", err)
	}
	if err := uc.vector.IndexChunks(ctx, doc, retrieved, vectors); err != nil {
		return fmt.Errorf("index chunks (vector): %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

// buildChunks attaches identity, category and per-chunk section/page
// metadata. Chunk ids are stable uuids minted here; both indexes store
// the same id so fusion can union hits across them.
func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, chunks []string) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for i, text := range chunks {
		section, page := uc.metadata.ExtractSectionAndPage(text)
		out = append(out, domain.RetrievedChunk{
			ChunkID:    uuid.NewString(),
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Category:   doc.Category,
			Policy:     doc.Policy,
			Section:    section,
			Page:       page,
			Ordinal:    i,
			Text:       text,
		})
	}
	return out
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, cause error) error {
	return uc.markStatus(ctx, documentID, domain.StatusFailed, cause.Error())
}
