package ports

import (
	"context"
	"io"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SavePolicyMetadata(ctx context.Context, id string, meta domain.PolicyMetadata) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// MetadataExtractor derives policy metadata from extracted text.
type MetadataExtractor interface {
	ExtractPolicy(text, filename string) domain.PolicyMetadata
	ExtractSectionAndPage(chunk string) (section, page string)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// LexicalIndex is the inverted-index side of hybrid retrieval. Search
// scores are BM25-style ranks: non-negative and unbounded.
type LexicalIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.RetrievedChunk) error
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// VectorIndex is the embedding side of hybrid retrieval. Search scores
// are similarity values, higher is closer.
type VectorIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.RetrievedChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// AnswerGenerator produces draft answers from an assembled prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// FaithfulnessVerifier checks whether a draft answer is supported by the
// retrieved context. Kept narrow so tests can stub it and so its
// unavailability can degrade confidence instead of failing the query.
type FaithfulnessVerifier interface {
	Verify(ctx context.Context, answer, context string) (float64, error)
}
