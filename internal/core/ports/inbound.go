package ports

import (
	"context"
	"io"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// PolicyQueryService is the inbound contract for the retrieval and
// validation pipeline.
type PolicyQueryService interface {
	Query(ctx context.Context, question string, k int, filter domain.SearchFilter) (*domain.Answer, error)
	CheckCoverage(ctx context.Context, scenario string, filter domain.SearchFilter) (*domain.CoverageAnswer, error)
	ComparePolicies(ctx context.Context, aspect string, policyTypes []string) (*domain.ComparisonAnswer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, category domain.DocumentCategory, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
