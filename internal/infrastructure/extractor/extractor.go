package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/core/ports"
)

// Extractor picks the text extraction strategy from the document's
// mime type and filename. PDF and plain text are supported; anything
// else is rejected as invalid input before the worker wastes a retry.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if isPDF(doc) {
		return e.extractPDF(ctx, doc)
	}
	if isPlaintext(doc) {
		return e.extractPlaintext(ctx, doc)
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "extract",
		fmt.Errorf("unsupported document type %q (%s)", doc.MimeType, doc.Filename))
}

func isPDF(doc *domain.Document) bool {
	if strings.EqualFold(doc.MimeType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}

func isPlaintext(doc *domain.Document) bool {
	if strings.HasPrefix(strings.ToLower(doc.MimeType), "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".txt", ".md", ".text":
		return true
	}
	return false
}
