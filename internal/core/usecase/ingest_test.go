package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/insuright/policy-rag/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.created = doc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.created == nil {
		return nil, domain.ErrDocumentNotFound
	}
	return f.created, nil
}

func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *ingestRepoFake) SavePolicyMetadata(context.Context, string, domain.PolicyMetadata) error {
	return nil
}

type storageFake struct {
	keys []string
	err  error
}

func (f *storageFake) Save(_ context.Context, key string, _ io.Reader) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "My Policy (2024).pdf", "application/pdf",
		domain.CategoryPersonalPolicy, bytes.NewReader([]byte("%PDF-")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.ID == "" {
		t.Error("document id not assigned")
	}
	if doc.Category != domain.CategoryPersonalPolicy {
		t.Errorf("category = %s", doc.Category)
	}
	if doc.Status != domain.StatusUploaded {
		t.Errorf("status = %s", doc.Status)
	}
	if repo.created == nil {
		t.Fatal("document not persisted")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Errorf("ingestion event not published: %v", queue.published)
	}
	if len(storage.keys) != 1 {
		t.Fatalf("object not stored: %v", storage.keys)
	}
	if strings.ContainsAny(storage.keys[0], " ()") {
		t.Errorf("storage key not sanitized: %q", storage.keys[0])
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, &storageFake{}, &queueFake{})

	if _, err := uc.Upload(context.Background(), "", "text/plain",
		domain.CategoryGeneralKnowledge, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("empty filename: expected ErrInvalidInput, got %v", err)
	}

	if _, err := uc.Upload(context.Background(), "policy.txt", "text/plain",
		domain.DocumentCategory("secret"), strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("unknown category: expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadPropagatesFailures(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		uc := NewIngestDocumentUseCase(&ingestRepoFake{}, &storageFake{err: errors.New("disk full")}, &queueFake{})
		if _, err := uc.Upload(context.Background(), "p.txt", "text/plain",
			domain.CategoryGeneralKnowledge, strings.NewReader("x")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("queue failure", func(t *testing.T) {
		uc := NewIngestDocumentUseCase(&ingestRepoFake{}, &storageFake{}, &queueFake{err: errors.New("nats down")})
		if _, err := uc.Upload(context.Background(), "p.txt", "text/plain",
			domain.CategoryGeneralKnowledge, strings.NewReader("x")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My Policy (2024).pdf", "My_Policy__2024_.pdf"},
		{"../../etc/passwd", "passwd"},
		{"guide.txt", "guide.txt"},
		{"", "document"},
	}
	for _, tc := range tests {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
