package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/insuright/policy-rag/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, category,
	policy_type, policy_number, policyholder, effective_date, state,
	status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, string(doc.Category),
		doc.Policy.PolicyType, doc.Policy.PolicyNumber, doc.Policy.Policyholder,
		doc.Policy.EffectiveDate, doc.Policy.State,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, category,
	policy_type, policy_number, policyholder, effective_date, state,
	status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var category, status string

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &category,
		&doc.Policy.PolicyType, &doc.Policy.PolicyNumber, &doc.Policy.Policyholder,
		&doc.Policy.EffectiveDate, &doc.Policy.State,
		&status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Category = domain.DocumentCategory(category)
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return checkDocumentAffected(result, "update document status", id)
}

func (r *DocumentRepository) SavePolicyMetadata(ctx context.Context, id string, meta domain.PolicyMetadata) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET policy_type = $2, policy_number = $3, policyholder = $4, effective_date = $5, state = $6, updated_at = $7
WHERE id = $1
`, id, meta.PolicyType, meta.PolicyNumber, meta.Policyholder, meta.EffectiveDate, meta.State, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save policy metadata: %w", err)
	}
	return checkDocumentAffected(result, "save policy metadata", id)
}

func checkDocumentAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
