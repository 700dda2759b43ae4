package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/infrastructure/resilience"
)

// LexicalIndex is the keyword half of hybrid retrieval: chunks are
// stored with a generated tsvector column and searched with
// websearch_to_tsquery, ranked by ts_rank_cd. Rank scores are
// non-negative and unbounded, normalized downstream per result set.
type LexicalIndex struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewLexicalIndex(db *sql.DB, executor *resilience.Executor) *LexicalIndex {
	return &LexicalIndex{db: db, executor: executor}
}

// IndexChunks replaces the document's chunks atomically, so
// re-processing a document cannot leave stale rows behind.
func (x *LexicalIndex) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.RetrievedChunk) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	const insert = `
INSERT INTO chunks (id, document_id, filename, category, policy_type, policy_number, section, page, ordinal, content)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insert,
			chunk.ChunkID, doc.ID, doc.Filename, string(doc.Category),
			doc.Policy.PolicyType, doc.Policy.PolicyNumber,
			chunk.Section, chunk.Page, chunk.Ordinal, chunk.Text,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

func (x *LexicalIndex) Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var hits []domain.RetrievedChunk
	search := func(ctx context.Context) error {
		var err error
		hits, err = x.search(ctx, query, k, filter)
		return err
	}

	if x.executor == nil {
		if err := search(ctx); err != nil {
			return nil, err
		}
		return hits, nil
	}
	if err := x.executor.Do(ctx, "postgres.search", search, classifyPgError); err != nil {
		return nil, err
	}
	return hits, nil
}

func (x *LexicalIndex) search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	sqlQuery := `
SELECT c.id, c.document_id, c.filename, c.category, c.policy_type, c.policy_number,
	c.section, c.page, c.ordinal, c.content,
	ts_rank_cd(c.tsv, q) AS rank
FROM chunks c, websearch_to_tsquery('english', $1) q
WHERE c.tsv @@ q`
	args := []any{query}

	if filter.PolicyType != "" {
		args = append(args, filter.PolicyType)
		sqlQuery += fmt.Sprintf(" AND c.policy_type = $%d", len(args))
	}
	if filter.PolicyNumber != "" {
		args = append(args, filter.PolicyNumber)
		sqlQuery += fmt.Sprintf(" AND c.policy_number = $%d", len(args))
	}

	args = append(args, k)
	sqlQuery += fmt.Sprintf(" ORDER BY rank DESC, c.document_id, c.ordinal LIMIT $%d", len(args))

	rows, err := x.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var chunk domain.RetrievedChunk
		var category string
		if err := rows.Scan(
			&chunk.ChunkID, &chunk.DocumentID, &chunk.Filename, &category,
			&chunk.Policy.PolicyType, &chunk.Policy.PolicyNumber,
			&chunk.Section, &chunk.Page, &chunk.Ordinal, &chunk.Text, &chunk.Score,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		chunk.Category = domain.DocumentCategory(category)
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

// GetChunk reads one chunk back from the store by id.
func (x *LexicalIndex) GetChunk(ctx context.Context, chunkID string) (*domain.RetrievedChunk, error) {
	row := x.db.QueryRowContext(ctx, `
SELECT id, document_id, filename, category, policy_type, policy_number, section, page, ordinal, content
FROM chunks
WHERE id = $1
`, chunkID)

	var chunk domain.RetrievedChunk
	var category string
	err := row.Scan(
		&chunk.ChunkID, &chunk.DocumentID, &chunk.Filename, &category,
		&chunk.Policy.PolicyType, &chunk.Policy.PolicyNumber,
		&chunk.Section, &chunk.Page, &chunk.Ordinal, &chunk.Text,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get chunk", fmt.Errorf("id %s", chunkID))
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	chunk.Category = domain.DocumentCategory(category)
	return &chunk, nil
}

func classifyPgError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{Retryable: false, CountsAsFailure: false}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return resilience.Outcome{Retryable: true, CountsAsFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Outcome{Retryable: true, CountsAsFailure: true}
	}
	return resilience.Outcome{Retryable: false, CountsAsFailure: true}
}
