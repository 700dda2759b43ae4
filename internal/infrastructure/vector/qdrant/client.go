package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/insuright/policy-rag/internal/core/domain"
	"github.com/insuright/policy-rag/internal/infrastructure/resilience"
)

// Client is the semantic half of hybrid retrieval: chunk vectors live
// in one Qdrant collection with the chunk identity and policy metadata
// in the payload, so hits can be unioned with lexical hits by chunk id.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.RetrievedChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     chunk.ChunkID,
			Vector: vectors[i],
			Payload: map[string]any{
				"chunk_id":      chunk.ChunkID,
				"doc_id":        doc.ID,
				"filename":      doc.Filename,
				"category":      string(doc.Category),
				"policy_type":   doc.Policy.PolicyType,
				"policy_number": doc.Policy.PolicyNumber,
				"section":       chunk.Section,
				"page":          chunk.Page,
				"ordinal":       chunk.Ordinal,
				"text":          chunk.Text,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, "qdrant.upsert", http.MethodPut, url, map[string]any{"points": points}, nil)
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if clauses := filterClauses(filter); len(clauses) > 0 {
		reqBody["filter"] = map[string]any{"must": clauses}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, "qdrant.search", http.MethodPost, url, reqBody, &searchResp); err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RetrievedChunk{
			ChunkID:    payloadString(r.Payload, "chunk_id"),
			DocumentID: payloadString(r.Payload, "doc_id"),
			Filename:   payloadString(r.Payload, "filename"),
			Category:   domain.DocumentCategory(payloadString(r.Payload, "category")),
			Policy: domain.PolicyMetadata{
				PolicyType:   payloadString(r.Payload, "policy_type"),
				PolicyNumber: payloadString(r.Payload, "policy_number"),
			},
			Section: payloadString(r.Payload, "section"),
			Page:    payloadString(r.Payload, "page"),
			Ordinal: payloadInt(r.Payload, "ordinal"),
			Text:    payloadString(r.Payload, "text"),
			Score:   r.Score,
		})
	}
	return out, nil
}

func filterClauses(filter domain.SearchFilter) []map[string]any {
	var clauses []map[string]any
	if filter.PolicyType != "" {
		clauses = append(clauses, map[string]any{
			"key":   "policy_type",
			"match": map[string]any{"value": filter.PolicyType},
		})
	}
	if filter.PolicyNumber != "" {
		clauses = append(clauses, map[string]any{
			"key":   "policy_number",
			"match": map[string]any{"value": filter.PolicyNumber},
		})
	}
	return clauses
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.do(ctx, "qdrant.ensure_collection", http.MethodPut, url, reqBody, nil)
	if err != nil {
		// 409 means the collection already exists.
		var statusErr *httpStatusError
		if asStatusError(err, &statusErr) && statusErr.statusCode == http.StatusConflict {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) do(ctx context.Context, operation, method, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &httpStatusError{
				operation:  operation,
				statusCode: resp.StatusCode,
				status:     resp.Status,
				body:       strings.TrimSpace(string(respBody)),
			}
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Do(ctx, operation, call, classifyQdrantError)
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}
