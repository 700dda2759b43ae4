package usecase

import (
	"fmt"
	"sort"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// fuseCandidates merges a lexical and a semantic hit list into one
// ranked candidate set. Each list is normalized to [0,1] independently
// with the minimum anchored at zero (both adapters produce non-negative
// scores); a chunk missing from one list contributes 0 for that list.
// The fused score is wLex*normLex + wSem*normSem, so it stays in [0,1]
// whenever the weights sum to 1.
func fuseCandidates(lexical, semantic []domain.RetrievedChunk, wLex, wSem float64) []domain.FusedCandidate {
	lexNorm := normalizeScores(lexical)
	semNorm := normalizeScores(semantic)

	type partial struct {
		chunk domain.RetrievedChunk
		lex   float64
		sem   float64
	}

	acc := make(map[string]partial, len(lexical)+len(semantic))
	for i, chunk := range lexical {
		key := chunkKey(chunk)
		p := acc[key]
		p.chunk = preferRicherChunk(p.chunk, chunk)
		p.lex = lexNorm[i]
		acc[key] = p
	}
	for i, chunk := range semantic {
		key := chunkKey(chunk)
		p := acc[key]
		p.chunk = preferRicherChunk(p.chunk, chunk)
		p.sem = semNorm[i]
		acc[key] = p
	}

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, p := range acc {
		out = append(out, domain.FusedCandidate{
			Chunk: p.chunk,
			Score: clamp01(wLex*p.lex + wSem*p.sem),
			Boost: 1.0,
		})
	}

	sortCandidates(out)
	return out
}

// normalizeScores maps a hit list's raw scores onto [0,1]. When every
// score is equal (including a single-hit list) all normalize to 1.0,
// avoiding division by zero. Negative raw scores clamp to zero first.
func normalizeScores(hits []domain.RetrievedChunk) []float64 {
	if len(hits) == 0 {
		return nil
	}

	max := 0.0
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}

	out := make([]float64, len(hits))
	for i, h := range hits {
		if max <= 0 {
			out[i] = 1.0
			continue
		}
		score := h.Score
		if score < 0 {
			score = 0
		}
		out[i] = score / max
	}
	return out
}

// sortCandidates orders by effective score descending, ties broken by
// document id and chunk ordinal so the ranking is a deterministic total
// order.
func sortCandidates(cands []domain.FusedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		bi, bj := cands[i].Boosted(), cands[j].Boosted()
		if bi != bj {
			return bi > bj
		}
		if cands[i].Chunk.DocumentID != cands[j].Chunk.DocumentID {
			return cands[i].Chunk.DocumentID < cands[j].Chunk.DocumentID
		}
		return cands[i].Chunk.Ordinal < cands[j].Chunk.Ordinal
	})
}

func trimCandidates(cands []domain.FusedCandidate, limit int) []domain.FusedCandidate {
	if limit <= 0 || len(cands) <= limit {
		return cands
	}
	return cands[:limit]
}

func chunkKey(chunk domain.RetrievedChunk) string {
	if chunk.ChunkID != "" {
		return chunk.ChunkID
	}
	return fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.Ordinal)
}

func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.ChunkID == "" && current.DocumentID == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Filename == "" && candidate.Filename != "" {
		current.Filename = candidate.Filename
	}
	if current.Category == "" && candidate.Category != "" {
		current.Category = candidate.Category
	}
	if current.Section == "" && candidate.Section != "" {
		current.Section = candidate.Section
	}
	if current.Page == "" && candidate.Page != "" {
		current.Page = candidate.Page
	}
	if current.Policy.PolicyNumber == "" && candidate.Policy.PolicyNumber != "" {
		current.Policy = candidate.Policy
	}
	return current
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
