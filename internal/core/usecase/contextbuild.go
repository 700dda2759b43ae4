package usecase

import (
	"fmt"
	"strings"

	"github.com/insuright/policy-rag/internal/core/domain"
)

// assembleContext formats the gated candidate set into the generation
// context. Personal-policy chunks come first, then general knowledge,
// preserving fused-score order within each group; each chunk's text is
// truncated to the character budget. The output is deterministic for a
// given candidate list and budget.
func assembleContext(cands []domain.FusedCandidate, charBudget int) (string, []domain.Citation) {
	var personal, general []domain.FusedCandidate
	for _, c := range cands {
		if c.Chunk.Category == domain.CategoryPersonalPolicy {
			personal = append(personal, c)
		} else {
			general = append(general, c)
		}
	}

	var b strings.Builder
	citations := make([]domain.Citation, 0, len(cands))

	if len(personal) > 0 {
		b.WriteString("PERSONAL POLICY DOCUMENTS (the user's actual coverage)\n")
		for i, c := range personal {
			writeContextEntry(&b, i+1, "Personal Policy", c.Chunk, charBudget)
			citations = append(citations, citationFor(c.Chunk))
		}
	}
	if len(general) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("GENERAL INSURANCE GUIDES (educational reference only)\n")
		for i, c := range general {
			writeContextEntry(&b, i+1, "General Guide", c.Chunk, charBudget)
			citations = append(citations, citationFor(c.Chunk))
		}
	}

	return b.String(), citations
}

func writeContextEntry(b *strings.Builder, n int, label string, chunk domain.RetrievedChunk, charBudget int) {
	parts := []string{fmt.Sprintf("Source: %s", chunk.Filename)}
	if chunk.Policy.PolicyNumber != "" {
		parts = append(parts, fmt.Sprintf("Policy #: %s", chunk.Policy.PolicyNumber))
	}
	if chunk.Policy.PolicyType != "" {
		parts = append(parts, fmt.Sprintf("Type: %s", chunk.Policy.PolicyType))
	}
	if chunk.Section != "" {
		parts = append(parts, chunk.Section)
	}
	if chunk.Page != "" {
		parts = append(parts, chunk.Page)
	}

	b.WriteString(fmt.Sprintf("\n--- %s %d [%s] ---\n", label, n, strings.Join(parts, ", ")))
	b.WriteString(truncateRunes(chunk.Text, charBudget))
	b.WriteString("\n")
}

func citationFor(chunk domain.RetrievedChunk) domain.Citation {
	return domain.Citation{
		Source:       chunk.Filename,
		Category:     chunk.Category,
		PolicyNumber: chunk.Policy.PolicyNumber,
		Section:      chunk.Section,
		Page:         chunk.Page,
		Snippet:      truncateRunes(chunk.Text, 200),
	}
}

// uniqueSources extracts source filenames preserving citation order.
func uniqueSources(citations []domain.Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		if c.Source == "" {
			continue
		}
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		out = append(out, c.Source)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
