package usecase

import "github.com/insuright/policy-rag/internal/core/domain"

// applyPersonalBoost multiplies personal-policy candidates by the boost
// factor when the query has personal intent, then re-sorts. The boost
// is assigned, not accumulated: the effective score is always recomputed
// from the pre-boost fused score, so applying the booster twice yields
// the same ranking as applying it once.
func applyPersonalBoost(cands []domain.FusedCandidate, intent domain.QueryIntent, boost float64) []domain.FusedCandidate {
	if intent != domain.IntentPersonal || boost <= 1.0 {
		return cands
	}

	boosted := false
	for i := range cands {
		if cands[i].Chunk.Category == domain.CategoryPersonalPolicy {
			cands[i].Boost = boost
			boosted = true
		} else {
			cands[i].Boost = 1.0
		}
	}
	if !boosted {
		return cands
	}

	sortCandidates(cands)
	return cands
}
