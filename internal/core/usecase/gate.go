package usecase

import "github.com/insuright/policy-rag/internal/core/domain"

// checkRetrievalQuality is the hard circuit breaker before generation:
// if the best candidate in the top-k window scores below the minimum
// relevance threshold, the generator must not be invoked at all.
func checkRetrievalQuality(cands []domain.FusedCandidate, topK int, minScore float64) (ok bool, topScore float64) {
	if len(cands) == 0 {
		return false, 0
	}
	if topK <= 0 || topK > len(cands) {
		topK = len(cands)
	}
	for _, c := range cands[:topK] {
		if s := c.Boosted(); s > topScore {
			topScore = s
		}
	}
	return topScore >= minScore, topScore
}
