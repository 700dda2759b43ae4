package domain

// SearchFilter narrows retrieval to a policy type and/or policy number.
// Empty fields match everything.
type SearchFilter struct {
	PolicyType   string
	PolicyNumber string
}

// QueryIntent is derived deterministically from the query text.
type QueryIntent string

const (
	IntentGeneral  QueryIntent = "general"
	IntentPersonal QueryIntent = "personal"
)

// RetrievedChunk is a raw hit from one index adapter. Score is in the
// adapter's native range (BM25-style rank or cosine similarity) and is
// only comparable within a single hit list.
type RetrievedChunk struct {
	ChunkID    string           `json:"chunk_id"`
	DocumentID string           `json:"document_id"`
	Filename   string           `json:"filename"`
	Category   DocumentCategory `json:"category"`
	Policy     PolicyMetadata   `json:"policy"`
	Section    string           `json:"section,omitempty"`
	Page       string           `json:"page,omitempty"`
	Ordinal    int              `json:"ordinal"`
	Text       string           `json:"text"`
	Score      float64          `json:"score"`
}

// FusedCandidate carries a chunk through fusion, boosting and gating.
// Score is the normalized fused score in [0,1] before boosting; the
// effective ranking score is Boosted(), which recomputes from Score so
// applying the booster repeatedly cannot compound the multiplier.
type FusedCandidate struct {
	Chunk RetrievedChunk `json:"chunk"`
	Score float64        `json:"score"`
	Boost float64        `json:"boost"`
}

func (c FusedCandidate) Boosted() float64 {
	boost := c.Boost
	if boost <= 0 {
		boost = 1.0
	}
	score := c.Score * boost
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// RetrievalResult is the gated candidate set handed to context assembly.
type RetrievalResult struct {
	Candidates []FusedCandidate
	Intent     QueryIntent
	// QualityOK is false when the best candidate in the top-k window
	// falls below the minimum relevance threshold.
	QualityOK bool
	// TopScore is the maximum boosted score in the top-k window.
	TopScore float64
}
