package usecase

// Settings carries the pipeline tuning knobs. Values are validated at
// config load time; normalize only guards against zero values from
// hand-built test settings.
type Settings struct {
	LexicalWeight    float64
	SemanticWeight   float64
	HybridCandidates int
	TopK             int
	MaxK             int

	PersonalBoost float64
	MinRelevance  float64

	ContextCharBudget int

	ConfidenceHigh     float64
	ConfidenceLow      float64
	RetrievalWeight    float64
	FaithfulnessWeight float64
	CitationWeight     float64
	ClaimPenalty       float64
}

func DefaultSettings() Settings {
	return Settings{
		LexicalWeight:    0.5,
		SemanticWeight:   0.5,
		HybridCandidates: 12,
		TopK:             6,
		MaxK:             10,

		PersonalBoost: 1.5,
		MinRelevance:  0.5,

		ContextCharBudget: 1000,

		ConfidenceHigh:     0.8,
		ConfidenceLow:      0.6,
		RetrievalWeight:    0.4,
		FaithfulnessWeight: 0.4,
		CitationWeight:     0.2,
		ClaimPenalty:       0.15,
	}
}

func (s Settings) normalize() Settings {
	out := s
	def := DefaultSettings()

	if out.LexicalWeight <= 0 && out.SemanticWeight <= 0 {
		out.LexicalWeight = def.LexicalWeight
		out.SemanticWeight = def.SemanticWeight
	}
	if out.TopK <= 0 {
		out.TopK = def.TopK
	}
	if out.MaxK < out.TopK {
		out.MaxK = out.TopK
	}
	if out.HybridCandidates < out.TopK {
		out.HybridCandidates = out.TopK * 2
	}
	if out.PersonalBoost <= 1.0 {
		out.PersonalBoost = def.PersonalBoost
	}
	if out.ContextCharBudget <= 0 {
		out.ContextCharBudget = def.ContextCharBudget
	}
	if out.ConfidenceHigh <= 0 {
		out.ConfidenceHigh = def.ConfidenceHigh
	}
	if out.ConfidenceLow <= 0 {
		out.ConfidenceLow = def.ConfidenceLow
	}
	if out.RetrievalWeight+out.FaithfulnessWeight+out.CitationWeight <= 0 {
		out.RetrievalWeight = def.RetrievalWeight
		out.FaithfulnessWeight = def.FaithfulnessWeight
		out.CitationWeight = def.CitationWeight
	}
	if out.ClaimPenalty < 0 {
		out.ClaimPenalty = def.ClaimPenalty
	}
	return out
}
