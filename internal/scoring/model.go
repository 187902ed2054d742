package scoring

// ModelTier is the cost/quality class chosen for a model call.
type ModelTier string

const (
	// TierSkip means the article does not justify any model spend.
	TierSkip ModelTier = "skip"
	// TierCheap routes the call to the low-cost model.
	TierCheap ModelTier = "cheap"
	// TierPremium routes the call to the high-quality model.
	TierPremium ModelTier = "premium"
)

// SelectModelTier maps a meta score to the evaluation tier.
func SelectModelTier(metaScore int) ModelTier {
	switch {
	case metaScore >= 35:
		return TierPremium
	case metaScore >= 20:
		return TierCheap
	default:
		return TierSkip
	}
}

// GenerationTier picks the tier for content generation from the full
// evaluation score, not the meta score. A marginal meta-score article that
// evaluates highly still gets the premium generation pass.
func GenerationTier(evaluationScore float64) ModelTier {
	if evaluationScore >= 35 {
		return TierPremium
	}
	return TierCheap
}
