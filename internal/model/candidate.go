package model

// MatchCandidate is a transient scoring result produced by a matcher stage
// and consumed by the classifier. Candidates are never persisted.
type MatchCandidate struct {
	RuleID       string // Empty for batch-local smart signals
	VendorKey    string
	NominalCode  string
	Tier         RuleTier
	Score        float64
	SupportCount int
}

// Better reports whether c should be preferred over other when both cleared
// the same stage. Equal scores fall back to tier precedence, then support.
func (c *MatchCandidate) Better(other *MatchCandidate) bool {
	if c.Score != other.Score {
		return c.Score > other.Score
	}
	if c.Tier.Rank() != other.Tier.Rank() {
		return c.Tier.Rank() > other.Tier.Rank()
	}
	return c.SupportCount > other.SupportCount
}
