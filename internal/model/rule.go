package model

import "time"

// RuleTier indicates the provenance of a rule and its precedence.
type RuleTier string

const (
	// TierManual marks rules created from user overrides. Always wins.
	TierManual RuleTier = "MANUAL"
	// TierSmartMatch marks rules learned by date/amount cross-referencing.
	TierSmartMatch RuleTier = "SMART_MATCH"
	// TierFuzzyMatch marks rules learned from historical frequency or
	// approximate vendor similarity.
	TierFuzzyMatch RuleTier = "FUZZY_MATCH"
)

// Rank returns the precedence of a tier; higher outranks lower.
func (t RuleTier) Rank() int {
	switch t {
	case TierManual:
		return 3
	case TierSmartMatch:
		return 2
	case TierFuzzyMatch:
		return 1
	default:
		return 0
	}
}

// Rule maps a normalized vendor key to a nominal code. At most one rule per
// vendor key is active; superseded rules are archived for audit and never
// consulted during classification.
type Rule struct {
	CreatedAt    time.Time
	LastUsed     time.Time
	ID           string
	VendorKey    string
	NominalCode  string
	Tier         RuleTier
	Confidence   float64
	SupportCount int
	Active       bool
}

// Outranks reports whether r wins the active slot over other. Tier decides
// first, then confidence, then recency.
func (r *Rule) Outranks(other *Rule) bool {
	if r.Tier.Rank() != other.Tier.Rank() {
		return r.Tier.Rank() > other.Tier.Rank()
	}
	if r.Confidence != other.Confidence {
		return r.Confidence > other.Confidence
	}
	return !r.CreatedAt.Before(other.CreatedAt)
}
