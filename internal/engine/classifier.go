// Package engine implements the core classification engine: the ordered
// fallback between rule lookup, smart cross-referencing, fuzzy similarity and
// pre-computed suggestions, plus batch orchestration and override learning.
package engine

import (
	"context"

	"github.com/oakmere/nominal/internal/match"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/rules"
	"github.com/oakmere/nominal/internal/service"
)

// DefaultThreshold is the minimum confidence required to auto-code.
const DefaultThreshold = 0.70

// SuggestionCap bounds the confidence of any external suggestion so a
// pre-computed hint can never outrank manual or exact-match evidence.
const SuggestionCap = 0.90

// stage is one matcher in the fallback chain. Stages are consulted in order;
// the first stage to produce a candidate decides the transaction.
type stage func(ctx context.Context, txn *model.Transaction) []model.MatchCandidate

// Classifier decides each transaction's fate against a frozen rule snapshot.
// It holds no mutable state, so one classifier may serve many goroutines and
// re-running a batch against the same snapshot yields identical results.
type Classifier struct {
	snapshot  *rules.Snapshot
	smart     *match.SmartMatcher
	fuzzy     *match.FuzzyMatcher
	suggester service.Suggester
	stages    []stage
	threshold float64
}

// NewClassifier builds the fallback chain. The smart matcher and suggester
// are optional; the classifier functions with rule lookup and fuzzy matching
// alone.
func NewClassifier(snapshot *rules.Snapshot, smart *match.SmartMatcher, fuzzy *match.FuzzyMatcher, suggester service.Suggester, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if fuzzy == nil {
		fuzzy = match.NewFuzzyMatcher()
	}

	c := &Classifier{
		snapshot:  snapshot,
		smart:     smart,
		fuzzy:     fuzzy,
		suggester: suggester,
		threshold: threshold,
	}
	c.stages = []stage{
		c.ruleStage,
		c.smartStage,
		c.fuzzyStage,
	}
	return c
}

// Classify runs the fallback chain for one transaction and returns a tagged
// outcome. Ambiguity is a first-class result: a transaction that no stage can
// resolve above the threshold becomes an Exception carrying its best
// candidates, never a guessed code.
func (c *Classifier) Classify(ctx context.Context, txn *model.Transaction) model.Outcome {
	for _, s := range c.stages {
		candidates := s(ctx, txn)
		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]
		for i := 1; i < len(candidates); i++ {
			if candidates[i].Better(&best) {
				best = candidates[i]
			}
		}

		if best.Score < c.threshold {
			return model.Exception{BestCandidates: candidates}
		}
		return model.AutoCoded{
			NominalCode: best.NominalCode,
			RuleID:      best.RuleID,
			Confidence:  best.Score,
		}
	}

	return model.Exception{}
}

// ruleStage consults the active rule for the exact vendor key, any tier.
func (c *Classifier) ruleStage(_ context.Context, txn *model.Transaction) []model.MatchCandidate {
	rule, ok := c.snapshot.Get(txn.NormalizedVendor)
	if !ok {
		return nil
	}
	return []model.MatchCandidate{{
		RuleID:       rule.ID,
		VendorKey:    rule.VendorKey,
		NominalCode:  rule.NominalCode,
		Tier:         rule.Tier,
		Score:        rule.Confidence,
		SupportCount: rule.SupportCount,
	}}
}

// smartStage consults the batch-local cross-reference signal for evidence not
// yet promoted to a rule.
func (c *Classifier) smartStage(_ context.Context, txn *model.Transaction) []model.MatchCandidate {
	if c.smart == nil {
		return nil
	}
	cand, ok := c.smart.Candidate(txn)
	if !ok {
		return nil
	}
	return []model.MatchCandidate{*cand}
}

// fuzzyStage pools approximate vendor-similarity candidates with any
// pre-computed suggestions, the latter capped below exact evidence.
func (c *Classifier) fuzzyStage(ctx context.Context, txn *model.Transaction) []model.MatchCandidate {
	candidates := c.fuzzy.Match(txn.NormalizedVendor, c.snapshot.Rules())

	if c.suggester != nil {
		suggestions, err := c.suggester.Suggest(ctx, *txn)
		if err == nil {
			for _, s := range suggestions {
				s.Tier = model.TierFuzzyMatch
				if s.Score > SuggestionCap {
					s.Score = SuggestionCap
				}
				if s.Score < c.fuzzy.Floor {
					continue
				}
				candidates = append(candidates, s)
			}
		}
	}

	return candidates
}
