// Package match implements the evidence sources used to assign nominal codes:
// exact cross-referencing on (date, amount), historical frequency analysis,
// and approximate vendor-name similarity.
package match

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oakmere/nominal/internal/model"
)

// smartKey joins the two datasets. Amounts are compared by absolute value
// rounded to two decimal places; historical exports carry magnitude plus a
// type flag while bank feeds carry signed values, so signed comparison would
// silently miss every debit.
type smartKey struct {
	date   string
	amount string
}

func keyFor(txn *model.Transaction) smartKey {
	return smartKey{
		date:   txn.Date.Format("2006-01-02"),
		amount: txn.AmountKey(),
	}
}

// SmartMatcher learns exact vendor to nominal-code mappings by
// cross-referencing incoming transactions against an index of historical,
// already-coded transactions sharing the same date and magnitude.
type SmartMatcher struct {
	index map[smartKey][]model.Transaction
}

// NewSmartMatcher builds the historical index. Historical transactions
// without a nominal code are skipped; they carry no evidence.
func NewSmartMatcher(historical []model.Transaction) *SmartMatcher {
	index := make(map[smartKey][]model.Transaction)
	for _, txn := range historical {
		if txn.NominalCode == "" {
			continue
		}
		k := keyFor(&txn)
		index[k] = append(index[k], txn)
	}
	return &SmartMatcher{index: index}
}

// Candidate cross-references a single incoming transaction. It returns no
// candidate when the key is unknown or when the historical entries at the key
// disagree with no majority; ambiguity defers to fuzzy matching or review,
// never to guesswork.
func (m *SmartMatcher) Candidate(txn *model.Transaction) (*model.MatchCandidate, bool) {
	entries := m.index[keyFor(txn)]
	if len(entries) == 0 {
		return nil, false
	}

	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.NominalCode]++
	}

	code, count := majority(counts)
	fraction := float64(count) / float64(len(entries))
	if len(counts) > 1 && fraction <= 0.5 {
		return nil, false
	}

	return &model.MatchCandidate{
		VendorKey:    txn.NormalizedVendor,
		NominalCode:  code,
		Tier:         model.TierSmartMatch,
		Score:        fraction,
		SupportCount: len(entries),
	}, true
}

// LearnRules aggregates smart candidates across the whole incoming set and
// finalizes one rule per vendor key. Many transactions sharing a vendor
// reinforce (or erode) confidence: the rule confidence is the agreement rate
// across occurrences, weighted by each occurrence's historical support.
func (m *SmartMatcher) LearnRules(incoming []model.Transaction, now time.Time) []model.Rule {
	type tally struct {
		codeWeight  map[string]float64
		totalWeight float64
		occurrences int
	}
	tallies := make(map[string]*tally)

	for _, txn := range incoming {
		cand, ok := m.Candidate(&txn)
		if !ok {
			continue
		}
		t := tallies[cand.VendorKey]
		if t == nil {
			t = &tally{codeWeight: make(map[string]float64)}
			tallies[cand.VendorKey] = t
		}
		weight := float64(cand.SupportCount)
		t.codeWeight[cand.NominalCode] += cand.Score * weight
		t.totalWeight += weight
		t.occurrences++
	}

	vendors := make([]string, 0, len(tallies))
	for vendor := range tallies {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	var rules []model.Rule
	for _, vendor := range vendors {
		t := tallies[vendor]
		code, weight := majorityWeight(t.codeWeight)
		confidence := weight / t.totalWeight
		if confidence <= 0.5 {
			// Occurrences disagree across the batch; no rule.
			continue
		}
		rules = append(rules, model.Rule{
			ID:           uuid.NewString(),
			VendorKey:    vendor,
			NominalCode:  code,
			Tier:         model.TierSmartMatch,
			Confidence:   confidence,
			SupportCount: t.occurrences,
			CreatedAt:    now,
			Active:       true,
		})
	}
	return rules
}

// majority returns the most frequent code. Ties break on lexical order so the
// result is deterministic; a true 50/50 split is rejected by the caller's
// fraction check regardless.
func majority(counts map[string]int) (string, int) {
	var bestCode string
	bestCount := -1
	for code, count := range counts {
		if count > bestCount || (count == bestCount && code < bestCode) {
			bestCode, bestCount = code, count
		}
	}
	return bestCode, bestCount
}

func majorityWeight(weights map[string]float64) (string, float64) {
	var bestCode string
	bestWeight := -1.0
	for code, weight := range weights {
		if weight > bestWeight || (weight == bestWeight && code < bestCode) {
			bestCode, bestWeight = code, weight
		}
	}
	return bestCode, bestWeight
}
