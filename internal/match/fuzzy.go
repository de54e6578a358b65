package match

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/oakmere/nominal/internal/model"
)

// Fuzzy matching defaults.
const (
	DefaultTopK  = 5
	DefaultFloor = 0.5
)

// FuzzyMatcher scores approximate similarity between a transaction's vendor
// key and known rule vendor keys, for transactions the smart matcher cannot
// resolve.
type FuzzyMatcher struct {
	TopK  int
	Floor float64
}

// NewFuzzyMatcher creates a fuzzy matcher with default limits.
func NewFuzzyMatcher() *FuzzyMatcher {
	return &FuzzyMatcher{TopK: DefaultTopK, Floor: DefaultFloor}
}

// Similarity returns a normalized edit-distance ratio in [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0.0
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1.0 - float64(distance)/float64(longest)
}

// Match ranks rule vendor keys by similarity to vendorKey and returns the
// top-k candidates at or above the floor. Candidate confidence equals the
// similarity score, so it is monotonic non-decreasing in similarity for a
// fixed candidate pool.
func (m *FuzzyMatcher) Match(vendorKey string, rules []model.Rule) []model.MatchCandidate {
	var candidates []model.MatchCandidate
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		score := Similarity(vendorKey, rule.VendorKey)
		if score < m.Floor {
			continue
		}
		candidates = append(candidates, model.MatchCandidate{
			RuleID:       rule.ID,
			VendorKey:    rule.VendorKey,
			NominalCode:  rule.NominalCode,
			Tier:         model.TierFuzzyMatch,
			Score:        score,
			SupportCount: rule.SupportCount,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].SupportCount != candidates[j].SupportCount {
			return candidates[i].SupportCount > candidates[j].SupportCount
		}
		return candidates[i].VendorKey < candidates[j].VendorKey
	})

	if len(candidates) > m.TopK {
		candidates = candidates[:m.TopK]
	}
	return candidates
}
