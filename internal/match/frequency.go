package match

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oakmere/nominal/internal/model"
)

// DefaultMinRuleConfidence is the floor a vendor's historical agreement rate
// must reach before the frequency learner emits a rule for it.
const DefaultMinRuleConfidence = 0.75

// LearnFrequencyRules derives fuzzy-tier rules from historical data alone:
// for each vendor key, the most common nominal code with its agreement rate
// as confidence. This pass needs no incoming batch, so a workspace with only
// historical data still gets a usable rule set.
func LearnFrequencyRules(historical []model.Transaction, minConfidence float64, now time.Time) []model.Rule {
	type tally struct {
		codes map[string]int
		total int
	}
	tallies := make(map[string]*tally)

	for _, txn := range historical {
		if txn.NominalCode == "" || txn.NormalizedVendor == "" {
			continue
		}
		t := tallies[txn.NormalizedVendor]
		if t == nil {
			t = &tally{codes: make(map[string]int)}
			tallies[txn.NormalizedVendor] = t
		}
		t.codes[txn.NominalCode]++
		t.total++
	}

	vendors := make([]string, 0, len(tallies))
	for vendor := range tallies {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	var rules []model.Rule
	for _, vendor := range vendors {
		t := tallies[vendor]
		code, count := majority(t.codes)
		confidence := float64(count) / float64(t.total)
		if confidence < minConfidence {
			continue
		}
		rules = append(rules, model.Rule{
			ID:           uuid.NewString(),
			VendorKey:    vendor,
			NominalCode:  code,
			Tier:         model.TierFuzzyMatch,
			Confidence:   confidence,
			SupportCount: count,
			CreatedAt:    now,
			Active:       true,
		})
	}
	return rules
}
