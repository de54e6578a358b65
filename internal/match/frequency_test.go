package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/testutil"
)

func TestLearnFrequencyRules(t *testing.T) {
	now := time.Now()
	historical := []model.Transaction{
		testutil.Txn("h1", "2024-01-05", "42.50", "NETFLIX", "7502", model.SourceHistorical),
		testutil.Txn("h2", "2024-02-05", "42.50", "NETFLIX", "7502", model.SourceHistorical),
		testutil.Txn("h3", "2024-03-05", "42.50", "NETFLIX", "7502", model.SourceHistorical),
		testutil.Txn("h4", "2024-04-05", "42.50", "NETFLIX", "8200", model.SourceHistorical),
	}

	rules := LearnFrequencyRules(historical, DefaultMinRuleConfidence, now)
	require.Len(t, rules, 1)

	rule := rules[0]
	assert.Equal(t, "netflix", rule.VendorKey)
	assert.Equal(t, "7502", rule.NominalCode)
	assert.Equal(t, model.TierFuzzyMatch, rule.Tier)
	assert.InDelta(t, 0.75, rule.Confidence, 1e-9)
	assert.Equal(t, 3, rule.SupportCount)
	assert.Equal(t, now, rule.CreatedAt)
	assert.True(t, rule.Active)
}

func TestLearnFrequencyRules_BelowFloorDropped(t *testing.T) {
	// Two-of-three agreement is 0.67, under the default floor.
	historical := []model.Transaction{
		testutil.Txn("h1", "2024-01-05", "10.00", "AMAZON", "5000", model.SourceHistorical),
		testutil.Txn("h2", "2024-02-05", "10.00", "AMAZON", "5000", model.SourceHistorical),
		testutil.Txn("h3", "2024-03-05", "10.00", "AMAZON", "7500", model.SourceHistorical),
	}

	rules := LearnFrequencyRules(historical, DefaultMinRuleConfidence, time.Now())
	assert.Empty(t, rules)
}

func TestLearnFrequencyRules_SkipsUncoded(t *testing.T) {
	historical := []model.Transaction{
		{ID: "h1", NormalizedVendor: "acme", Source: model.SourceHistorical},
		{ID: "h2", NominalCode: "5000", Source: model.SourceHistorical},
	}

	rules := LearnFrequencyRules(historical, DefaultMinRuleConfidence, time.Now())
	assert.Empty(t, rules)
}

func TestLearnFrequencyRules_SortedByVendor(t *testing.T) {
	historical := []model.Transaction{
		testutil.Txn("h1", "2024-01-05", "5.00", "ZIPCAR", "7400", model.SourceHistorical),
		testutil.Txn("h2", "2024-01-06", "9.99", "ADOBE", "7502", model.SourceHistorical),
	}

	rules := LearnFrequencyRules(historical, DefaultMinRuleConfidence, time.Now())
	require.Len(t, rules, 2)
	assert.Equal(t, "adobe", rules[0].VendorKey)
	assert.Equal(t, "zipcar", rules[1].VendorKey)
}
