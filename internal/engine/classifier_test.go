package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmere/nominal/internal/match"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/rules"
	"github.com/oakmere/nominal/internal/testutil"
)

type staticSuggester struct {
	candidates []model.MatchCandidate
}

func (s *staticSuggester) Suggest(_ context.Context, _ model.Transaction) ([]model.MatchCandidate, error) {
	return s.candidates, nil
}

func snapshotOf(t *testing.T, rs ...model.Rule) *rules.Snapshot {
	t.Helper()
	store := rules.NewStore()
	for _, r := range rs {
		store.Upsert(r)
	}
	return store.Snapshot()
}

func learnedRule(id, vendorKey, code string, confidence float64) model.Rule {
	return model.Rule{
		ID:           id,
		VendorKey:    vendorKey,
		NominalCode:  code,
		Tier:         model.TierSmartMatch,
		Confidence:   confidence,
		SupportCount: 2,
		CreatedAt:    time.Now(),
		Active:       true,
	}
}

func TestClassifier_RuleStageDecides(t *testing.T) {
	snap := snapshotOf(t, learnedRule("r1", "tesla", "1210", 0.95))
	c := NewClassifier(snap, nil, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-03-28", "-9.99", "Card 61, Tesla", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	coded, ok := outcome.(model.AutoCoded)
	require.True(t, ok, "expected AutoCoded, got %T", outcome)
	assert.Equal(t, "1210", coded.NominalCode)
	assert.Equal(t, "r1", coded.RuleID)
	assert.InDelta(t, 0.95, coded.Confidence, 1e-9)
}

func TestClassifier_BelowThresholdBecomesException(t *testing.T) {
	// A weak rule still produces candidates, but never a coded outcome.
	snap := snapshotOf(t, learnedRule("r1", "tesla", "1210", 0.55))
	c := NewClassifier(snap, nil, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-03-28", "-9.99", "Tesla", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	exc, ok := outcome.(model.Exception)
	require.True(t, ok, "expected Exception, got %T", outcome)
	require.Len(t, exc.BestCandidates, 1)
	assert.Equal(t, "1210", exc.BestCandidates[0].NominalCode)
	assert.InDelta(t, 0.55, exc.BestCandidates[0].Score, 1e-9)
}

func TestClassifier_SmartStageFallback(t *testing.T) {
	historical := []model.Transaction{
		testutil.Txn("h1", "2024-03-28", "9.99", "TESLA", "1210", model.SourceHistorical),
	}
	smart := match.NewSmartMatcher(historical)
	c := NewClassifier(snapshotOf(t), smart, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-03-28", "-9.99", "Card 61, Tesla", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	coded, ok := outcome.(model.AutoCoded)
	require.True(t, ok, "expected AutoCoded, got %T", outcome)
	assert.Equal(t, "1210", coded.NominalCode)
	assert.InDelta(t, 1.0, coded.Confidence, 1e-9)
}

func TestClassifier_FirstStageWithCandidatesDecides(t *testing.T) {
	// Rule evidence exists, so the smart signal must never be consulted even
	// though it would score higher.
	historical := []model.Transaction{
		testutil.Txn("h1", "2024-03-28", "9.99", "TESLA", "9999", model.SourceHistorical),
	}
	smart := match.NewSmartMatcher(historical)
	snap := snapshotOf(t, learnedRule("r1", "tesla", "1210", 0.80))
	c := NewClassifier(snap, smart, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-03-28", "-9.99", "Tesla", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	coded, ok := outcome.(model.AutoCoded)
	require.True(t, ok)
	assert.Equal(t, "1210", coded.NominalCode)
	assert.InDelta(t, 0.80, coded.Confidence, 1e-9)
}

func TestClassifier_FuzzyStageFallback(t *testing.T) {
	snap := snapshotOf(t, learnedRule("r1", "tesco stores", "5000", 0.9))
	c := NewClassifier(snap, nil, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-04-02", "-12.40", "TESCO STORE", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	coded, ok := outcome.(model.AutoCoded)
	require.True(t, ok, "expected AutoCoded, got %T", outcome)
	assert.Equal(t, "5000", coded.NominalCode)
	assert.Equal(t, "r1", coded.RuleID)
	assert.Greater(t, coded.Confidence, DefaultThreshold)
	assert.Less(t, coded.Confidence, 1.0)
}

func TestClassifier_SuggestionsCappedAndPooled(t *testing.T) {
	suggester := &staticSuggester{candidates: []model.MatchCandidate{
		{VendorKey: "mystery vendor ltd", NominalCode: "7900", Tier: model.TierManual, Score: 0.99},
	}}
	c := NewClassifier(snapshotOf(t), nil, nil, suggester, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-04-02", "-31.00", "Mystery Vendor Ltd", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	coded, ok := outcome.(model.AutoCoded)
	require.True(t, ok, "expected AutoCoded, got %T", outcome)
	assert.Equal(t, "7900", coded.NominalCode)
	assert.InDelta(t, SuggestionCap, coded.Confidence, 1e-9, "suggestion confidence must be capped")
}

func TestClassifier_SuggestionBelowFloorIgnored(t *testing.T) {
	suggester := &staticSuggester{candidates: []model.MatchCandidate{
		{VendorKey: "mystery vendor ltd", NominalCode: "7900", Score: 0.3},
	}}
	c := NewClassifier(snapshotOf(t), nil, nil, suggester, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-04-02", "-31.00", "Mystery Vendor Ltd", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	exc, ok := outcome.(model.Exception)
	require.True(t, ok, "expected Exception, got %T", outcome)
	assert.Empty(t, exc.BestCandidates)
}

func TestClassifier_NoEvidenceIsException(t *testing.T) {
	c := NewClassifier(snapshotOf(t), nil, nil, nil, DefaultThreshold)

	txn := testutil.Txn("t1", "2024-04-02", "-31.00", "Completely Unknown", "", model.SourceIncoming)
	outcome := c.Classify(context.Background(), &txn)

	exc, ok := outcome.(model.Exception)
	require.True(t, ok)
	assert.Empty(t, exc.BestCandidates)
	assert.Equal(t, model.StatusException, outcome.Status())
}

func TestClassifier_IdempotentOverSnapshot(t *testing.T) {
	snap := snapshotOf(t,
		learnedRule("r1", "tesla", "1210", 0.95),
		learnedRule("r2", "tesco stores", "5000", 0.9),
	)
	c := NewClassifier(snap, nil, nil, nil, DefaultThreshold)

	txns := []model.Transaction{
		testutil.Txn("t1", "2024-03-28", "-9.99", "Tesla", "", model.SourceIncoming),
		testutil.Txn("t2", "2024-04-02", "-12.40", "TESCO STORE", "", model.SourceIncoming),
		testutil.Txn("t3", "2024-04-03", "-3.00", "Unknown Vendor", "", model.SourceIncoming),
	}

	for _, txn := range txns {
		first := c.Classify(context.Background(), &txn)
		for i := 0; i < 5; i++ {
			again := c.Classify(context.Background(), &txn)
			require.Equal(t, first, again, "transaction %s", txn.ID)
		}
	}
}
