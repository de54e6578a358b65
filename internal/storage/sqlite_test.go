package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/service"
	"github.com/oakmere/nominal/internal/storage"
	"github.com/oakmere/nominal/internal/testutil"
)

func TestSaveTransactions_Roundtrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txns := []model.Transaction{
		testutil.Txn("t1", "2024-03-28", "-9.99", "Card 61, Tesla", "", model.SourceIncoming),
		testutil.Txn("t2", "2024-03-01", "120.00", "ACME SUPPLIES", "5000", model.SourceHistorical),
	}
	require.NoError(t, db.SaveTransactions(ctx, txns))

	got, err := db.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by date then ID.
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t1", got[1].ID)

	assert.Equal(t, "Card 61, Tesla", got[1].RawDescription)
	assert.Equal(t, "tesla", got[1].NormalizedVendor)
	assert.True(t, got[1].Amount.Equal(txns[0].Amount), "amount must roundtrip exactly")
	assert.Equal(t, model.StatusUnclassified, got[1].Status)
	assert.Equal(t, "5000", got[0].NominalCode)
}

func TestSaveTransactions_ReimportIsHarmless(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txn := testutil.Txn("t1", "2024-03-28", "-9.99", "Tesla", "", model.SourceIncoming)
	require.NoError(t, db.SaveTransactions(ctx, []model.Transaction{txn}))

	// Same statement row under a fresh ID: identical hash, so it is skipped.
	dup := txn
	dup.ID = "t1-again"
	require.NoError(t, db.SaveTransactions(ctx, []model.Transaction{dup}))

	got, err := db.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveTransactions_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	uncoded := testutil.Txn("t1", "2024-03-28", "9.99", "Tesla", "1210", model.SourceHistorical)
	uncoded.NominalCode = ""
	err := db.SaveTransactions(ctx, []model.Transaction{uncoded})
	assert.ErrorIs(t, err, storage.ErrInvalidTransaction)

	assert.Error(t, db.SaveTransactions(ctx, []model.Transaction{}))
}

func TestGetTransactions_Filter(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txns := []model.Transaction{
		testutil.Txn("h1", "2024-03-01", "9.99", "TESLA", "1210", model.SourceHistorical),
		testutil.Txn("i1", "2024-03-02", "-9.99", "Tesla", "", model.SourceIncoming),
		testutil.Txn("i2", "2024-03-03", "-5.00", "Costa", "", model.SourceIncoming),
	}
	require.NoError(t, db.SaveTransactions(ctx, txns))
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "i2", model.Exception{}))

	source := model.SourceIncoming
	incoming, err := db.GetTransactions(ctx, service.TransactionFilter{Source: &source})
	require.NoError(t, err)
	assert.Len(t, incoming, 2)

	status := model.StatusException
	exceptions, err := db.GetTransactions(ctx, service.TransactionFilter{Source: &source, Status: &status})
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "i2", exceptions[0].ID)

	limited, err := db.GetTransactions(ctx, service.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := db.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTransactionOutcome(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txns := []model.Transaction{
		testutil.Txn("t1", "2024-03-01", "-9.99", "Tesla", "", model.SourceIncoming),
		testutil.Txn("t2", "2024-03-02", "-5.00", "Costa", "", model.SourceIncoming),
		testutil.Txn("t3", "2024-03-03", "-7.00", "Pret", "", model.SourceIncoming),
	}
	require.NoError(t, db.SaveTransactions(ctx, txns))

	require.NoError(t, db.UpdateTransactionOutcome(ctx, "t1", model.AutoCoded{
		NominalCode: "1210", RuleID: "r1", Confidence: 0.95,
	}))
	coded, err := db.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAutoCoded, coded.Status)
	assert.Equal(t, "1210", coded.NominalCode)
	assert.Equal(t, "r1", coded.MatchedRuleID)
	assert.InDelta(t, 0.95, coded.Confidence, 1e-9)

	// An exception keeps its best candidate as a review hint, not as a code.
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "t2", model.Exception{
		BestCandidates: []model.MatchCandidate{
			{NominalCode: "7406", Score: 0.62},
		},
	}))
	exc, err := db.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusException, exc.Status)
	assert.Empty(t, exc.NominalCode)
	assert.Equal(t, "7406", exc.SuggestedCode)
	assert.InDelta(t, 0.62, exc.Confidence, 1e-9)

	require.NoError(t, db.UpdateTransactionOutcome(ctx, "t3", model.Overridden{
		NominalCode: "2400", OverrideID: "o1",
	}))
	over, err := db.GetTransactionByID(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverridden, over.Status)
	assert.Equal(t, "2400", over.NominalCode)

	err = db.UpdateTransactionOutcome(ctx, "missing", model.Exception{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTransactionOutcome_ClearsStaleSuggestion(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txn := testutil.Txn("t1", "2024-03-01", "-9.99", "Tesla", "", model.SourceIncoming)
	require.NoError(t, db.SaveTransactions(ctx, []model.Transaction{txn}))

	require.NoError(t, db.UpdateTransactionOutcome(ctx, "t1", model.Exception{
		BestCandidates: []model.MatchCandidate{{NominalCode: "7406", Score: 0.6}},
	}))
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "t1", model.AutoCoded{
		NominalCode: "1210", RuleID: "r1", Confidence: 0.9,
	}))

	got, err := db.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, got.SuggestedCode)
	assert.Equal(t, "1210", got.NominalCode)
}

func TestSaveRule_SingleActiveSlot(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	now := time.Now()
	first := model.Rule{
		ID: "r1", VendorKey: "tesla", NominalCode: "1210",
		Tier: model.TierSmartMatch, Confidence: 0.9, CreatedAt: now, Active: true,
	}
	second := model.Rule{
		ID: "r2", VendorKey: "tesla", NominalCode: "2400",
		Tier: model.TierManual, Confidence: 1.0, CreatedAt: now, Active: true,
	}
	require.NoError(t, db.SaveRule(ctx, &first))
	require.NoError(t, db.SaveRule(ctx, &second))

	active, err := db.GetActiveRule(ctx, "tesla")
	require.NoError(t, err)
	assert.Equal(t, "r2", active.ID)

	all, err := db.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "the old rule must have been displaced")
}

func TestSaveRule_UpdateByID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	rule := model.Rule{
		ID: "r1", VendorKey: "tesla", NominalCode: "1210",
		Tier: model.TierSmartMatch, Confidence: 0.8, SupportCount: 1,
		CreatedAt: time.Now(), Active: true,
	}
	require.NoError(t, db.SaveRule(ctx, &rule))

	rule.Confidence = 0.95
	rule.SupportCount = 4
	require.NoError(t, db.SaveRule(ctx, &rule))

	got, err := db.GetActiveRule(ctx, "tesla")
	require.NoError(t, err)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, 4, got.SupportCount)
}

func TestSaveRule_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	bad := model.Rule{ID: "r1", VendorKey: "tesla", NominalCode: "1210", Tier: "GUESS", Confidence: 0.5}
	assert.ErrorIs(t, db.SaveRule(ctx, &bad), storage.ErrInvalidRule)

	bad = model.Rule{ID: "r1", VendorKey: "tesla", NominalCode: "1210", Tier: model.TierManual, Confidence: 1.5}
	assert.ErrorIs(t, db.SaveRule(ctx, &bad), storage.ErrInvalidRule)
}

func TestArchiveRule(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	rule := model.Rule{
		ID: "r1", VendorKey: "tesla", NominalCode: "1210",
		Tier: model.TierSmartMatch, Confidence: 0.9, CreatedAt: time.Now(), Active: true,
	}
	require.NoError(t, db.SaveRule(ctx, &rule))
	require.NoError(t, db.ArchiveRule(ctx, "r1"))

	_, err := db.GetActiveRule(ctx, "tesla")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, db.ArchiveRule(ctx, "missing"), common.ErrNotFound)
}

func TestTouchRule(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	rule := model.Rule{
		ID: "r1", VendorKey: "tesla", NominalCode: "1210",
		Tier: model.TierSmartMatch, Confidence: 0.9, SupportCount: 2,
		CreatedAt: time.Now(), Active: true,
	}
	require.NoError(t, db.SaveRule(ctx, &rule))

	usedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.TouchRule(ctx, "r1", usedAt))

	got, err := db.GetActiveRule(ctx, "tesla")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SupportCount)
	assert.True(t, got.LastUsed.Equal(usedAt))
}

func TestOverrides_AppendOnlyLog(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	first := model.Override{
		ID: "o1", TransactionID: "t1", PreviousCode: "1210",
		CorrectedCode: "2400", CreatedRuleID: "r1", CreatedAt: base,
	}
	second := model.Override{
		ID: "o2", TransactionID: "t2", CorrectedCode: "2500",
		CreatedRuleID: "r2", CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, db.AppendOverride(ctx, &second))
	require.NoError(t, db.AppendOverride(ctx, &first))

	got, err := db.GetOverrides(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].ID, "log reads back in creation order")
	assert.Equal(t, "o2", got[1].ID)
	assert.Equal(t, "1210", got[0].PreviousCode)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// SetupTestDB already migrated once; a second run is a no-op.
	require.NoError(t, db.Migrate(context.Background()))
}

func TestAppendOverride_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)

	err := db.AppendOverride(context.Background(), &model.Override{ID: "o1", TransactionID: "t1"})
	assert.ErrorIs(t, err, storage.ErrInvalidOverride)
}
