package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/testutil"
)

func TestWriteCSV(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	txns := []model.Transaction{
		testutil.Txn("h1", "2024-02-01", "9.99", "TESLA", "1210", model.SourceHistorical),
		testutil.Txn("i1", "2024-03-01", "-9.99", "Card 61, Tesla", "", model.SourceIncoming),
		testutil.Txn("i2", "2024-03-02", "-5.00", "Costa", "", model.SourceIncoming),
		testutil.Txn("i3", "2024-03-03", "-7.00", "Mystery Vendor", "", model.SourceIncoming),
	}
	require.NoError(t, db.SaveTransactions(ctx, txns))
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "i1", model.AutoCoded{NominalCode: "1210", Confidence: 0.95}))
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "i2", model.Overridden{NominalCode: "7406", OverrideID: "o1"}))
	require.NoError(t, db.UpdateTransactionOutcome(ctx, "i3", model.Exception{}))

	var buf bytes.Buffer
	exported, err := WriteCSV(ctx, db, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, exported)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two finalized transactions")

	assert.Equal(t, []string{"date", "nominal_code", "amount", "description"}, rows[0])
	assert.Equal(t, []string{"2024-03-01", "1210", "-9.99", "Card 61, Tesla"}, rows[1])
	assert.Equal(t, []string{"2024-03-02", "7406", "-5.00", "Costa"}, rows[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	var buf bytes.Buffer
	exported, err := WriteCSV(ctx, db, &buf)
	require.NoError(t, err)
	assert.Zero(t, exported)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
