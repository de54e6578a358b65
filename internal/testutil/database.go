// Package testutil provides shared helpers for tests that need a real
// storage layer.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/normalize"
	"github.com/oakmere/nominal/internal/service"
	"github.com/oakmere/nominal/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite storage with automatic
// cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Txn builds a transaction for tests. The amount is parsed from a string so
// test cases read the same as statement rows.
func Txn(id, date, amount, description, code string, source model.TransactionSource) model.Transaction {
	when, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	vendor, err := normalize.Vendor(description)
	if err != nil {
		panic(err)
	}
	return model.Transaction{
		ID:               id,
		Date:             when,
		Amount:           value,
		RawDescription:   description,
		NormalizedVendor: vendor,
		NominalCode:      code,
		Source:           source,
		Status:           model.StatusUnclassified,
	}
}
