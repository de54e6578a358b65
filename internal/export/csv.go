// Package export writes finalized transactions to an accounting-import CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/service"
)

// header matches the ledger-import layout: one row per coded transaction.
var header = []string{"date", "nominal_code", "amount", "description"}

// WriteCSV exports every finalized transaction (auto-coded or overridden) in
// date order. Exceptions and unclassified transactions are skipped; nothing
// leaves the workspace without a code.
func WriteCSV(ctx context.Context, storage service.Storage, w io.Writer) (int, error) {
	incoming, err := storage.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	exported := 0
	for _, txn := range incoming {
		if txn.Source != model.SourceIncoming {
			continue
		}
		if txn.Status != model.StatusAutoCoded && txn.Status != model.StatusOverridden {
			continue
		}
		row := []string{
			txn.Date.Format("2006-01-02"),
			txn.NominalCode,
			txn.Amount.StringFixed(2),
			txn.RawDescription,
		}
		if err := writer.Write(row); err != nil {
			return exported, fmt.Errorf("failed to write transaction %s: %w", txn.ID, err)
		}
		exported++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return exported, fmt.Errorf("failed to flush export: %w", err)
	}
	return exported, nil
}
