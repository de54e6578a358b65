package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/ingest"
	"github.com/oakmere/nominal/internal/model"
)

func importCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a statement file into the workspace",
		Long: `Import a canonical CSV statement (date, amount, description, nominal_code).
Use --source history for already-coded ledger exports and --source bank for
new statements awaiting codes. Malformed rows are reported and skipped; they
never block the rest of the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var txnSource model.TransactionSource
			switch source {
			case "history":
				txnSource = model.SourceHistorical
			case "bank":
				txnSource = model.SourceIncoming
			default:
				return fmt.Errorf("invalid source %q: must be history or bank", source)
			}

			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			store, err := openStorage(cmd.Context(), ws)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open statement file: %w", err)
			}
			defer func() { _ = f.Close() }()

			transactions, rejected, err := ingest.ReadCSV(f, txnSource)
			if err != nil {
				return err
			}
			for _, r := range rejected {
				common.LogError(r.Err, "Rejected row", common.Fields{"file": args[0], "line": r.Line})
			}
			if len(transactions) == 0 {
				return fmt.Errorf("no valid rows in %s", args[0])
			}

			if err := store.SaveTransactions(cmd.Context(), transactions); err != nil {
				return err
			}

			slog.Info("Import complete",
				"file", args[0],
				"source", source,
				"imported", len(transactions),
				"rejected", len(rejected))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "bank", "dataset to import into (history, bank)")

	return cmd
}
