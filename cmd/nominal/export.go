package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/export"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export coded transactions to a ledger-import CSV",
		Long: `Write every auto-coded and overridden transaction to a CSV ready for ledger
import. Exceptions are excluded; resolve them first with 'nominal override'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			store, err := openStorage(cmd.Context(), ws)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if output == "" {
				output = filepath.Join(ws.ExportDir(),
					fmt.Sprintf("coded-%s.csv", time.Now().Format("20060102-150405")))
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer func() { _ = f.Close() }()

			count, err := export.WriteCSV(cmd.Context(), store, f)
			if err != nil {
				return err
			}

			slog.Info("Export complete", "file", output, "transactions", count)
			fmt.Printf("Exported %d transactions to %s\n", count, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: workspace exports dir)")

	return cmd
}
