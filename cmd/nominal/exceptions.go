package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/engine"
)

func exceptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exceptions",
		Short: "List transactions awaiting review",
		Long: `List incoming transactions that could not be coded confidently, with the
best low-confidence suggestion where one was found. Resolve them with
'nominal override'.`,
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

			ruleStore, err := loadRuleStore(cmd.Context(), store)
			if err != nil {
				return err
			}
			eng := engine.New(store, ruleStore)

			exceptions, err := eng.Exceptions(cmd.Context())
			if err != nil {
				return err
			}
			if len(exceptions) == 0 {
				fmt.Println("No exceptions; every transaction is coded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDESCRIPTION\tSUGGESTED")
			for _, txn := range exceptions {
				suggested := "-"
				if txn.SuggestedCode != "" {
					suggested = fmt.Sprintf("%s (%.2f)", txn.SuggestedCode, txn.Confidence)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.Date.Format("2006-01-02"),
					txn.Amount.StringFixed(2), txn.RawDescription, suggested)
			}
			return w.Flush()
		},
	}
}
