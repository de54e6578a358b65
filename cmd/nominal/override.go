package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/engine"
)

func overrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "override <transaction-id> <nominal-code>",
		Short: "Correct a transaction's nominal code",
		Long: `Record a correction for a transaction. The correction becomes a manual rule
for the transaction's vendor, which outranks every learned rule, and is kept
in the append-only override log.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}

			lock, err := ws.Lock()
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			store, err := openStorage(cmd.Context(), ws)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleStore, err := loadRuleStore(cmd.Context(), store)
			if err != nil {
				return err
			}

			learner := engine.NewOverrideLearner(store, ruleStore)
			rule, err := learner.Apply(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("Recorded override: %q -> %s (manual rule %s)\n",
				rule.VendorKey, rule.NominalCode, rule.ID)
			return nil
		},
	}
}
