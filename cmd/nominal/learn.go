package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/engine"
)

func learnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn",
		Short: "Learn rules from historical and incoming transactions",
		Long: `Run the learning passes over the workspace: exact cross-referencing of the
historical and incoming datasets on (date, amount), then historical frequency
analysis. Learned rules never displace manual corrections.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			cfg, err := ws.LoadConfig()
			if err != nil {
				return err
			}

			// Rule mutation requires the workspace write lock.
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

			engineCfg := engine.DefaultConfig()
			engineCfg.Threshold = cfg.Threshold
			engineCfg.MinRuleConfidence = cfg.MinRuleConfidence
			eng := engine.NewWithConfig(store, ruleStore, nil, engineCfg)

			stats, err := eng.Learn(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Learned %d rules (%d smart + %d frequency) from %d historical transactions; %d vendors active\n",
				stats.SmartRules+stats.FrequencyRules, stats.SmartRules,
				stats.FrequencyRules, stats.HistoricalTransactions, stats.UniqueVendors)
			return nil
		},
	}
}
