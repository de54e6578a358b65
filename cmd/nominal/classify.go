package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/oakmere/nominal/internal/engine"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/service"
	"github.com/oakmere/nominal/internal/suggest"
)

func classifyCmd() *cobra.Command {
	var threshold float64
	var workers int
	var suggestionsFile string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Auto-code incoming transactions using learned rules",
		Long: `Classify every pending incoming transaction against the current rule set.
Transactions without sufficiently confident evidence become exceptions for
review; nothing is coded by guesswork.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			cfg, err := ws.LoadConfig()
			if err != nil {
				return err
			}
			if threshold <= 0 {
				threshold = cfg.Threshold
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

			var suggester service.Suggester
			if suggestionsFile != "" {
				suggester, err = suggest.FromFile(suggestionsFile)
				if err != nil {
					return err
				}
			}

			engineCfg := engine.DefaultConfig()
			engineCfg.Threshold = threshold
			engineCfg.MinRuleConfidence = cfg.MinRuleConfidence
			if workers > 0 {
				engineCfg.Workers = workers
			}
			eng := engine.NewWithConfig(store, ruleStore, suggester, engineCfg)

			source := model.SourceIncoming
			pending, err := store.GetTransactions(cmd.Context(), service.TransactionFilter{Source: &source})
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(pending)), "classifying")
			stats, err := eng.ClassifyBatch(cmd.Context(), func() { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}

			fmt.Printf("Processed %d transactions: %d auto-coded, %d exceptions (avg confidence %.2f) in %s\n",
				stats.Processed, stats.AutoCoded, stats.Exceptions,
				stats.AvgConfidence, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum confidence to auto-code (default: workspace setting)")
	cmd.Flags().IntVar(&workers, "workers", 0, "classification worker count")
	cmd.Flags().StringVar(&suggestionsFile, "suggestions", "", "YAML file of pre-computed suggestions")

	return cmd
}
