package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage learned and manual rules",
	}

	cmd.AddCommand(rulesListCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active rules",
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

			active, err := store.GetActiveRules(cmd.Context())
			if err != nil {
				return err
			}
			if len(active) == 0 {
				fmt.Println("No rules yet; run 'nominal learn' or record overrides.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VENDOR\tCODE\tTIER\tCONFIDENCE\tSUPPORT")
			for _, rule := range active {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n",
					rule.VendorKey, rule.NominalCode, rule.Tier,
					rule.Confidence, rule.SupportCount)
			}
			return w.Flush()
		},
	}
}
