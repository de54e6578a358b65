package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
		Long:  `Create and inspect the isolated per-client workspaces that hold transactions, rules and overrides.`,
	}

	cmd.AddCommand(workspaceInitCmd())
	cmd.AddCommand(workspaceInfoCmd())

	return cmd
}

func workspaceInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the selected workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := currentWorkspace()
			if err != nil {
				return err
			}
			if err := ws.Create(); err != nil {
				return err
			}

			store, err := openStorage(cmd.Context(), ws)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			slog.Info("Workspace created", "name", ws.Name, "path", ws.Path)
			return nil
		},
	}
}

func workspaceInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show workspace configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			cfg, err := ws.LoadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Workspace:            %s\n", cfg.Name)
			fmt.Printf("Path:                 %s\n", ws.Path)
			fmt.Printf("Created:              %s\n", cfg.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Confidence threshold: %.2f\n", cfg.Threshold)
			fmt.Printf("Min rule confidence:  %.2f\n", cfg.MinRuleConfidence)
			return nil
		},
	}
}
