package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/config"
	"github.com/oakmere/nominal/internal/rules"
	"github.com/oakmere/nominal/internal/service"
	"github.com/oakmere/nominal/internal/storage"
	"github.com/oakmere/nominal/internal/workspace"
)

// currentWorkspace resolves the workspace selected by flags/config without
// requiring it to exist.
func currentWorkspace() (*workspace.Workspace, error) {
	baseDir := config.ExpandPath(viper.GetString("workspaces.dir"))
	name := viper.GetString("workspace.name")
	if name == "" {
		name = wsName
	}
	return workspace.New(baseDir, name)
}

// openWorkspace resolves and validates the selected workspace.
func openWorkspace() (*workspace.Workspace, error) {
	ws, err := currentWorkspace()
	if err != nil {
		return nil, err
	}
	if !ws.Exists() {
		return nil, common.NewUserError(
			fmt.Sprintf("workspace %q does not exist; run 'nominal workspace init' first", ws.Name),
			common.ErrWorkspaceMissing)
	}
	return ws, nil
}

// openStorage opens (and migrates) the workspace database.
func openStorage(ctx context.Context, ws *workspace.Workspace) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(ws.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate workspace database: %w", err)
	}
	return store, nil
}

// loadRuleStore rebuilds the in-memory rule store from persisted rules.
func loadRuleStore(ctx context.Context, store service.Storage) (*rules.Store, error) {
	persisted, err := store.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules.Load(persisted), nil
}
