// Package workspace manages the isolated per-client directories holding a
// workspace's database, configuration and lock.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oakmere/nominal/internal/common"
)

// Config holds per-workspace settings.
type Config struct {
	Name              string    `yaml:"name"`
	CreatedAt         time.Time `yaml:"created_at"`
	LastModified      time.Time `yaml:"last_modified,omitempty"`
	Threshold         float64   `yaml:"confidence_threshold"`
	MinRuleConfidence float64   `yaml:"min_rule_confidence"`
}

// Default per-workspace settings.
const (
	DefaultThreshold         = 0.70
	DefaultMinRuleConfidence = 0.75
)

// Workspace is one client's isolated collection of transactions, rules and
// overrides.
type Workspace struct {
	Name string
	Path string
}

// New addresses a workspace under the given base directory without touching
// the filesystem.
func New(baseDir, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: invalid workspace name %q", common.ErrInvalidConfig, name)
	}
	return &Workspace{Name: name, Path: filepath.Join(baseDir, name)}, nil
}

// ConfigPath returns the workspace's config file location.
func (w *Workspace) ConfigPath() string { return filepath.Join(w.Path, "config.yaml") }

// DatabasePath returns the workspace's SQLite database location.
func (w *Workspace) DatabasePath() string { return filepath.Join(w.Path, "nominal.db") }

// ExportDir returns where exports are written.
func (w *Workspace) ExportDir() string { return filepath.Join(w.Path, "exports") }

func (w *Workspace) lockPath() string { return filepath.Join(w.Path, ".lock") }

// Exists reports whether the workspace has been created.
func (w *Workspace) Exists() bool {
	if _, err := os.Stat(w.ConfigPath()); err != nil {
		return false
	}
	return true
}

// Create initializes the workspace directory structure and config file.
func (w *Workspace) Create() error {
	if w.Exists() {
		return fmt.Errorf("%w: %s", common.ErrWorkspaceExists, w.Name)
	}

	for _, dir := range []string{w.Path, w.ExportDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}

	cfg := Config{
		Name:              w.Name,
		CreatedAt:         time.Now(),
		Threshold:         DefaultThreshold,
		MinRuleConfidence: DefaultMinRuleConfidence,
	}
	return w.SaveConfig(&cfg)
}

// LoadConfig reads the workspace configuration.
func (w *Workspace) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(w.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrWorkspaceMissing, w.Name)
		}
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.MinRuleConfidence <= 0 {
		cfg.MinRuleConfidence = DefaultMinRuleConfidence
	}
	return &cfg, nil
}

// SaveConfig writes the workspace configuration.
func (w *Workspace) SaveConfig(cfg *Config) error {
	cfg.LastModified = time.Now()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace config: %w", err)
	}
	if err := os.WriteFile(w.ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write workspace config: %w", err)
	}
	return nil
}

// Lock takes the workspace-scoped exclusive lock that serializes rule
// mutation. Classification reads work from an immutable snapshot and do not
// take it. The lock is a create-exclusive file holding the owner PID.
func (w *Workspace) Lock() (*Lock, error) {
	f, err := os.OpenFile(w.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrWorkspaceLocked, w.Name)
		}
		return nil, fmt.Errorf("failed to take workspace lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write workspace lock: %w", err)
	}
	return &Lock{path: w.lockPath()}, nil
}

// Lock is a held workspace lock.
type Lock struct {
	path string
}

// Release frees the lock. Safe to call once per acquisition.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release workspace lock: %w", err)
	}
	return nil
}
