package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmere/nominal/internal/common"
)

func TestNew_RejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "   ", "client/a", `client\a`} {
		_, err := New(t.TempDir(), name)
		assert.ErrorIs(t, err, common.ErrInvalidConfig, "name %q", name)
	}
}

func TestCreateAndLoadConfig(t *testing.T) {
	ws, err := New(t.TempDir(), "acme-ltd")
	require.NoError(t, err)
	assert.False(t, ws.Exists())

	require.NoError(t, ws.Create())
	assert.True(t, ws.Exists())
	assert.DirExists(t, ws.ExportDir())

	cfg, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "acme-ltd", cfg.Name)
	assert.InDelta(t, DefaultThreshold, cfg.Threshold, 1e-9)
	assert.InDelta(t, DefaultMinRuleConfidence, cfg.MinRuleConfidence, 1e-9)
	assert.False(t, cfg.CreatedAt.IsZero())
}

func TestCreate_AlreadyExists(t *testing.T) {
	ws, err := New(t.TempDir(), "acme-ltd")
	require.NoError(t, err)
	require.NoError(t, ws.Create())

	assert.ErrorIs(t, ws.Create(), common.ErrWorkspaceExists)
}

func TestLoadConfig_Missing(t *testing.T) {
	ws, err := New(t.TempDir(), "ghost")
	require.NoError(t, err)

	_, err = ws.LoadConfig()
	assert.ErrorIs(t, err, common.ErrWorkspaceMissing)
}

func TestSaveConfig_Roundtrip(t *testing.T) {
	ws, err := New(t.TempDir(), "acme-ltd")
	require.NoError(t, err)
	require.NoError(t, ws.Create())

	cfg, err := ws.LoadConfig()
	require.NoError(t, err)
	cfg.Threshold = 0.85
	require.NoError(t, ws.SaveConfig(cfg))

	again, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.InDelta(t, 0.85, again.Threshold, 1e-9)
	assert.False(t, again.LastModified.IsZero())
}

func TestLock_MutualExclusion(t *testing.T) {
	ws, err := New(t.TempDir(), "acme-ltd")
	require.NoError(t, err)
	require.NoError(t, ws.Create())

	lock, err := ws.Lock()
	require.NoError(t, err)

	_, err = ws.Lock()
	assert.ErrorIs(t, err, common.ErrWorkspaceLocked)

	require.NoError(t, lock.Release())

	// Released lock can be retaken.
	again, err := ws.Lock()
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLock_ReleaseIdempotent(t *testing.T) {
	ws, err := New(t.TempDir(), "acme-ltd")
	require.NoError(t, err)
	require.NoError(t, ws.Create())

	lock, err := ws.Lock()
	require.NoError(t, err)
	require.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())
}
