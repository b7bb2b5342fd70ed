package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	BindFlags(cmd)
	return cmd
}

func TestLoadUsesFlagDefaultsWhenUnset(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "manager-1", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:7946", cfg.BindAddr)
	assert.Equal(t, "127.0.0.1:8080", cfg.APIAddr)
	assert.Equal(t, "./cellar-data", cfg.DataDir)
	assert.EqualValues(t, 1, cfg.CellTag)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, time.Duration(0), cfg.RetentionDelay)
	assert.Equal(t, 0, cfg.ArchiveBatchSize)
}

func TestLoadReflectsExplicitFlagOverrides(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()

	require.NoError(t, cmd.Flags().Set("node-id", "manager-7"))
	require.NoError(t, cmd.Flags().Set("cell-tag", "42"))
	require.NoError(t, cmd.Flags().Set("retention-delay", "2m"))
	require.NoError(t, cmd.Flags().Set("archive-batch-size", "250"))
	require.NoError(t, cmd.Flags().Set("log-json", "true"))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "manager-7", cfg.NodeID)
	assert.EqualValues(t, 42, cfg.CellTag)
	assert.Equal(t, 2*time.Minute, cfg.RetentionDelay)
	assert.Equal(t, 250, cfg.ArchiveBatchSize)
	assert.True(t, cfg.LogJSON)
}

func TestLoadRejectsOutOfRangeCellTag(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("cell-tag", "70000"))

	_, err := Load(cmd)
	assert.Error(t, err)
}

func TestLoadOverlaysConfigFileUnderFlagDefaults(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()

	dir := t.TempDir()
	path := filepath.Join(dir, "cellar.yaml")
	contents := "node-id: manager-file\nretention-delay: 5m\narchive-batch-size: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "manager-file", cfg.NodeID)
	assert.Equal(t, 5*time.Minute, cfg.RetentionDelay)
	assert.Equal(t, 500, cfg.ArchiveBatchSize)
	// Flags not present in the file keep their bound default.
	assert.Equal(t, "127.0.0.1:7946", cfg.BindAddr)
}

func TestLoadExplicitFlagWinsOverConfigFile(t *testing.T) {
	viper.Reset()
	cmd := newTestCommand()

	dir := t.TempDir()
	path := filepath.Join(dir, "cellar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node-id: manager-file\n"), 0o600))
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("node-id", "manager-cli"))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "manager-cli", cfg.NodeID)
}
