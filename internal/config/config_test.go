package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collect:\n  jobs: 8\n  target: app\n  incremental: true\n  exclude:\n    - third_party/\n    - \"*_test.c\"\nlog:\n  format: json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Collect.Jobs)
	assert.Equal(t, "app", cfg.Collect.Target)
	assert.True(t, cfg.Collect.Incremental)
	assert.Equal(t, []string{"third_party/", "*_test.c"}, cfg.Collect.Exclude)
	assert.Equal(t, 120, cfg.Collect.Timeout)
	assert.Equal(t, "wholeProgramCG.ipcg", cfg.Collect.Output)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collect: [unclosed\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default().Collect
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Generate = "all"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Jobs = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Timeout = 0
	assert.Error(t, bad.Validate())
}
