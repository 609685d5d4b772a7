package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLMClient)
	assert.Equal(t, 120, cfg.Limits.CommandTimeoutSeconds)
	assert.Equal(t, 0.8, cfg.Context.CompactionThreshold)
	assert.Equal(t, 20, cfg.Context.RetainMessages)
	assert.Equal(t, 40, cfg.Context.MaxTurns)
	assert.Contains(t, cfg.Permissions.SafeCommandClasses, "git")
	assert.Equal(t, 120*time.Second, cfg.CommandTimeout())
}

func TestLoadConfigProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	writeConfig(t, home, `
llm: anthropic
model: claude-sonnet-4-20250514
limits:
  command_timeout_seconds: 60
`)
	writeConfig(t, project, `
model: claude-opus-4-20250514
permissions:
  auto_approve_reads: true
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	// User-level values survive where the project file is silent.
	assert.Equal(t, "anthropic", cfg.LLMClient)
	assert.Equal(t, 60, cfg.Limits.CommandTimeoutSeconds)
	// Project-level values win where both are set.
	assert.Equal(t, "claude-opus-4-20250514", cfg.Model)
	assert.True(t, cfg.Permissions.AutoApproveReads)
}

func TestNormalizeRejectsInvalidThreshold(t *testing.T) {
	cfg := &Config{Context: Context{CompactionThreshold: 1.7}}
	cfg.normalize()
	assert.Equal(t, 0.8, cfg.Context.CompactionThreshold)

	cfg = &Config{Context: Context{CompactionThreshold: -0.2}}
	cfg.normalize()
	assert.Equal(t, 0.8, cfg.Context.CompactionThreshold)
}

func TestLoadConfigBadYAML(t *testing.T) {
	project := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(project)

	writeConfig(t, project, "llm: [unclosed")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".clai"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clai", "config.yaml"), []byte(content), 0644))
}
