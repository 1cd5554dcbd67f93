package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultPipelineConfigIsValid(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2048, cfg.FrameSize)
	assert.Equal(t, 512, cfg.HopSize)
	assert.Equal(t, 26, cfg.MelFilters)
	assert.False(t, cfg.RejectShortSignals)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.FrameSize = 1000
	cfg.Strategy = "magic"
	cfg.Progress.DecodeEnd = 90

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame_size")
	assert.Contains(t, err.Error(), "magic")
	assert.Contains(t, err.Error(), "progress bands")
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPipelineConfig(), cfg)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	content := []byte("strategy: rules\nreject_short_signals: true\nprogress:\n  decode_end: 20\n  extract_end: 90\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyRules, cfg.Strategy)
	assert.True(t, cfg.RejectShortSignals)
	assert.Equal(t, 20, cfg.Progress.DecodeEnd)
	assert.Equal(t, 90, cfg.Progress.ExtractEnd)
	assert.Equal(t, 2048, cfg.FrameSize)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("SCENE_STRATEGY", "rules")
	t.Setenv("SCENE_STFT_WORKERS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRules, cfg.Strategy)
	assert.Equal(t, 3, cfg.STFTWorkers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hop_size: 0\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "hop_size")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := Marshal(DefaultPipelineConfig())
	require.NoError(t, err)
	assert.Contains(t, string(out), "frame_size: 2048")

	var back PipelineConfig
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, *DefaultPipelineConfig(), back)
}
