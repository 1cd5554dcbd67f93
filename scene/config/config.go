package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Strategy selects how feature vectors are mapped to labels
type Strategy string

const (
	StrategyNetwork Strategy = "network"
	StrategyRules   Strategy = "rules"
)

// MinMelFilters is the smallest filter bank that still yields 13 cepstral coefficients
const MinMelFilters = 13

// ProgressBands splits the overall 0..100 gauge between analysis stages
type ProgressBands struct {
	DecodeEnd  int `json:"decode_end" yaml:"decode_end" mapstructure:"decode_end"`
	ExtractEnd int `json:"extract_end" yaml:"extract_end" mapstructure:"extract_end"`
}

// PipelineConfig configures feature extraction and classification
type PipelineConfig struct {
	// Framing
	FrameSize int `json:"frame_size" yaml:"frame_size" mapstructure:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`

	// Spectral features. Output widths are fixed by the vector schema.
	MelFilters       int     `json:"mel_filters" yaml:"mel_filters" mapstructure:"mel_filters"`
	ContrastOffset   float64 `json:"contrast_offset" yaml:"contrast_offset" mapstructure:"contrast_offset"`
	RolloffThreshold float64 `json:"rolloff_threshold" yaml:"rolloff_threshold" mapstructure:"rolloff_threshold"`

	// Tempo
	OnsetThresholdFactor float64 `json:"onset_threshold_factor" yaml:"onset_threshold_factor" mapstructure:"onset_threshold_factor"`
	OnsetMinSpacing      float64 `json:"onset_min_spacing" yaml:"onset_min_spacing" mapstructure:"onset_min_spacing"` // seconds
	DefaultTempo         float64 `json:"default_tempo" yaml:"default_tempo" mapstructure:"default_tempo"`

	// Execution
	STFTWorkers        int  `json:"stft_workers" yaml:"stft_workers" mapstructure:"stft_workers"` // 0 = GOMAXPROCS
	RejectShortSignals bool `json:"reject_short_signals" yaml:"reject_short_signals" mapstructure:"reject_short_signals"`

	// Classification
	Strategy  Strategy      `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	AssetsDir string        `json:"assets_dir" yaml:"assets_dir" mapstructure:"assets_dir"`
	Progress  ProgressBands `json:"progress" yaml:"progress" mapstructure:"progress"`

	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// DefaultPipelineConfig returns the configuration the scaler and model
// assets were built against. Changing the framing or feature dimensions
// invalidates those assets.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		FrameSize:            2048,
		HopSize:              512,
		MelFilters:           26,
		ContrastOffset:       0.1,
		RolloffThreshold:     0.85,
		OnsetThresholdFactor: 0.3,
		OnsetMinSpacing:      0.2,
		DefaultTempo:         120,
		STFTWorkers:          0,
		RejectShortSignals:   false,
		Strategy:             StrategyNetwork,
		AssetsDir:            "assets",
		Progress: ProgressBands{
			DecodeEnd:  40,
			ExtractEnd: 80,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *PipelineConfig) Validate() error {
	var errs []error

	if c.FrameSize <= 0 || c.FrameSize&(c.FrameSize-1) != 0 {
		errs = append(errs, fmt.Errorf("frame_size must be a positive power of two, got %d", c.FrameSize))
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		errs = append(errs, fmt.Errorf("hop_size must be in (0, frame_size], got %d", c.HopSize))
	}
	if c.MelFilters < MinMelFilters {
		errs = append(errs, fmt.Errorf("mel_filters must be at least %d, got %d", MinMelFilters, c.MelFilters))
	}
	if c.RolloffThreshold <= 0 || c.RolloffThreshold > 1 {
		errs = append(errs, fmt.Errorf("rolloff_threshold must be in (0, 1], got %v", c.RolloffThreshold))
	}
	if c.OnsetMinSpacing < 0 {
		errs = append(errs, fmt.Errorf("onset_min_spacing must not be negative, got %v", c.OnsetMinSpacing))
	}
	if c.DefaultTempo <= 0 {
		errs = append(errs, fmt.Errorf("default_tempo must be positive, got %v", c.DefaultTempo))
	}
	if c.STFTWorkers < 0 {
		errs = append(errs, fmt.Errorf("stft_workers must not be negative, got %d", c.STFTWorkers))
	}
	switch c.Strategy {
	case StrategyNetwork, StrategyRules:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if c.Progress.DecodeEnd < 0 || c.Progress.DecodeEnd > c.Progress.ExtractEnd || c.Progress.ExtractEnd > 100 {
		errs = append(errs, fmt.Errorf("progress bands must satisfy 0 <= decode_end <= extract_end <= 100, got %d/%d",
			c.Progress.DecodeEnd, c.Progress.ExtractEnd))
	}

	return errors.Join(errs...)
}

// Load reads configuration from path (any format viper understands) and
// SCENE_* environment variables, layered over the defaults. An empty path
// loads defaults plus environment only.
func Load(path string) (*PipelineConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultPipelineConfig())

	v.SetEnvPrefix("SCENE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &PipelineConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML
func Marshal(cfg *PipelineConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *PipelineConfig) {
	v.SetDefault("frame_size", d.FrameSize)
	v.SetDefault("hop_size", d.HopSize)
	v.SetDefault("mel_filters", d.MelFilters)
	v.SetDefault("contrast_offset", d.ContrastOffset)
	v.SetDefault("rolloff_threshold", d.RolloffThreshold)
	v.SetDefault("onset_threshold_factor", d.OnsetThresholdFactor)
	v.SetDefault("onset_min_spacing", d.OnsetMinSpacing)
	v.SetDefault("default_tempo", d.DefaultTempo)
	v.SetDefault("stft_workers", d.STFTWorkers)
	v.SetDefault("reject_short_signals", d.RejectShortSignals)
	v.SetDefault("strategy", string(d.Strategy))
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("progress.decode_end", d.Progress.DecodeEnd)
	v.SetDefault("progress.extract_end", d.Progress.ExtractEnd)
	v.SetDefault("log_level", d.LogLevel)
}
