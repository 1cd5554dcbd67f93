package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/RyanBlaney/sonido-scene/logging"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
)

// Asset file names inside a bundle directory
const (
	ScalerFile = "scaler.json"
	LabelsFile = "labels.json"
	ModelFile  = "model.json"
)

// ErrAssetsNotLoaded is returned when classification is attempted before a
// successful Load
var ErrAssetsNotLoaded = errors.New("classifier assets not loaded")

// ScalerParams standardizes feature vectors: (v - mean) / scale
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Layer is one dense layer. Weights are inputs x units.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // relu, tanh, sigmoid, linear
}

// ModelSpec is a feed-forward network; the last layer's units are label logits
type ModelSpec struct {
	Layers []Layer `json:"layers"`
}

// AssetBundle is the read-only state shared by every classification call
type AssetBundle struct {
	Scaler *ScalerParams `json:"scaler"`
	Labels []string      `json:"labels"`
	Model  *ModelSpec    `json:"model,omitempty"`
}

// AssetLoader loads an AssetBundle once. A failed load leaves the loader
// empty, so nothing is visible until every file has parsed and validated.
type AssetLoader struct {
	mu           sync.Mutex
	bundle       *AssetBundle
	requireModel bool
	logger       logging.Logger
}

// NewAssetLoader creates a loader. requireModel is false for the rule
// strategy, which needs only the scaler and labels.
func NewAssetLoader(requireModel bool) *AssetLoader {
	return &AssetLoader{
		requireModel: requireModel,
		logger: logging.WithFields(logging.Fields{
			"component": "asset_loader",
		}),
	}
}

// Load reads the bundle from fsys. Once a load has succeeded further calls
// return the same bundle without touching fsys.
func (l *AssetLoader) Load(fsys fs.FS) (*AssetBundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bundle != nil {
		return l.bundle, nil
	}

	bundle, err := readBundle(fsys, l.requireModel)
	if err != nil {
		l.logger.Error(err, "Failed to load classifier assets")
		return nil, err
	}

	l.bundle = bundle
	l.logger.Info("Loaded classifier assets", logging.Fields{
		"labels":    len(bundle.Labels),
		"has_model": bundle.Model != nil,
	})
	return bundle, nil
}

func readBundle(fsys fs.FS, requireModel bool) (*AssetBundle, error) {
	bundle := &AssetBundle{}

	if err := readJSON(fsys, ScalerFile, &bundle.Scaler); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, LabelsFile, &bundle.Labels); err != nil {
		return nil, err
	}

	err := readJSON(fsys, ModelFile, &bundle.Model)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !requireModel:
		bundle.Model = nil
	default:
		return nil, err
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Validate checks that the scaler, labels and model agree with each other
// and with the feature vector length
func (b *AssetBundle) Validate() error {
	if b.Scaler == nil {
		return fmt.Errorf("%s: missing scaler parameters", ScalerFile)
	}
	if len(b.Scaler.Mean) != extractors.FeatureCount || len(b.Scaler.Scale) != extractors.FeatureCount {
		return fmt.Errorf("%s: %w: mean has %d entries, scale has %d, expected %d",
			ScalerFile, ErrLengthMismatch, len(b.Scaler.Mean), len(b.Scaler.Scale), extractors.FeatureCount)
	}

	if len(b.Labels) == 0 {
		return fmt.Errorf("%s: no labels", LabelsFile)
	}
	seen := make(map[string]bool, len(b.Labels))
	for _, label := range b.Labels {
		if label == "" {
			return fmt.Errorf("%s: empty label", LabelsFile)
		}
		if seen[label] {
			return fmt.Errorf("%s: duplicate label %q", LabelsFile, label)
		}
		seen[label] = true
	}

	if b.Model != nil {
		if err := b.Model.validate(extractors.FeatureCount, len(b.Labels)); err != nil {
			return fmt.Errorf("%s: %w", ModelFile, err)
		}
	}
	return nil
}

func (m *ModelSpec) validate(inputs, outputs int) error {
	if len(m.Layers) == 0 {
		return errors.New("model has no layers")
	}

	width := inputs
	for i, layer := range m.Layers {
		if len(layer.Weights) != width {
			return fmt.Errorf("layer %d: expected %d input rows, got %d", i, width, len(layer.Weights))
		}
		units := len(layer.Bias)
		if units == 0 {
			return fmt.Errorf("layer %d: empty bias", i)
		}
		for r, row := range layer.Weights {
			if len(row) != units {
				return fmt.Errorf("layer %d: row %d has %d weights, expected %d", i, r, len(row), units)
			}
		}
		if _, ok := activations[layer.Activation]; !ok {
			return fmt.Errorf("layer %d: unknown activation %q", i, layer.Activation)
		}
		width = units
	}

	if width != outputs {
		return fmt.Errorf("model outputs %d values for %d labels", width, outputs)
	}
	return nil
}
