package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-scene/logging"
)

// Strategy maps a feature vector to per-label scores. Scores must be
// non-negative; they need not sum to 1.
type Strategy interface {
	Name() string
	Scores(raw, normalized []float64, labels []string) ([]float64, error)
}

// LabelProbability is one entry of a prediction, in label order
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Prediction is the classifier output
type Prediction struct {
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Ranked        []LabelProbability `json:"ranked"` // label order, not sorted
	Strategy      string             `json:"strategy"`
}

// Classifier combines an asset bundle with a scoring strategy
type Classifier struct {
	bundle   *AssetBundle
	strategy Strategy
	logger   logging.Logger
}

// New creates a classifier over a loaded bundle
func New(bundle *AssetBundle, strategy Strategy) (*Classifier, error) {
	if bundle == nil {
		return nil, ErrAssetsNotLoaded
	}
	if strategy == nil {
		return nil, errors.New("nil strategy")
	}
	return &Classifier{
		bundle:   bundle,
		strategy: strategy,
		logger: logging.WithFields(logging.Fields{
			"component": "classifier",
			"strategy":  strategy.Name(),
		}),
	}, nil
}

// Normalize standardizes raw features with the bundle's scaler
func (c *Classifier) Normalize(raw []float64) ([]float64, error) {
	return Normalize(raw, c.bundle.Scaler)
}

// Predict scores an already normalized vector. raw is passed through for
// strategies that read unnormalized features.
func (c *Classifier) Predict(raw, normalized []float64) (*Prediction, error) {
	labels := c.bundle.Labels

	scores, err := c.strategy.Scores(raw, normalized, labels)
	if err != nil {
		return nil, fmt.Errorf("%s strategy failed: %w", c.strategy.Name(), err)
	}
	if len(scores) != len(labels) {
		return nil, fmt.Errorf("%s strategy returned %d scores for %d labels", c.strategy.Name(), len(scores), len(labels))
	}

	probs := toProbabilities(scores)
	prediction := &Prediction{
		Probabilities: make(map[string]float64, len(labels)),
		Ranked:        make([]LabelProbability, len(labels)),
		Strategy:      c.strategy.Name(),
	}

	best := 0
	for i, label := range labels {
		prediction.Probabilities[label] = probs[i]
		prediction.Ranked[i] = LabelProbability{Label: label, Probability: probs[i]}
		if probs[i] > probs[best] {
			best = i
		}
	}
	prediction.Label = labels[best]
	prediction.Confidence = probs[best]

	c.logger.Debug("Classified feature vector", logging.Fields{
		"label":      prediction.Label,
		"confidence": prediction.Confidence,
	})
	return prediction, nil
}

// Classify normalizes and predicts in one step
func (c *Classifier) Classify(raw []float64) (*Prediction, error) {
	normalized, err := c.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return c.Predict(raw, normalized)
}

// toProbabilities zeroes negative or non-finite scores, then divides by the
// total. A zero total yields the uniform distribution.
func toProbabilities(scores []float64) []float64 {
	probs := make([]float64, len(scores))
	total := 0.0
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			s = 0
		}
		probs[i] = s
		total += s
	}

	if total <= 0 {
		for i := range probs {
			probs[i] = 1 / float64(len(probs))
		}
		return probs
	}

	for i := range probs {
		probs[i] /= total
	}
	return probs
}
