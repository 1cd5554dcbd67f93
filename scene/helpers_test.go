package scene

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-scene/scene/classifier"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
	"github.com/RyanBlaney/sonido-scene/transcode"
)

func toneSignal(t *testing.T, freq float64, sampleRate, n int) *transcode.Signal {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	s, err := transcode.NewSignal(samples, sampleRate, float64(n)/float64(sampleRate))
	require.NoError(t, err)
	return s
}

// testAssets is an identity scaler, the rule labels and a linear model
func testAssets(t *testing.T) fstest.MapFS {
	t.Helper()
	n := extractors.FeatureCount
	labels := classifier.DefaultRuleLabels

	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, len(labels))
		weights[i][i%len(labels)] = 0.01
	}

	marshal := func(v any) []byte {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}

	return fstest.MapFS{
		classifier.ScalerFile: {Data: marshal(classifier.ScalerParams{Mean: make([]float64, n), Scale: scale})},
		classifier.LabelsFile: {Data: marshal(labels)},
		classifier.ModelFile: {Data: marshal(classifier.ModelSpec{Layers: []classifier.Layer{{
			Weights:    weights,
			Bias:       make([]float64, len(labels)),
			Activation: "linear",
		}}})},
	}
}

type fakeDecoder struct {
	signal  *transcode.Signal
	err     error
	decoded atomic.Bool
	closed  atomic.Bool
}

func (d *fakeDecoder) Decode(context.Context) (*transcode.Signal, error) {
	d.decoded.Store(true)
	return d.signal, d.err
}

func (d *fakeDecoder) Close() error {
	d.closed.Store(true)
	return nil
}

// extractorFunc adapts a function to FeatureExtractor
type extractorFunc func(ctx context.Context, s *transcode.Signal, p extractors.ProgressFunc) (*extractors.Result, error)

func (f extractorFunc) Extract(ctx context.Context, s *transcode.Signal, p extractors.ProgressFunc) (*extractors.Result, error) {
	return f(ctx, s, p)
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }

func (failingStrategy) Scores(_, _ []float64, _ []string) ([]float64, error) {
	return nil, errors.New("forward pass failed")
}
