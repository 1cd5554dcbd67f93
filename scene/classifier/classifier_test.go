package classifier

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-scene/scene/extractors"
)

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// linearModel maps feature i to label i%len(labels) with weight 1
func linearModel(labels int) *ModelSpec {
	weights := make([][]float64, extractors.FeatureCount)
	for i := range weights {
		weights[i] = make([]float64, labels)
		weights[i][i%labels] = 1
	}
	return &ModelSpec{Layers: []Layer{{
		Weights:    weights,
		Bias:       make([]float64, labels),
		Activation: "linear",
	}}}
}

func assetFS(t *testing.T, model *ModelSpec) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{
		ScalerFile: {Data: mustJSON(t, ScalerParams{
			Mean:  make([]float64, extractors.FeatureCount),
			Scale: filled(extractors.FeatureCount, 1),
		})},
		LabelsFile: {Data: mustJSON(t, DefaultRuleLabels)},
	}
	if model != nil {
		fsys[ModelFile] = &fstest.MapFile{Data: mustJSON(t, model)}
	}
	return fsys
}

func assertDistribution(t *testing.T, p *Prediction) {
	t.Helper()
	sum := 0.0
	best := p.Ranked[0]
	for _, lp := range p.Ranked {
		assert.GreaterOrEqual(t, lp.Probability, 0.0)
		sum += lp.Probability
		if lp.Probability > best.Probability {
			best = lp
		}
		assert.Equal(t, lp.Probability, p.Probabilities[lp.Label])
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, best.Label, p.Label)
	assert.Equal(t, best.Probability, p.Confidence)
}

func TestNormalizeIdentity(t *testing.T) {
	vector := make([]float64, extractors.FeatureCount)
	for i := range vector {
		vector[i] = float64(i) * 1.5
	}
	out, err := Normalize(vector, &ScalerParams{Mean: vector, Scale: filled(extractors.FeatureCount, 1)})
	require.NoError(t, err)
	assert.Equal(t, make([]float64, extractors.FeatureCount), out)
}

func TestNormalizeScalesAndZeroScale(t *testing.T) {
	scaler := &ScalerParams{Mean: filled(extractors.FeatureCount, 1), Scale: filled(extractors.FeatureCount, 2)}
	scaler.Scale[3] = 0

	out, err := Normalize(filled(extractors.FeatureCount, 5), scaler)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0])
	assert.Equal(t, 4.0, out[3])
}

func TestNormalizeLengthMismatch(t *testing.T) {
	scaler := &ScalerParams{Mean: make([]float64, extractors.FeatureCount), Scale: filled(extractors.FeatureCount, 1)}

	_, err := Normalize(make([]float64, 43), scaler)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Normalize(make([]float64, extractors.FeatureCount), &ScalerParams{Mean: make([]float64, 44), Scale: make([]float64, 40)})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Normalize(make([]float64, extractors.FeatureCount), nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAssetLoaderIdempotent(t *testing.T) {
	loader := NewAssetLoader(true)

	first, err := loader.Load(assetFS(t, linearModel(4)))
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleLabels, first.Labels)

	// already loaded: the new file system is never read
	second, err := loader.Load(fstest.MapFS{})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestAssetLoaderAtomicFailure(t *testing.T) {
	fsys := assetFS(t, linearModel(4))
	fsys[LabelsFile] = &fstest.MapFile{Data: []byte(`["quiet",`)}

	loader := NewAssetLoader(true)
	_, err := loader.Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelsFile)

	// nothing was kept from the failed attempt, so an empty file system fails too
	_, err = loader.Load(fstest.MapFS{})
	require.Error(t, err)

	// a later successful load recovers
	bundle, err := loader.Load(assetFS(t, linearModel(4)))
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleLabels, bundle.Labels)
}

func TestAssetLoaderModelOptionalForRules(t *testing.T) {
	bundle, err := NewAssetLoader(false).Load(assetFS(t, nil))
	require.NoError(t, err)
	assert.Nil(t, bundle.Model)

	_, err = NewAssetLoader(true).Load(assetFS(t, nil))
	assert.ErrorContains(t, err, ModelFile)
}

func TestAssetBundleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fstest.MapFS)
		want   string
	}{
		{"short scaler", func(fs fstest.MapFS) {
			fs[ScalerFile] = &fstest.MapFile{Data: []byte(`{"mean":[0],"scale":[1]}`)}
		}, "mismatch"},
		{"duplicate labels", func(fs fstest.MapFS) {
			fs[LabelsFile] = &fstest.MapFile{Data: []byte(`["a","b","c","a"]`)}
		}, "duplicate"},
		{"empty labels", func(fs fstest.MapFS) {
			fs[LabelsFile] = &fstest.MapFile{Data: []byte(`[]`)}
		}, "no labels"},
		{"model output width", func(fs fstest.MapFS) {
			fs[LabelsFile] = &fstest.MapFile{Data: []byte(`["a","b","c"]`)}
		}, "outputs 4 values for 3 labels"},
		{"unknown activation", func(fs fstest.MapFS) {
			m := linearModel(4)
			m.Layers[0].Activation = "swish"
			data, _ := json.Marshal(m)
			fs[ModelFile] = &fstest.MapFile{Data: data}
		}, "swish"},
		{"missing scaler", func(fs fstest.MapFS) {
			delete(fs, ScalerFile)
		}, ScalerFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := assetFS(t, linearModel(4))
			tt.mutate(fsys)
			_, err := NewAssetLoader(true).Load(fsys)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNetworkPrediction(t *testing.T) {
	bundle, err := NewAssetLoader(true).Load(assetFS(t, linearModel(4)))
	require.NoError(t, err)
	strategy, err := NewNetworkStrategy(bundle.Model)
	require.NoError(t, err)
	c, err := New(bundle, strategy)
	require.NoError(t, err)

	// features 2, 6, 10, ... feed label index 2
	raw := make([]float64, extractors.FeatureCount)
	raw[2] = 3

	p, err := c.Classify(raw)
	require.NoError(t, err)
	assertDistribution(t, p)
	assert.Equal(t, LabelMusic, p.Label)
	assert.Equal(t, "network", p.Strategy)
	assert.InDelta(t, math.Exp(3)/(math.Exp(3)+3), p.Confidence, 1e-12)
}

func TestNetworkTieBreaksOnFirstLabel(t *testing.T) {
	model := linearModel(4)
	for _, row := range model.Layers[0].Weights {
		clear(row)
	}
	bundle, err := NewAssetLoader(true).Load(assetFS(t, model))
	require.NoError(t, err)
	strategy, err := NewNetworkStrategy(bundle.Model)
	require.NoError(t, err)
	c, err := New(bundle, strategy)
	require.NoError(t, err)

	p, err := c.Classify(filled(extractors.FeatureCount, 7))
	require.NoError(t, err)
	assertDistribution(t, p)
	assert.Equal(t, DefaultRuleLabels[0], p.Label)
	assert.InDelta(t, 0.25, p.Confidence, 1e-12)
}

func TestNetworkHiddenLayer(t *testing.T) {
	hidden := make([][]float64, extractors.FeatureCount)
	for i := range hidden {
		hidden[i] = []float64{1, -1}
	}
	model := &ModelSpec{Layers: []Layer{
		{Weights: hidden, Bias: []float64{0, 0}, Activation: "relu"},
		{Weights: [][]float64{{1, 0, 0, 0}, {0, 0, 0, 1}}, Bias: make([]float64, 4), Activation: "linear"},
	}}
	require.NoError(t, model.validate(extractors.FeatureCount, 4))

	strategy, err := NewNetworkStrategy(model)
	require.NoError(t, err)

	// negative sum activates only the second hidden unit, which feeds the last label
	probs, err := strategy.Scores(nil, filled(extractors.FeatureCount, -0.1), DefaultRuleLabels)
	require.NoError(t, err)
	assert.Greater(t, probs[3], probs[0])
}

func TestSoftmaxStable(t *testing.T) {
	probs, err := softmax([]float64{1000, 1000})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, probs)

	_, err = softmax([]float64{math.NaN(), 0})
	assert.Error(t, err)
}

func TestRulesSilence(t *testing.T) {
	bundle, err := NewAssetLoader(false).Load(assetFS(t, nil))
	require.NoError(t, err)
	c, err := New(bundle, NewRuleStrategy())
	require.NoError(t, err)

	raw := make([]float64, extractors.FeatureCount)
	raw[2] = 120 // tempo default

	p, err := c.Classify(raw)
	require.NoError(t, err)
	assertDistribution(t, p)
	assert.Equal(t, LabelQuiet, p.Label)
}

func TestRulesLoudBrightNoise(t *testing.T) {
	bundle, err := NewAssetLoader(false).Load(assetFS(t, nil))
	require.NoError(t, err)
	c, err := New(bundle, NewRuleStrategy())
	require.NoError(t, err)

	raw := make([]float64, extractors.FeatureCount)
	raw[2] = 60
	raw[4] = 0.3  // rms_mean
	raw[5] = 0.03 // rms_std
	raw[8] = 7000 // centroid_mean

	p, err := c.Classify(raw)
	require.NoError(t, err)
	assertDistribution(t, p)
	assert.Equal(t, LabelNoisy, p.Label)
}

func TestRulesZeroTotalFallsBackToUniform(t *testing.T) {
	bundle := &AssetBundle{
		Scaler: &ScalerParams{Mean: make([]float64, extractors.FeatureCount), Scale: filled(extractors.FeatureCount, 1)},
		Labels: []string{"indoor", "outdoor"},
	}
	c, err := New(bundle, NewRuleStrategy())
	require.NoError(t, err)

	p, err := c.Classify(make([]float64, extractors.FeatureCount))
	require.NoError(t, err)
	assert.Equal(t, "indoor", p.Label)
	assert.Equal(t, 0.5, p.Confidence)
	assert.Equal(t, []LabelProbability{{"indoor", 0.5}, {"outdoor", 0.5}}, p.Ranked)
}

func TestPredictionsAreDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	bundle, err := NewAssetLoader(true).Load(assetFS(t, linearModel(4)))
	require.NoError(t, err)
	network, err := NewNetworkStrategy(bundle.Model)
	require.NoError(t, err)

	for _, strategy := range []Strategy{network, NewRuleStrategy()} {
		c, err := New(bundle, strategy)
		require.NoError(t, err)

		for range 50 {
			raw := make([]float64, extractors.FeatureCount)
			for i := range raw {
				raw[i] = rng.NormFloat64() * 5
			}
			raw[4] = math.Abs(raw[4]) / 10
			raw[5] = math.Abs(raw[5]) / 10
			raw[8] = math.Abs(raw[8]) * 500

			p, err := c.Classify(raw)
			require.NoError(t, err)
			assertDistribution(t, p)
		}
	}
}

func TestNewRequiresBundle(t *testing.T) {
	_, err := New(nil, NewRuleStrategy())
	assert.ErrorIs(t, err, ErrAssetsNotLoaded)

	_, err = NewNetworkStrategy(nil)
	assert.Error(t, err)
}
