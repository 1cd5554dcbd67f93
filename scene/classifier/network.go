package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var activations = map[string]func(float64) float64{
	"relu":    func(x float64) float64 { return math.Max(0, x) },
	"tanh":    math.Tanh,
	"sigmoid": func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	"linear":  func(x float64) float64 { return x },
	"":        func(x float64) float64 { return x },
}

type denseLayer struct {
	weights    *mat.Dense // inputs x units
	bias       *mat.VecDense
	activation func(float64) float64
}

// NetworkStrategy runs a feed-forward network over the normalized vector
// and applies softmax to the final layer
type NetworkStrategy struct {
	layers []denseLayer
}

// NewNetworkStrategy builds the network from a validated model
func NewNetworkStrategy(model *ModelSpec) (*NetworkStrategy, error) {
	if model == nil {
		return nil, errors.New("network strategy requires a model")
	}

	layers := make([]denseLayer, 0, len(model.Layers))
	for i, spec := range model.Layers {
		if len(spec.Weights) == 0 || len(spec.Bias) == 0 {
			return nil, fmt.Errorf("layer %d: empty weights", i)
		}
		act, ok := activations[spec.Activation]
		if !ok {
			return nil, fmt.Errorf("layer %d: unknown activation %q", i, spec.Activation)
		}

		rows, cols := len(spec.Weights), len(spec.Bias)
		data := make([]float64, 0, rows*cols)
		for r, row := range spec.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("layer %d: row %d has %d weights, expected %d", i, r, len(row), cols)
			}
			data = append(data, row...)
		}

		bias := make([]float64, cols)
		copy(bias, spec.Bias)

		layers = append(layers, denseLayer{
			weights:    mat.NewDense(rows, cols, data),
			bias:       mat.NewVecDense(cols, bias),
			activation: act,
		})
	}

	return &NetworkStrategy{layers: layers}, nil
}

// Name implements Strategy
func (n *NetworkStrategy) Name() string {
	return "network"
}

// Scores implements Strategy. The result is already a probability distribution.
func (n *NetworkStrategy) Scores(_ []float64, normalized []float64, labels []string) ([]float64, error) {
	if len(normalized) == 0 {
		return nil, ErrLengthMismatch
	}
	x := mat.NewVecDense(len(normalized), append([]float64(nil), normalized...))

	for i, layer := range n.layers {
		rows, cols := layer.weights.Dims()
		if x.Len() != rows {
			return nil, fmt.Errorf("layer %d expects %d inputs, got %d", i, rows, x.Len())
		}

		out := mat.NewVecDense(cols, nil)
		out.MulVec(layer.weights.T(), x)
		out.AddVec(out, layer.bias)
		for j := range cols {
			out.SetVec(j, layer.activation(out.AtVec(j)))
		}
		x = out
	}

	if x.Len() != len(labels) {
		return nil, fmt.Errorf("network produced %d outputs for %d labels", x.Len(), len(labels))
	}

	logits := make([]float64, x.Len())
	for i := range logits {
		logits[i] = x.AtVec(i)
	}
	return softmax(logits)
}

// softmax subtracts the max logit before exponentiating
func softmax(logits []float64) ([]float64, error) {
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite logit %v", v)
		}
	}

	peak := floats.Max(logits)
	probs := make([]float64, len(logits))
	for i, v := range logits {
		probs[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs, nil
}
