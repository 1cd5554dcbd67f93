package chroma

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-scene/algorithms/common"
	"github.com/RyanBlaney/sonido-scene/algorithms/spectral"
)

func magnitudeOfTone(t *testing.T, freq float64) []float64 {
	t.Helper()
	signal := make([]float64, 2048)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / 44100)
	}
	frames, err := common.NewFrameIterator(signal, 2048, 512)
	require.NoError(t, err)
	spec, err := spectral.NewSTFT(nil, 1).Compute(context.Background(), frames, 44100)
	require.NoError(t, err)
	return spec.Magnitude[0]
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func TestChromaPeaksAtPitchClass(t *testing.T) {
	cs := NewChromaSTFTDefault(44100)

	a4 := cs.Compute(magnitudeOfTone(t, 440))
	require.Len(t, a4, 12)
	assert.Equal(t, 9, argmax(a4)) // A

	sum := 0.0
	for _, v := range a4 {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	a5 := cs.Compute(magnitudeOfTone(t, 880))
	assert.Equal(t, 9, argmax(a5))
}

func TestChromaSilentFrame(t *testing.T) {
	cs := NewChromaSTFTDefault(44100)
	assert.Equal(t, make([]float64, 12), cs.Compute(make([]float64, 1025)))
}

func TestChromaLabels(t *testing.T) {
	labels := NewChromaSTFTDefault(44100).GetChromaLabels()
	assert.Len(t, labels, 12)
	assert.Equal(t, "A", labels[9])
}
