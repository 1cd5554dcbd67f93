package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.StdDev, 1e-12)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 8, s.NumSamples)
	assert.InDelta(t, 0.4, s.CoefficientOfVariation(), 1e-12)
}

func TestSummarizeDegenerate(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	single := Summarize([]float64{0})
	assert.Zero(t, single.Mean)
	assert.Zero(t, single.StdDev)
	assert.Equal(t, 1, single.NumSamples)
	assert.Zero(t, single.CoefficientOfVariation())
}

func TestColumnMeans(t *testing.T) {
	rows := [][]float64{
		{1, 2, 3},
		{3, 4, 5},
	}
	assert.Equal(t, []float64{2, 3, 4}, ColumnMeans(rows, 3))
	assert.Equal(t, []float64{0, 0}, ColumnMeans(nil, 2))
}
