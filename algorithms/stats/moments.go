package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of one feature time series
type Summary struct {
	Mean       float64 `json:"mean"`    // First raw moment
	StdDev     float64 `json:"std_dev"` // Population standard deviation
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	NumSamples int     `json:"num_samples"`
}

// Summarize computes a Summary. Empty input yields the zero Summary.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}

	mean, std := stat.PopMeanStdDev(data, nil)
	if len(data) == 1 {
		std = 0
	}

	return Summary{
		Mean:       mean,
		StdDev:     std,
		Min:        floats.Min(data),
		Max:        floats.Max(data),
		NumSamples: len(data),
	}
}

// ColumnMeans averages a frames x width matrix over frames.
// Rows shorter than width contribute nothing to the missing columns.
func ColumnMeans(rows [][]float64, width int) []float64 {
	means := make([]float64, width)
	if len(rows) == 0 {
		return means
	}

	column := make([]float64, len(rows))
	for c := range width {
		for r, row := range rows {
			if c < len(row) {
				column[r] = row[c]
			} else {
				column[r] = 0
			}
		}
		means[c] = stat.Mean(column, nil)
	}

	return means
}

// CoefficientOfVariation returns std/|mean|, or 0 when the mean is 0
func (s Summary) CoefficientOfVariation() float64 {
	if s.Mean == 0 {
		return 0
	}
	return s.StdDev / math.Abs(s.Mean)
}
