package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy): the ratio of the
// geometric mean to the arithmetic mean of the magnitude spectrum, in [0, 1].
// Low values indicate tonal content, values near 1 noise-like content.
type SpectralFlatness struct {
	minThreshold float64 // Minimum value to avoid log(0)
}

// NewSpectralFlatness creates a new spectral flatness calculator
func NewSpectralFlatness() *SpectralFlatness {
	return &SpectralFlatness{
		minThreshold: 1e-10,
	}
}

// Compute calculates spectral flatness for a single magnitude spectrum
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return 0.0
	}

	// geometric mean in the log domain, over bins above the floor
	logSum := 0.0
	validCount := 0
	arithmeticMean := 0.0

	for _, magnitude := range magnitudeSpectrum {
		arithmeticMean += magnitude
		if magnitude > sf.minThreshold {
			logSum += math.Log(magnitude)
			validCount++
		}
	}
	arithmeticMean /= float64(len(magnitudeSpectrum))

	if validCount == 0 || arithmeticMean <= sf.minThreshold {
		return 0.0
	}

	geometricMean := math.Exp(logSum / float64(validCount))
	return math.Min(geometricMean/arithmeticMean, 1.0)
}
