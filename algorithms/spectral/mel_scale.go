package spectral

import (
	"math"
)

// HzToMel converts frequency in Hz to mel scale (HTK formula)
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates numFilters triangular filters spaced evenly on the mel
// scale between lowFreq and highFreq. Each filter has fftSize/2+1 weights.
func CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)

	// Convert equally spaced mel points to FFT bin indices
	melStep := (highMel - lowMel) / float64(numFilters+1)
	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		hz := MelToHz(lowMel + float64(i)*melStep)
		bin := int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(bin, fftSize/2)
	}

	filterBank := make([][]float64, numFilters)
	for m := 1; m <= numFilters; m++ {
		filter := make([]float64, fftSize/2+1)
		leftBin, centerBin, rightBin := binPoints[m-1], binPoints[m], binPoints[m+1]

		// Rising edge
		if centerBin != leftBin {
			for k := leftBin; k < centerBin; k++ {
				filter[k] = float64(k-leftBin) / float64(centerBin-leftBin)
			}
		}

		// Falling edge
		if rightBin != centerBin {
			for k := centerBin; k < rightBin; k++ {
				filter[k] = float64(rightBin-k) / float64(rightBin-centerBin)
			}
		}

		filterBank[m-1] = filter
	}

	return filterBank
}

// ApplyFilterBank applies mel filter bank to power spectrum
func ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}
