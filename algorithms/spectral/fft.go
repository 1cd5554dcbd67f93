package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp's real FFT
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes too
	return fft.FFTReal(x)
}

// MagnitudeInto writes |X[k]| for the positive frequencies (len(x)/2+1 bins) into dst.
// dst must have at least len(x)/2+1 elements.
func (f *FFT) MagnitudeInto(dst, x []float64) []float64 {
	spectrum := f.Compute(x)
	bins := len(x)/2 + 1
	dst = dst[:bins]
	for i := range bins {
		dst[i] = cmplx.Abs(spectrum[i])
	}
	return dst
}

// BinFrequencies returns the center frequency of each of numBins positive-frequency
// bins for a spectrum computed from a (numBins-1)*2 sample frame
func BinFrequencies(numBins, sampleRate int) []float64 {
	freqs := make([]float64, numBins)
	if numBins < 2 {
		return freqs
	}
	fftSize := float64((numBins - 1) * 2)
	for i := range numBins {
		freqs[i] = float64(i) * float64(sampleRate) / fftSize
	}
	return freqs
}
