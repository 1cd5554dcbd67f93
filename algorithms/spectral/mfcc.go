package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from magnitude spectra.
// The filter bank and DCT matrix are built once for a given spectrum size, after
// which Compute is safe to call from a single goroutine per instance.
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	sampleRate      int
	lowFreq         float64
	highFreq        float64

	filterBank [][]float64
	dctMatrix  [][]float64
	numBins    int
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // Number of MFCC coefficients (default: 13)
	NumMelFilters   int     `json:"num_mel_filters"`  // Number of mel filter bank filters (default: 26)
	LowFreq         float64 `json:"low_freq"`         // Low frequency bound (default: 0)
	HighFreq        float64 `json:"high_freq"`        // High frequency bound (default: sampleRate/2)
}

// NewMFCC creates a new MFCC computer with default filter bank parameters
func NewMFCC(sampleRate, numCoefficients int) *MFCC {
	return NewMFCCWithParams(sampleRate, MFCCParams{NumCoefficients: numCoefficients})
}

// NewMFCCWithParams creates a new MFCC computer with custom parameters
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 26
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}

	return &MFCC{
		numCoefficients: params.NumCoefficients,
		numMelFilters:   params.NumMelFilters,
		sampleRate:      sampleRate,
		lowFreq:         params.LowFreq,
		highFreq:        params.HighFreq,
	}
}

// initialize prepares the filter bank and DCT matrix for spectra with numBins bins
func (m *MFCC) initialize(numBins int) error {
	fftSize := (numBins - 1) * 2
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}

	m.filterBank = CreateMelFilterBank(m.numMelFilters, fftSize, m.sampleRate, m.lowFreq, m.highFreq)
	if len(m.filterBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	m.createDCTMatrix()
	m.numBins = numBins
	return nil
}

// Compute calculates MFCC coefficients from a magnitude spectrum
func (m *MFCC) Compute(magnitudeSpectrum []float64) ([]float64, error) {
	if len(magnitudeSpectrum) == 0 {
		return nil, fmt.Errorf("empty magnitude spectrum")
	}

	if m.numBins != len(magnitudeSpectrum) {
		if err := m.initialize(len(magnitudeSpectrum)); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	powerSpectrum := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		powerSpectrum[i] = mag * mag
	}

	melSpectrum := ApplyFilterBank(powerSpectrum, m.filterBank)

	// floor avoids log(0) on silent frames
	for i, mel := range melSpectrum {
		melSpectrum[i] = math.Log(math.Max(mel, 1e-10))
	}

	return m.applyDCT(melSpectrum), nil
}

// createDCTMatrix creates an orthonormal DCT-II matrix
func (m *MFCC) createDCTMatrix() {
	m.dctMatrix = make([][]float64, m.numCoefficients)
	n := float64(m.numMelFilters)

	for k := range m.numCoefficients {
		m.dctMatrix[k] = make([]float64, m.numMelFilters)
		norm := math.Sqrt(2.0 / n)
		if k == 0 {
			norm = math.Sqrt(1.0 / n)
		}

		for j := range m.numMelFilters {
			m.dctMatrix[k][j] = norm * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/n)
		}
	}
}

func (m *MFCC) applyDCT(logMelSpectrum []float64) []float64 {
	coeffs := make([]float64, m.numCoefficients)

	for k, row := range m.dctMatrix {
		sum := 0.0
		for j := 0; j < len(logMelSpectrum) && j < len(row); j++ {
			sum += logMelSpectrum[j] * row[j]
		}
		coeffs[k] = sum
	}

	return coeffs
}

// NumCoefficients returns the number of coefficients per frame
func (m *MFCC) NumCoefficients() int {
	return m.numCoefficients
}
