package spectral

// SpectralContrast produces per-band "contrast" values derived from a single
// spectral flatness measurement: band b is flatness + b*bandOffset.
//
// This is not true multi-band peak/valley contrast. The trained scaler and model
// expect these exact values, so the formula must not change without retraining.
type SpectralContrast struct {
	numBands   int
	bandOffset float64
	flatness   *SpectralFlatness
}

// NewSpectralContrast creates a contrast calculator with numBands outputs
func NewSpectralContrast(numBands int, bandOffset float64) *SpectralContrast {
	return &SpectralContrast{
		numBands:   numBands,
		bandOffset: bandOffset,
		flatness:   NewSpectralFlatness(),
	}
}

// Compute returns numBands values for a single magnitude spectrum
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) []float64 {
	base := sc.flatness.Compute(magnitudeSpectrum)

	contrast := make([]float64, sc.numBands)
	for band := range contrast {
		contrast[band] = base + float64(band)*sc.bandOffset
	}

	return contrast
}
