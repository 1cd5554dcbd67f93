package windowing

import (
	"fmt"
	"math"
)

// Hann is a precomputed Hann window. Periodic windows (symmetric=false) are
// the usual choice in front of an FFT.
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHann creates a new Hann window
func NewHann(size int, symmetric bool) *Hann {
	h := &Hann{
		size:      size,
		symmetric: symmetric,
	}
	h.generate()
	return h
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)
	if h.size == 1 {
		h.coefficients[0] = 1
		return
	}

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	for i := range h.size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
}

// ApplyTo writes the windowed signal into dst; pass the same slice twice to
// window in place. It panics unless both have the window's length, so
// callers check GetSize once up front.
func (h *Hann) ApplyTo(dst, signal []float64) {
	if len(signal) != h.size || len(dst) != h.size {
		panic(fmt.Sprintf("windowing: signal length %d, dst length %d, window size %d", len(signal), len(dst), h.size))
	}

	for i, c := range h.coefficients {
		dst[i] = signal[i] * c
	}
}

// GetSize returns the window size
func (h *Hann) GetSize() int {
	return h.size
}
