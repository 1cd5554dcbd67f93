package chroma

import (
	"math"

	"github.com/RyanBlaney/sonido-scene/algorithms/spectral"
)

// ChromaSTFT folds an STFT magnitude spectrum into 12 pitch classes
// (C, C#, D, D#, E, F, F#, G, G#, A, A#, B). All octaves of a note share a bin.
type ChromaSTFT struct {
	sampleRate int
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int     // Number of chroma bins (always 12)
	minFreq    float64 // Minimum frequency to consider
	maxFreq    float64 // Maximum frequency to consider

	mapping []int // FFT bin -> chroma bin, -1 outside [minFreq, maxFreq]
}

// NewChromaSTFT creates a new STFT-based chroma calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	if tuningFreq <= 0 {
		tuningFreq = 440.0
	}
	return &ChromaSTFT{
		sampleRate: sampleRate,
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates a chroma calculator with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// Compute returns the unit-sum chroma vector for one magnitude spectrum.
// A frame with no energy in range yields all zeros.
func (cs *ChromaSTFT) Compute(magnitudeSpectrum []float64) []float64 {
	if len(cs.mapping) != len(magnitudeSpectrum) {
		cs.mapping = cs.calculateChromaMapping(len(magnitudeSpectrum))
	}

	chroma := make([]float64, cs.chromaBins)
	for f, magnitude := range magnitudeSpectrum {
		if bin := cs.mapping[f]; bin >= 0 {
			chroma[bin] += magnitude * magnitude
		}
	}

	normalizeChromaFrame(chroma)
	return chroma
}

// calculateChromaMapping maps FFT bins to chroma bins
func (cs *ChromaSTFT) calculateChromaMapping(numBins int) []int {
	mapping := make([]int, numBins)
	freqs := spectral.BinFrequencies(numBins, cs.sampleRate)

	for f, frequency := range freqs {
		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		// MIDI 0 is a C, so note % 12 indexes C..B directly
		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % 12) + 12) % 12
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number: 69 + 12*log2(f/A4)
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// normalizeChromaFrame normalizes a chroma frame to unit sum
func normalizeChromaFrame(chromaFrame []float64) {
	totalEnergy := 0.0
	for _, energy := range chromaFrame {
		totalEnergy += energy
	}

	if totalEnergy > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= totalEnergy
		}
	}
}

// GetChromaLabels returns the chroma bin labels
func (cs *ChromaSTFT) GetChromaLabels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}
