package temporal

import (
	"github.com/RyanBlaney/sonido-scene/algorithms/common"
)

// Energy computes frame energy features
type Energy struct{}

// NewEnergy creates a new energy calculator
func NewEnergy() *Energy {
	return &Energy{}
}

// ComputeRMS returns the root-mean-square amplitude of one frame
func (e *Energy) ComputeRMS(frame []float64) float64 {
	return common.RMS(frame)
}

// ComputeShortTimeRMS calculates RMS for every frame of the iterator
func (e *Energy) ComputeShortTimeRMS(frames *common.FrameIterator) []float64 {
	energies := make([]float64, 0, frames.Count())
	for _, frame := range frames.All() {
		energies = append(energies, e.ComputeRMS(frame))
	}
	return energies
}
