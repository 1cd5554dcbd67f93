package temporal

import (
	"github.com/RyanBlaney/sonido-scene/algorithms/common"
)

// OnsetDetection picks energy peaks out of a per-frame RMS envelope
type OnsetDetection struct {
	thresholdStdFactor float64 // threshold = mean + factor*std
	minSpacingSeconds  float64 // minimum time between onsets
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection(thresholdStdFactor, minSpacingSeconds float64) *OnsetDetection {
	return &OnsetDetection{
		thresholdStdFactor: thresholdStdFactor,
		minSpacingSeconds:  minSpacingSeconds,
	}
}

// MinSpacingFrames converts the minimum onset spacing into frames at frameRate
func (od *OnsetDetection) MinSpacingFrames(frameRate float64) int {
	return int(od.minSpacingSeconds * frameRate)
}

// DetectFromRMS returns the frame indices of onsets in rms.
//
// A frame is an onset when its value exceeds mean + factor*std, it is a strict
// local peak, and it is at least minSpacing frames after the previous onset.
// The first minSpacing frames are skipped.
func (od *OnsetDetection) DetectFromRMS(rms []float64, frameRate float64) []int {
	if len(rms) < 3 {
		return []int{}
	}

	threshold := common.Mean(rms) + od.thresholdStdFactor*common.PopStdDev(rms)
	minSpacing := od.MinSpacingFrames(frameRate)

	onsets := []int{}
	lastOnset := -minSpacing

	for i := max(minSpacing, 1); i < len(rms)-1; i++ {
		if rms[i] > threshold &&
			rms[i] > rms[i-1] &&
			rms[i] > rms[i+1] &&
			i-lastOnset >= minSpacing {
			onsets = append(onsets, i)
			lastOnset = i
		}
	}

	return onsets
}
