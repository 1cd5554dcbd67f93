package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-scene/algorithms/common"
)

// TempoParams configures tempo estimation
type TempoParams struct {
	HopSize            int     `json:"hop_size"`             // samples between RMS frames
	DefaultBPM         float64 `json:"default_bpm"`          // returned with fewer than 2 onsets
	ThresholdStdFactor float64 `json:"threshold_std_factor"` // onset threshold = mean + factor*std
	MinOnsetSpacing    float64 `json:"min_onset_spacing"`    // seconds
	OctaveLow          float64 `json:"octave_low"`           // double while below
	OctaveHigh         float64 `json:"octave_high"`          // halve while above
	MinBPM             float64 `json:"min_bpm"`
	MaxBPM             float64 `json:"max_bpm"`
}

// DefaultTempoParams returns the standard tempo estimation parameters
func DefaultTempoParams() TempoParams {
	return TempoParams{
		HopSize:            512,
		DefaultBPM:         120,
		ThresholdStdFactor: 0.3,
		MinOnsetSpacing:    0.2,
		OctaveLow:          80,
		OctaveHigh:         180,
		MinBPM:             60,
		MaxBPM:             200,
	}
}

// TempoResult holds the estimated tempo and the onsets it was derived from
type TempoResult struct {
	BPM    float64 `json:"bpm"`
	Onsets []int   `json:"onsets"` // frame indices
}

// TempoEstimation estimates beats per minute from an RMS envelope
type TempoEstimation struct {
	params        TempoParams
	onsetDetector *OnsetDetection
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation(params TempoParams) *TempoEstimation {
	return &TempoEstimation{
		params:        params,
		onsetDetector: NewOnsetDetection(params.ThresholdStdFactor, params.MinOnsetSpacing),
	}
}

// FrameRate returns RMS frames per second at sampleRate
func (te *TempoEstimation) FrameRate(sampleRate int) float64 {
	return float64(sampleRate) / float64(te.params.HopSize)
}

// EstimateFromRMS estimates tempo from a per-frame RMS series.
//
// The median inter-onset interval is used rather than the mean so that a few
// double- or half-time onsets do not drag the estimate. The result is folded
// into [OctaveLow, OctaveHigh], clamped to [MinBPM, MaxBPM] and rounded.
func (te *TempoEstimation) EstimateFromRMS(rms []float64, sampleRate int) TempoResult {
	frameRate := te.FrameRate(sampleRate)
	onsets := te.onsetDetector.DetectFromRMS(rms, frameRate)

	if len(onsets) < 2 {
		return TempoResult{BPM: te.params.DefaultBPM, Onsets: onsets}
	}

	intervals := make([]float64, len(onsets)-1)
	for i := range intervals {
		intervals[i] = float64(onsets[i+1] - onsets[i])
	}

	bpm := 60.0 * frameRate / common.Median(intervals)
	bpm = te.octaveCorrect(bpm)
	bpm = math.Round(common.Clamp(bpm, te.params.MinBPM, te.params.MaxBPM))

	return TempoResult{BPM: bpm, Onsets: onsets}
}

func (te *TempoEstimation) octaveCorrect(bpm float64) float64 {
	if bpm <= 0 || math.IsInf(bpm, 0) || math.IsNaN(bpm) {
		return bpm
	}
	for bpm > te.params.OctaveHigh {
		bpm /= 2
	}
	for bpm < te.params.OctaveLow {
		bpm *= 2
	}
	return bpm
}

// ClassifyTempoCategory classifies tempo into broad categories
func (te *TempoEstimation) ClassifyTempoCategory(tempo float64) string {
	switch {
	case tempo < 60:
		return "very_slow"
	case tempo < 90:
		return "slow"
	case tempo < 120:
		return "moderate"
	case tempo < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
