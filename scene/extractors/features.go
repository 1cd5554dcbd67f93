package extractors

import (
	"fmt"
	"strconv"

	"github.com/RyanBlaney/sonido-scene/algorithms/stats"
	"github.com/RyanBlaney/sonido-scene/algorithms/temporal"
)

// Widths of the vector-valued passes
const (
	MFCCWidth     = 13
	ContrastWidth = 7
	ChromaWidth   = 12
)

// FeatureCount is the length of every feature vector
const FeatureCount = 12 + MFCCWidth + ContrastWidth + ChromaWidth

// FeatureNames lists the vector slots in order. Scaler and model assets are
// indexed by this order, so it must never change.
var FeatureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := []string{
		"duration",
		"sample_rate",
		"tempo",
		"beat_count",
		"rms_mean",
		"rms_std",
		"rms_max",
		"zcr_mean",
		"centroid_mean",
		"centroid_std",
		"rolloff_mean",
		"bandwidth_mean",
	}
	for i := range MFCCWidth {
		names = append(names, "mfcc_"+strconv.Itoa(i))
	}
	for i := range ContrastWidth {
		names = append(names, "contrast_"+strconv.Itoa(i))
	}
	for i := range ChromaWidth {
		names = append(names, "chroma_"+strconv.Itoa(i))
	}
	return names
}

// FeatureIndex returns the slot of a named feature
func FeatureIndex(name string) (int, bool) {
	for i, n := range FeatureNames {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// TimeSeries holds the per-frame output of every pass, after non-finite
// frames have been dropped. A pass with no surviving frames holds a single
// zero value (or one zero row for vector passes).
type TimeSeries struct {
	RMS      []float64   `json:"rms"`
	ZCR      []float64   `json:"zcr"`
	Centroid []float64   `json:"centroid"`
	Rolloff  []float64   `json:"rolloff"`
	Spread   []float64   `json:"spread"`
	MFCC     [][]float64 `json:"mfcc"`     // frames x 13
	Contrast [][]float64 `json:"contrast"` // frames x 7
	Chroma   [][]float64 `json:"chroma"`   // frames x 12
}

// SignalInfo carries the signal-level slots of the vector
type SignalInfo struct {
	Duration   float64 `json:"duration"` // seconds
	SampleRate int     `json:"sample_rate"`
}

// Assemble reduces the time series to the fixed 44-slot feature vector
func Assemble(info SignalInfo, tempo temporal.TempoResult, series *TimeSeries) ([]float64, error) {
	if series == nil {
		return nil, fmt.Errorf("nil time series")
	}

	rms := stats.Summarize(series.RMS)
	centroid := stats.Summarize(series.Centroid)

	vector := make([]float64, 0, FeatureCount)
	vector = append(vector,
		info.Duration,
		float64(info.SampleRate),
		tempo.BPM,
		float64(len(tempo.Onsets)),
		rms.Mean,
		rms.StdDev,
		rms.Max,
		stats.Summarize(series.ZCR).Mean,
		centroid.Mean,
		centroid.StdDev,
		stats.Summarize(series.Rolloff).Mean,
		stats.Summarize(series.Spread).Mean,
	)
	vector = append(vector, stats.ColumnMeans(series.MFCC, MFCCWidth)...)
	vector = append(vector, stats.ColumnMeans(series.Contrast, ContrastWidth)...)
	vector = append(vector, stats.ColumnMeans(series.Chroma, ChromaWidth)...)

	if len(vector) != FeatureCount {
		return nil, fmt.Errorf("assembled %d features, expected %d", len(vector), FeatureCount)
	}
	return vector, nil
}
