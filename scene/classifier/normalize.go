package classifier

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-scene/scene/extractors"
)

// ErrLengthMismatch is returned when a vector or scaler does not have
// exactly one entry per feature
var ErrLengthMismatch = errors.New("feature length mismatch")

// Normalize returns (v - mean) / scale for every slot. A zero scale entry
// comes from a feature that was constant during training and is treated as 1.
func Normalize(vector []float64, scaler *ScalerParams) ([]float64, error) {
	if scaler == nil {
		return nil, fmt.Errorf("%w: nil scaler", ErrLengthMismatch)
	}
	if len(vector) != extractors.FeatureCount {
		return nil, fmt.Errorf("%w: vector has %d entries, expected %d", ErrLengthMismatch, len(vector), extractors.FeatureCount)
	}
	if len(scaler.Mean) != extractors.FeatureCount || len(scaler.Scale) != extractors.FeatureCount {
		return nil, fmt.Errorf("%w: scaler has %d means and %d scales, expected %d",
			ErrLengthMismatch, len(scaler.Mean), len(scaler.Scale), extractors.FeatureCount)
	}

	out := make([]float64, len(vector))
	for i, v := range vector {
		scale := scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - scaler.Mean[i]) / scale
	}
	return out, nil
}
