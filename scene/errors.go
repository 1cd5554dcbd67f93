package scene

import (
	"context"
	"errors"
	"fmt"
)

// Stage identifies where an analysis failed
type Stage string

const (
	StageDecode         Stage = "decode"
	StageExtraction     Stage = "extraction"
	StageNormalization  Stage = "normalization"
	StageClassification Stage = "classification"
	StageAssetLoad      Stage = "asset_load"
)

// ErrWorkerPanic wraps a panic recovered inside an extraction worker
var ErrWorkerPanic = errors.New("extraction worker panicked")

// ErrProgressPanic wraps a panic recovered from a caller's ProgressFunc
var ErrProgressPanic = errors.New("progress callback panicked")

// AnalysisError tags a failure with the stage that produced it
type AnalysisError struct {
	Stage Stage
	JobID string
	Err   error
}

func (e *AnalysisError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("%s failed (job %s): %v", e.Stage, e.JobID, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed.
// Decode, normalization and asset failures need a different input or
// reloaded assets first, unless the run was cut short by its context.
func (e *AnalysisError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	switch e.Stage {
	case StageExtraction, StageClassification:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable stage
func IsRetryable(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Retryable()
}

// StageOf returns the stage of err, or "" if it was not tagged
func StageOf(err error) Stage {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

func stageError(stage Stage, jobID string, err error) error {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return &AnalysisError{Stage: stage, JobID: jobID, Err: err}
}
