package transcode

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrEmptySignal is returned for a signal without samples
	ErrEmptySignal = errors.New("signal has no samples")
	// ErrInvalidSampleRate is returned for a non-positive sample rate
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrInvalidDuration is returned for a non-finite or non-positive duration
	ErrInvalidDuration = errors.New("invalid duration")
)

// Signal is decoded mono audio handed to the analysis pipeline.
//
// A Signal takes ownership of the sample slice passed to NewSignal: once
// constructed, neither the decoder nor the caller may modify that slice.
// Submitting a Signal to the pipeline transfers it to the worker for the
// duration of extraction.
type Signal struct {
	pcm        []float64
	sampleRate int
	duration   float64
	Metadata   *SignalMetadata `json:"metadata,omitempty"`
}

// SignalMetadata describes where a signal came from
type SignalMetadata struct {
	Source     string        `json:"source"`
	Format     string        `json:"format"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	DecodeTime time.Duration `json:"decode_time"`
}

// NewSignal validates and wraps decoded samples. duration is in seconds.
func NewSignal(samples []float64, sampleRate int, duration float64) (*Signal, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	return &Signal{
		pcm:        samples,
		sampleRate: sampleRate,
		duration:   duration,
	}, nil
}

// Samples returns the sample slice. It must be treated as read-only.
func (s *Signal) Samples() []float64 {
	return s.pcm
}

// Len returns the number of samples
func (s *Signal) Len() int {
	return len(s.pcm)
}

// SampleRate returns the sample rate in Hz
func (s *Signal) SampleRate() int {
	return s.sampleRate
}

// Duration returns the duration in seconds as reported by the decoder
func (s *Signal) Duration() float64 {
	return s.duration
}

// Clone returns a deep copy, for callers that need to keep reading samples
// after handing the original to the pipeline
func (s *Signal) Clone() *Signal {
	pcm := make([]float64, len(s.pcm))
	copy(pcm, s.pcm)

	clone := &Signal{
		pcm:        pcm,
		sampleRate: s.sampleRate,
		duration:   s.duration,
	}
	if s.Metadata != nil {
		meta := *s.Metadata
		clone.Metadata = &meta
	}
	return clone
}
