package common

import (
	"fmt"
	"iter"
)

// FrameIterator slices a signal into overlapping fixed-size windows.
// Frames are views into the signal, not copies; callers must not modify them.
// The trailing partial frame is dropped.
type FrameIterator struct {
	signal    []float64
	frameSize int
	hopSize   int
	count     int
}

// NewFrameIterator creates a frame iterator over signal
func NewFrameIterator(signal []float64, frameSize, hopSize int) (*FrameIterator, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hopSize)
	}

	return &FrameIterator{
		signal:    signal,
		frameSize: frameSize,
		hopSize:   hopSize,
		count:     FrameCount(len(signal), frameSize, hopSize),
	}, nil
}

// FrameCount returns ⌊(n − frameSize)/hop⌋ + 1, or 0 when n < frameSize
func FrameCount(n, frameSize, hopSize int) int {
	if n < frameSize || frameSize <= 0 || hopSize <= 0 {
		return 0
	}
	return (n-frameSize)/hopSize + 1
}

// Count returns the number of full frames
func (fi *FrameIterator) Count() int {
	return fi.count
}

// Frame returns the i-th frame view
func (fi *FrameIterator) Frame(i int) []float64 {
	start := i * fi.hopSize
	return fi.signal[start : start+fi.frameSize : start+fi.frameSize]
}

// All yields (index, frame) pairs. Each call starts over from the first frame.
func (fi *FrameIterator) All() iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		for i := range fi.count {
			if !yield(i, fi.Frame(i)) {
				return
			}
		}
	}
}

// GetFrameSize returns the frame size
func (fi *FrameIterator) GetFrameSize() int {
	return fi.frameSize
}

// GetHopSize returns the hop size
func (fi *FrameIterator) GetHopSize() int {
	return fi.hopSize
}
