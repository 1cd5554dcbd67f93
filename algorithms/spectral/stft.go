package spectral

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-scene/algorithms/common"
	"github.com/RyanBlaney/sonido-scene/algorithms/windowing"
)

// STFT computes magnitude spectrograms over a frame iterator
type STFT struct {
	fft     *FFT
	window  *windowing.Hann
	workers int
}

// Spectrogram holds one magnitude spectrum per frame
type Spectrogram struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
}

// NewSTFT creates a new STFT calculator. A nil window selects a periodic Hann
// window of the frame size; workers <= 0 picks a count from the workload.
func NewSTFT(window *windowing.Hann, workers int) *STFT {
	return &STFT{
		fft:     NewFFT(),
		window:  window,
		workers: workers,
	}
}

// Compute windows every frame and takes its magnitude spectrum.
// Frames are processed by a small set of goroutines; each frame writes only its own row,
// so the result does not depend on scheduling.
func (s *STFT) Compute(ctx context.Context, frames *common.FrameIterator, sampleRate int) (*Spectrogram, error) {
	if frames == nil {
		return nil, fmt.Errorf("nil frame iterator")
	}

	windowSize := frames.GetFrameSize()
	numFrames := frames.Count()
	freqBins := windowSize/2 + 1

	window := s.window
	if window == nil {
		window = windowing.NewHann(windowSize, false)
	}
	if window.GetSize() != windowSize {
		return nil, fmt.Errorf("window size %d doesn't match frame size %d", window.GetSize(), windowSize)
	}

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.workerCount(numFrames)

	jobs := make(chan int, numFrames)
	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				window.ApplyTo(frameBuffer, frames.Frame(frameIdx))
				s.fft.MagnitudeInto(magnitude[frameIdx], frameBuffer)
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Spectrogram{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        frames.GetHopSize(),
		FreqResolution: float64(sampleRate) / float64(windowSize),
	}, nil
}

// workerCount determines the number of workers based on workload
func (s *STFT) workerCount(numFrames int) int {
	if s.workers > 0 {
		return max(1, min(s.workers, numFrames))
	}

	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
