package extractors

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-scene/algorithms/chroma"
	"github.com/RyanBlaney/sonido-scene/algorithms/common"
	"github.com/RyanBlaney/sonido-scene/algorithms/spectral"
	"github.com/RyanBlaney/sonido-scene/algorithms/temporal"
	"github.com/RyanBlaney/sonido-scene/algorithms/windowing"
	"github.com/RyanBlaney/sonido-scene/logging"
	"github.com/RyanBlaney/sonido-scene/scene/config"
	"github.com/RyanBlaney/sonido-scene/transcode"
)

// ErrSignalTooShort is returned when short signals are rejected and the
// signal holds less than one frame
var ErrSignalTooShort = errors.New("signal shorter than one frame")

// cancelCheckInterval is how many frames a pass processes between context checks
const cancelCheckInterval = 256

// Pass names, in execution order
var PassNames = []string{"rms", "zcr", "centroid", "rolloff", "spread", "mfcc", "contrast", "chroma"}

// ProgressFunc receives the local 0..100 gauge after each pass
type ProgressFunc func(percent int, pass string)

// Result is the output of one extraction
type Result struct {
	Features []float64            `json:"features"`
	Series   *TimeSeries          `json:"time_series"`
	Tempo    temporal.TempoResult `json:"tempo"`
}

// Extractor runs the feature passes over a signal. It holds configuration
// and a read-only analysis window, so one Extractor may serve concurrent calls.
type Extractor struct {
	config *config.PipelineConfig
	window *windowing.Hann
	logger logging.Logger
}

// NewExtractor creates an extractor. A nil config selects the defaults.
func NewExtractor(cfg *config.PipelineConfig) *Extractor {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	e := &Extractor{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
	if cfg.FrameSize > 0 {
		e.window = windowing.NewHann(cfg.FrameSize, false)
	}
	return e
}

// run is the per-call state: kernels sized for one sample rate and the
// spectrogram shared read-only by the spectral passes
type run struct {
	ctx        context.Context
	cfg        *config.PipelineConfig
	window     *windowing.Hann
	frames     *common.FrameIterator
	sampleRate int

	spectrogram *spectral.Spectrogram
	series      *TimeSeries
}

type pass func(r *run) error

// Extract runs all passes in order, estimates tempo and assembles the vector
func (e *Extractor) Extract(ctx context.Context, signal *transcode.Signal, progress ProgressFunc) (*Result, error) {
	if signal == nil {
		return nil, fmt.Errorf("nil signal")
	}

	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Extract",
		"samples":     signal.Len(),
		"sample_rate": signal.SampleRate(),
	})

	frames, err := common.NewFrameIterator(signal.Samples(), e.config.FrameSize, e.config.HopSize)
	if err != nil {
		return nil, err
	}

	if frames.Count() == 0 {
		if e.config.RejectShortSignals {
			return nil, fmt.Errorf("%w: %d samples, frame size %d", ErrSignalTooShort, signal.Len(), e.config.FrameSize)
		}
		logger.Warn("Signal shorter than one frame, features fall back to zero")
	}

	r := &run{
		ctx:        ctx,
		cfg:        e.config,
		window:     e.window,
		frames:     frames,
		sampleRate: signal.SampleRate(),
		series:     &TimeSeries{},
	}

	passes := []pass{
		rmsPass,
		zcrPass,
		centroidPass,
		rolloffPass,
		spreadPass,
		mfccPass,
		contrastPass,
		chromaPass,
	}

	for i, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p(r); err != nil {
			return nil, fmt.Errorf("%s pass failed: %w", PassNames[i], err)
		}
		if progress != nil {
			progress(localPercent(i, len(passes)), PassNames[i])
		}
	}

	tempoParams := temporal.DefaultTempoParams()
	tempoParams.HopSize = e.config.HopSize
	tempoParams.DefaultBPM = e.config.DefaultTempo
	tempoParams.ThresholdStdFactor = e.config.OnsetThresholdFactor
	tempoParams.MinOnsetSpacing = e.config.OnsetMinSpacing
	tempo := temporal.NewTempoEstimation(tempoParams).EstimateFromRMS(r.series.RMS, signal.SampleRate())

	features, err := Assemble(SignalInfo{
		Duration:   signal.Duration(),
		SampleRate: signal.SampleRate(),
	}, tempo, r.series)
	if err != nil {
		return nil, err
	}

	logger.Debug("Feature extraction complete", logging.Fields{
		"frames": frames.Count(),
		"tempo":  tempo.BPM,
		"onsets": len(tempo.Onsets),
	})

	return &Result{
		Features: features,
		Series:   r.series,
		Tempo:    tempo,
	}, nil
}

// localPercent is the gauge after pass i of n completes
func localPercent(i, n int) int {
	return int(math.Round(float64((i+1)*100) / float64(n)))
}

// spectrum computes the STFT on first use
func (r *run) spectrum() (*spectral.Spectrogram, error) {
	if r.spectrogram != nil {
		return r.spectrogram, nil
	}
	spec, err := spectral.NewSTFT(r.window, r.cfg.STFTWorkers).Compute(r.ctx, r.frames, r.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("STFT failed: %w", err)
	}
	r.spectrogram = spec
	return spec, nil
}

// scalarSeries evaluates fn for every frame, dropping non-finite values
func (r *run) scalarSeries(n int, fn func(i int) float64) ([]float64, error) {
	out := make([]float64, 0, n)
	for i := range n {
		if i%cancelCheckInterval == 0 {
			if err := r.ctx.Err(); err != nil {
				return nil, err
			}
		}
		if v := fn(i); common.IsFinite(v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []float64{0}, nil
	}
	return out, nil
}

// vectorSeries evaluates fn for every frame, dropping frames with any
// non-finite element
func (r *run) vectorSeries(n, width int, fn func(i int) ([]float64, error)) ([][]float64, error) {
	out := make([][]float64, 0, n)
	for i := range n {
		if i%cancelCheckInterval == 0 {
			if err := r.ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, err := fn(i)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if len(v) == width && common.AllFinite(v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return [][]float64{make([]float64, width)}, nil
	}
	return out, nil
}

func rmsPass(r *run) error {
	energies := temporal.NewEnergy().ComputeShortTimeRMS(r.frames)
	series, err := r.scalarSeries(len(energies), func(i int) float64 {
		return energies[i]
	})
	r.series.RMS = series
	return err
}

func zcrPass(r *run) error {
	zcr := spectral.NewZeroCrossingRate()
	series, err := r.scalarSeries(r.frames.Count(), func(i int) float64 {
		return zcr.Compute(r.frames.Frame(i))
	})
	r.series.ZCR = series
	return err
}

func centroidPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	sc := spectral.NewSpectralCentroid(r.sampleRate)
	series, err := r.scalarSeries(spec.TimeFrames, func(i int) float64 {
		return sc.Compute(spec.Magnitude[i])
	})
	r.series.Centroid = series
	return err
}

func rolloffPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	sr := spectral.NewSpectralRolloff(r.sampleRate)
	series, err := r.scalarSeries(spec.TimeFrames, func(i int) float64 {
		return sr.Compute(spec.Magnitude[i], r.cfg.RolloffThreshold)
	})
	r.series.Rolloff = series
	return err
}

// spreadPass recomputes each frame's centroid rather than reading the
// centroid series, which no longer lines up with frames once values drop
func spreadPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	sc := spectral.NewSpectralCentroid(r.sampleRate)
	sb := spectral.NewSpectralBandwidth(r.sampleRate)
	series, err := r.scalarSeries(spec.TimeFrames, func(i int) float64 {
		magnitude := spec.Magnitude[i]
		return sb.Compute(magnitude, sc.Compute(magnitude))
	})
	r.series.Spread = series
	return err
}

func mfccPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	mfcc := spectral.NewMFCCWithParams(r.sampleRate, spectral.MFCCParams{
		NumCoefficients: MFCCWidth,
		NumMelFilters:   r.cfg.MelFilters,
	})
	series, err := r.vectorSeries(spec.TimeFrames, mfcc.NumCoefficients(), func(i int) ([]float64, error) {
		return mfcc.Compute(spec.Magnitude[i])
	})
	r.series.MFCC = series
	return err
}

func contrastPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	contrast := spectral.NewSpectralContrast(ContrastWidth, r.cfg.ContrastOffset)
	series, err := r.vectorSeries(spec.TimeFrames, ContrastWidth, func(i int) ([]float64, error) {
		return contrast.Compute(spec.Magnitude[i]), nil
	})
	r.series.Contrast = series
	return err
}

func chromaPass(r *run) error {
	spec, err := r.spectrum()
	if err != nil {
		return err
	}
	cs := chroma.NewChromaSTFTDefault(r.sampleRate)
	series, err := r.vectorSeries(spec.TimeFrames, ChromaWidth, func(i int) ([]float64, error) {
		return cs.Compute(spec.Magnitude[i]), nil
	})
	r.series.Chroma = series
	return err
}
