package scene

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-scene/logging"
	"github.com/RyanBlaney/sonido-scene/scene/classifier"
	"github.com/RyanBlaney/sonido-scene/scene/config"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
	"github.com/RyanBlaney/sonido-scene/transcode"
)

// Decoder produces a Signal. Close releases whatever the decoder holds and
// is called as soon as Decode returns.
type Decoder interface {
	Decode(ctx context.Context) (*transcode.Signal, error)
	Close() error
}

// Analysis is the outcome of a complete run
type Analysis struct {
	JobID      string                 `json:"job_id"`
	Extraction *ExtractionResult      `json:"extraction"`
	Prediction *classifier.Prediction `json:"prediction"`
	States     []State                `json:"-"`
	Elapsed    time.Duration          `json:"elapsed"`
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithExtractor replaces the feature extractor
func WithExtractor(e FeatureExtractor) Option {
	return func(a *Analyzer) { a.extractor = e }
}

// WithStrategy replaces the classification strategy chosen from config
func WithStrategy(s classifier.Strategy) Option {
	return func(a *Analyzer) { a.strategy = s }
}

// WithStateObserver registers a callback for state transitions
func WithStateObserver(fn StateFunc) Option {
	return func(a *Analyzer) { a.observer = fn }
}

// WithLogger sets the base logger
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// Analyzer coordinates decoding, extraction and classification. It is
// safe for concurrent use; each call gets its own worker and state.
type Analyzer struct {
	config    *config.PipelineConfig
	extractor FeatureExtractor
	loader    *classifier.AssetLoader
	strategy  classifier.Strategy
	observer  StateFunc
	logger    logging.Logger

	mu         sync.RWMutex
	classifier *classifier.Classifier
}

// NewAnalyzer creates an analyzer. Assets must be loaded with LoadAssets
// before Classify or Analyze can succeed.
func NewAnalyzer(cfg *config.PipelineConfig, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}

	a := &Analyzer{
		config:    cfg,
		extractor: extractors.NewExtractor(cfg),
		logger: logging.WithFields(logging.Fields{
			"component": "scene_analyzer",
		}),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.loader = classifier.NewAssetLoader(a.strategy == nil && cfg.Strategy == config.StrategyNetwork)
	return a
}

// LoadAssets loads the scaler, labels and model from fsys. Calls after the
// first success are no-ops. Failures are tagged StageAssetLoad.
func (a *Analyzer) LoadAssets(fsys fs.FS) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.classifier != nil {
		return nil
	}

	bundle, err := a.loader.Load(fsys)
	if err != nil {
		return stageError(StageAssetLoad, "", err)
	}

	strategy := a.strategy
	if strategy == nil {
		strategy, err = a.strategyFor(bundle)
		if err != nil {
			return stageError(StageAssetLoad, "", err)
		}
	}

	c, err := classifier.New(bundle, strategy)
	if err != nil {
		return stageError(StageAssetLoad, "", err)
	}
	a.classifier = c
	return nil
}

func (a *Analyzer) strategyFor(bundle *classifier.AssetBundle) (classifier.Strategy, error) {
	switch a.config.Strategy {
	case config.StrategyRules:
		return classifier.NewRuleStrategy(), nil
	case config.StrategyNetwork:
		return classifier.NewNetworkStrategy(bundle.Model)
	default:
		return nil, fmt.Errorf("unknown strategy %q", a.config.Strategy)
	}
}

// Classify normalizes a raw feature vector and predicts a label
func (a *Analyzer) Classify(features []float64) (*classifier.Prediction, error) {
	return a.classify("", features)
}

func (a *Analyzer) classify(jobID string, features []float64) (pred *classifier.Prediction, err error) {
	a.mu.RLock()
	c := a.classifier
	a.mu.RUnlock()

	if c == nil {
		return nil, stageError(StageAssetLoad, jobID, classifier.ErrAssetsNotLoaded)
	}

	normalized, err := c.Normalize(features)
	if err != nil {
		return nil, stageError(StageNormalization, jobID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			pred = nil
			err = stageError(StageClassification, jobID, fmt.Errorf("classifier panicked: %v", r))
		}
	}()

	pred, err = c.Predict(features, normalized)
	if err != nil {
		return nil, stageError(StageClassification, jobID, err)
	}
	return pred, nil
}

// Analyze runs a full decode, extract and classify cycle
func (a *Analyzer) Analyze(ctx context.Context, decoder Decoder, progress ProgressFunc) (*Analysis, error) {
	start := time.Now()
	jobID := newJobID()
	ctx = logging.ContextWithFields(ctx, logging.Fields{"job_id": jobID})
	logger := a.logger.WithContext(ctx)

	sm := newStateMachine(jobID, a.observer)
	emitter := &progressEmitter{jobID: jobID, fn: progress}
	bands := a.config.Progress

	fail := func(stage Stage, err error) (*Analysis, error) {
		sm.fail()
		tagged := stageError(stage, jobID, err)
		logger.Error(err, "Analysis failed", logging.Fields{
			"stage":     StageOf(tagged),
			"retryable": IsRetryable(tagged),
		})
		return nil, tagged
	}

	if decoder == nil {
		return fail(StageDecode, errors.New("nil decoder"))
	}

	release := sync.OnceFunc(func() {
		if err := decoder.Close(); err != nil {
			logger.Warn("Failed to release decoder", logging.Fields{"error": err.Error()})
		}
	})
	defer release()

	a.mu.RLock()
	loaded := a.classifier != nil
	a.mu.RUnlock()
	if !loaded {
		return fail(StageAssetLoad, classifier.ErrAssetsNotLoaded)
	}

	// Decoding
	_ = sm.to(StateDecoding)
	if err := emitter.emit(0, "decode"); err != nil {
		return fail(StageDecode, err)
	}

	signal, err := decoder.Decode(ctx)
	release()
	if err != nil {
		return fail(StageDecode, err)
	}
	if signal == nil {
		return fail(StageDecode, transcode.ErrEmptySignal)
	}
	if err := emitter.emit(bands.DecodeEnd, "decode"); err != nil {
		return fail(StageDecode, err)
	}

	// Extracting
	_ = sm.to(StateExtracting)
	job := a.runPipeline(ctx, jobID, signal, Band{Start: bands.DecodeEnd, End: bands.ExtractEnd}, emitter)
	<-job.Done()
	if job.err != nil {
		return fail(StageExtraction, job.err)
	}

	// Classifying
	_ = sm.to(StateClassifying)
	pred, err := a.classify(jobID, job.result.Features)
	if err != nil {
		return fail(StageClassification, err)
	}
	if err := emitter.emit(100, "classify"); err != nil {
		return fail(StageClassification, err)
	}

	_ = sm.to(StateComplete)

	logger.Info("Analysis complete", logging.Fields{
		"label":      pred.Label,
		"confidence": pred.Confidence,
		"tempo":      job.result.Tempo.BPM,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return &Analysis{
		JobID:      jobID,
		Extraction: job.result,
		Prediction: pred,
		States:     sm.history,
		Elapsed:    time.Since(start),
	}, nil
}

func newJobID() string {
	return uuid.NewString()
}
