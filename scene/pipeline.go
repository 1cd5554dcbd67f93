package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-scene/algorithms/temporal"
	"github.com/RyanBlaney/sonido-scene/logging"
	"github.com/RyanBlaney/sonido-scene/scene/extractors"
	"github.com/RyanBlaney/sonido-scene/transcode"
)

// FeatureExtractor turns a signal into a feature vector, reporting a local
// 0..100 gauge once per pass
type FeatureExtractor interface {
	Extract(ctx context.Context, signal *transcode.Signal, progress extractors.ProgressFunc) (*extractors.Result, error)
}

// ExtractionResult is the terminal payload of a successful job
type ExtractionResult struct {
	JobID    string                 `json:"job_id"`
	Features []float64              `json:"features"`
	Series   *extractors.TimeSeries `json:"time_series"`
	Tempo    temporal.TempoResult   `json:"tempo"`
	Elapsed  time.Duration          `json:"elapsed"`
}

type messageKind int

const (
	messageProgress messageKind = iota
	messageResult
	messageError
)

// workerMessage is the only thing a worker shares with its coordinator
type workerMessage struct {
	kind    messageKind
	percent int
	pass    string
	result  *extractors.Result
	err     error
}

// Job is one in-flight extraction
type Job struct {
	ID string

	done   chan struct{}
	result *ExtractionResult
	err    error
}

// Done is closed once the job has a result or an error
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends. Ending ctx stops the
// wait only; cancel the context given to RunPipeline to stop the work.
func (j *Job) Wait(ctx context.Context) (*ExtractionResult, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunPipeline extracts features from signal on a dedicated worker goroutine.
// The signal is handed to the worker and must not be touched by the caller
// until the job is done. Progress spans the full 0..100 gauge.
func (a *Analyzer) RunPipeline(ctx context.Context, signal *transcode.Signal, progress ProgressFunc) *Job {
	jobID := newJobID()
	emitter := &progressEmitter{jobID: jobID, fn: progress}
	return a.runPipeline(ctx, jobID, signal, FullBand, emitter)
}

func (a *Analyzer) runPipeline(ctx context.Context, jobID string, signal *transcode.Signal, band Band, emitter *progressEmitter) *Job {
	job := &Job{
		ID:   jobID,
		done: make(chan struct{}),
	}

	ctx = logging.ContextWithFields(ctx, logging.Fields{"job_id": jobID})
	logger := a.logger.WithContext(ctx)

	if signal == nil {
		job.err = stageError(StageExtraction, jobID, errors.New("nil signal"))
		close(job.done)
		return job
	}

	handoff := make(chan *transcode.Signal, 1)
	messages := make(chan workerMessage)

	handoff <- signal
	close(handoff)

	go a.work(ctx, handoff, messages)

	go func() {
		defer close(job.done)
		start := time.Now()

		for msg := range messages {
			switch msg.kind {
			case messageProgress:
				if err := emitter.emit(band.Remap(msg.percent), msg.pass); err != nil {
					job.err = stageError(StageExtraction, jobID, err)
					logger.Error(err, "Progress callback failed")
					// let the worker run to completion
					go func() {
						for range messages {
						}
					}()
					return
				}

			case messageResult:
				job.result = &ExtractionResult{
					JobID:    jobID,
					Features: msg.result.Features,
					Series:   msg.result.Series,
					Tempo:    msg.result.Tempo,
					Elapsed:  time.Since(start),
				}
				logger.Debug("Extraction finished", logging.Fields{
					"elapsed_ms": time.Since(start).Milliseconds(),
				})
				return

			case messageError:
				job.err = stageError(StageExtraction, jobID, msg.err)
				logger.Error(msg.err, "Extraction failed")
				return
			}
		}

		job.err = stageError(StageExtraction, jobID, errors.New("worker exited without a result"))
	}()

	return job
}

// work runs on the worker goroutine. It always ends with exactly one
// result or error message.
func (a *Analyzer) work(ctx context.Context, handoff <-chan *transcode.Signal, out chan<- workerMessage) {
	defer close(out)
	defer func() {
		if r := recover(); r != nil {
			out <- workerMessage{kind: messageError, err: fmt.Errorf("%w: %v", ErrWorkerPanic, r)}
		}
	}()

	signal := <-handoff

	result, err := a.extractor.Extract(ctx, signal, func(percent int, pass string) {
		out <- workerMessage{kind: messageProgress, percent: percent, pass: pass}
	})
	if err != nil {
		out <- workerMessage{kind: messageError, err: err}
		return
	}
	if result == nil {
		out <- workerMessage{kind: messageError, err: errors.New("extractor returned no result")}
		return
	}

	out <- workerMessage{kind: messageResult, result: result}
}
