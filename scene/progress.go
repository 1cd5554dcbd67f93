package scene

import (
	"fmt"
	"math"
)

// Progress is one overall-progress event
type Progress struct {
	JobID   string `json:"job_id"`
	Percent int    `json:"percent"` // 0..100, never decreasing within a job
	Stage   string `json:"stage"`
}

// ProgressFunc receives progress events on the coordinating goroutine,
// in order
type ProgressFunc func(Progress)

// Band is the slice of the overall 0..100 gauge reserved for one stage
type Band struct {
	Start int
	End   int
}

// FullBand spans the whole gauge
var FullBand = Band{Start: 0, End: 100}

// Remap converts a local 0..100 percentage into the band
func (b Band) Remap(local int) int {
	local = min(max(local, 0), 100)
	return b.Start + int(math.Round(float64(local)*float64(b.End-b.Start)/100))
}

// progressEmitter delivers events and keeps them non-decreasing. A panic
// in the callback is returned as ErrProgressPanic and silences the emitter.
type progressEmitter struct {
	jobID  string
	fn     ProgressFunc
	last   int
	broken bool
}

func (p *progressEmitter) emit(percent int, stage string) (err error) {
	if p.fn == nil || p.broken {
		return nil
	}
	percent = max(percent, p.last)
	p.last = percent

	defer func() {
		if r := recover(); r != nil {
			p.broken = true
			err = fmt.Errorf("%w: %v", ErrProgressPanic, r)
		}
	}()
	p.fn(Progress{JobID: p.jobID, Percent: percent, Stage: stage})
	return nil
}
