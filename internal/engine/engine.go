package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/smarm/internal/runtime"
	"github.com/roach88/smarm/internal/store"
)

// Recorder persists evaluation records. Implemented by *store.Store.
type Recorder interface {
	WriteEvaluation(ctx context.Context, ev store.Evaluation) error
}

// DefaultWorkers is the default number of concurrent evaluations.
const DefaultWorkers = 4

// Engine runs batches of evaluations.
//
// Evaluations run in parallel on a bounded pool of workers; each one owns
// its budget and machine and shares only the immutable root environments.
// Records are written by a single writer, the goroutine that called Run,
// in submission order, so the ledger is the same whatever order the
// workers finish in.
//
// Thread-safety model:
//   - Run and Replay may be called from any goroutine, but calls that share
//     a Recorder should not overlap: seq order across overlapping batches
//     is unspecified.
type Engine struct {
	recorder Recorder
	clock    *Clock
	ids      IDGenerator
	workers  int
	quota    *QuotaEnforcer
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithWorkers sets the number of concurrent evaluations.
// Values below 1 are treated as 1.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithClock sets the clock that stamps records. Use NewClockAt with the
// ledger's last seq to append to an existing ledger.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the record ID generator.
//
// Default: UUIDv7Generator. Use NewFixedGenerator in tests for stable IDs.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithQuota rejects requests whose budgets exceed the given ceilings.
// A zero ceiling means unlimited.
func WithQuota(maxSteps, maxMemory int64) EngineOption {
	return func(e *Engine) {
		e.quota = NewQuotaEnforcer(maxSteps, maxMemory)
	}
}

// New creates an Engine that records through rec. A nil rec runs batches
// without recording them.
func New(rec Recorder, opts ...EngineOption) *Engine {
	e := &Engine{
		recorder: rec,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		workers:  DefaultWorkers,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Job is one submitted evaluation.
type Job struct {
	// Name labels the job in logs and reports; it is not recorded.
	Name    string
	Request runtime.Request
}

// Outcome is the result of one job.
//
// Exactly one of Response and Err is set. A halted evaluation is a
// Response, not an Err: Err reports jobs that were never evaluated (quota,
// invalid request, cancellation).
type Outcome struct {
	Job      int
	Name     string
	Request  runtime.Request
	Response *runtime.Response

	// Record is the ledger record, or nil if the outcome was not recorded.
	Record *store.Evaluation

	Err error
}

// Run evaluates jobs and records every evaluated outcome.
//
// Outcomes are returned in submission order. The returned error is non-nil
// only if recording failed or ctx was cancelled; per-job failures are in
// Outcome.Err. Records written before a failure stay written.
func (e *Engine) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	slog.Info("batch starting", "jobs", len(jobs), "workers", e.workers)

	outcomes := make([]Outcome, len(jobs))
	var writeErr error
	e.dispatch(ctx, jobs, true, outcomes, func(o *Outcome) {
		if writeErr != nil {
			return
		}
		if err := e.record(ctx, o); err != nil {
			writeErr = err
		}
	})
	if writeErr != nil {
		return outcomes, writeErr
	}
	if err := ctx.Err(); err != nil {
		slog.Info("batch stopping: context cancelled")
		return outcomes, err
	}

	halted := 0
	for _, o := range outcomes {
		if o.Response != nil && o.Response.Halt != nil {
			halted++
		}
	}
	slog.Info("batch finished", "jobs", len(jobs), "halted", halted, "seq", e.clock.Current())
	return outcomes, nil
}

// Evaluate runs and records a single job.
func (e *Engine) Evaluate(ctx context.Context, job Job) (Outcome, error) {
	outcomes, err := e.Run(ctx, []Job{job})
	if err != nil {
		return Outcome{}, err
	}
	return outcomes[0], nil
}

// dispatch evaluates jobs on the worker pool and calls sink on the calling
// goroutine once per job, in submission order.
func (e *Engine) dispatch(ctx context.Context, jobs []Job, enforce bool, outcomes []Outcome, sink func(*Outcome)) {
	done := make(chan int, len(jobs))

	go func() {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := range jobs {
			i := i
			g.Go(func() error {
				outcomes[i] = e.evaluate(ctx, i, jobs[i], enforce)
				done <- i
				return nil
			})
		}
		g.Wait()
		close(done)
	}()

	ready := make([]bool, len(jobs))
	next := 0
	for i := range done {
		ready[i] = true
		for next < len(jobs) && ready[next] {
			sink(&outcomes[next])
			next++
		}
	}
}

// evaluate runs one job. Called from worker goroutines.
func (e *Engine) evaluate(ctx context.Context, i int, job Job, enforce bool) Outcome {
	o := Outcome{Job: i, Name: job.Name, Request: job.Request}
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	if enforce {
		if err := e.quota.Check(i, job.Request); err != nil {
			o.Err = err
			return o
		}
	}

	resp, err := runtime.Evaluate(job.Request)
	if err != nil {
		if errors.Is(err, runtime.ErrInvalidRequest) {
			o.Err = NewInvalidRequestError(i, err)
		} else {
			o.Err = fmt.Errorf("job %d: %w", i, err)
		}
		return o
	}
	o.Response = resp
	return o
}

// record writes o to the ledger. Called only from the writer goroutine.
func (e *Engine) record(ctx context.Context, o *Outcome) error {
	if o.Err != nil {
		slog.Warn("job not evaluated", "job", o.Job, "name", o.Name, "error", o.Err)
		return nil
	}
	if e.recorder == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return nil
	}

	ev := NewRecord(e.ids.Generate(), e.clock.Next(), o.Request, o.Response)
	if err := e.recorder.WriteEvaluation(ctx, ev); err != nil {
		return fmt.Errorf("record job %d: %w", o.Job, err)
	}
	o.Record = &ev

	slog.Debug("evaluation recorded",
		"job", o.Job,
		"name", o.Name,
		"seq", ev.Seq,
		"program", ev.ProgramID,
		"halt", ev.HaltCode,
		"steps", ev.StepsUsed,
	)
	return nil
}
