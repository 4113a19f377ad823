package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/smarm/internal/runtime"
	"github.com/roach88/smarm/internal/store"
)

// Replay re-evaluates recorded evaluations and checks that each one
// reproduces.
//
// A record reproduces when evaluating its request again gives the same
// manifest ID, the same result bytes or halt code, and the same step and
// memory usage. Nothing else may differ between hosts: evaluation depends
// only on the program, the budgets and the environment version.
//
// Replay uses the engine's worker pool but never records and never applies
// the quota: the records were accepted when they were written.

// Mismatch describes one record that did not reproduce.
type Mismatch struct {
	ID       string
	Seq      int64
	Reason   string
	Recorded string
	Replayed string
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Total      int
	Reproduced int
	Mismatches []Mismatch
}

// Deterministic reports whether every record reproduced.
func (r *ReplayReport) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Err returns a RuntimeError for the first mismatch, or nil.
func (r *ReplayReport) Err() error {
	if r.Deterministic() {
		return nil
	}
	return NewReplayMismatchError(r.Mismatches[0])
}

// Replay re-evaluates records in ledger order.
func (e *Engine) Replay(ctx context.Context, records []store.Evaluation) (*ReplayReport, error) {
	slog.Info("replay starting", "records", len(records), "workers", e.workers)

	jobs := make([]Job, len(records))
	for i, ev := range records {
		jobs[i] = Job{Name: ev.ID, Request: RequestOf(ev)}
	}

	report := &ReplayReport{Total: len(records)}
	outcomes := make([]Outcome, len(jobs))
	e.dispatch(ctx, jobs, false, outcomes, func(o *Outcome) {
		if ctx.Err() != nil {
			return
		}
		if m, ok := compare(records[o.Job], o); !ok {
			slog.Warn("replay mismatch", "id", m.ID, "seq", m.Seq, "reason", m.Reason)
			report.Mismatches = append(report.Mismatches, m)
			return
		}
		report.Reproduced++
	})
	if err := ctx.Err(); err != nil {
		return report, err
	}

	slog.Info("replay finished", "records", report.Total, "mismatches", len(report.Mismatches))
	return report, nil
}

// ReplayStore replays every record of a ledger.
func (e *Engine) ReplayStore(ctx context.Context, s *store.Store) (*ReplayReport, error) {
	records, err := s.ListEvaluations(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return e.Replay(ctx, records)
}

func compare(ev store.Evaluation, o *Outcome) (Mismatch, bool) {
	m := Mismatch{ID: ev.ID, Seq: ev.Seq}
	recorded := ResponseOf(ev)
	m.Recorded = describe(recorded)

	if o.Err != nil {
		m.Reason = "request rejected"
		m.Replayed = o.Err.Error()
		return m, false
	}
	m.Replayed = describe(o.Response)

	switch {
	case o.Response.ManifestID != ev.ManifestID:
		m.Reason = "environment manifest changed"
		m.Recorded, m.Replayed = ev.ManifestID, o.Response.ManifestID
		return m, false
	case !recorded.Same(o.Response):
		m.Reason = "outcome differs"
		return m, false
	}
	return m, true
}

// describe renders an outcome for mismatch reports.
func describe(r *runtime.Response) string {
	if r.Halt != nil {
		return fmt.Sprintf("halt %s steps=%d memory=%d", r.Halt.Code, r.StepsUsed, r.MemoryUsed)
	}
	return fmt.Sprintf("result %s steps=%d memory=%d", r.ResultID, r.StepsUsed, r.MemoryUsed)
}
