package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/smarm/internal/engine"
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/runtime"
)

const defaultExtra = 1000

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Step     string // Step the assertion was checking, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Step != "" {
		fmt.Fprintf(&buf, " (step %q)", e.Step)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// evaluateAssertion dispatches to the appropriate assertion checker.
func (h *Harness) evaluateAssertion(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertDeterministic:
		return h.assertDeterministic(ctx, a)
	case AssertBudgetMonotonic:
		return h.forSteps(a, func(step *Step, resp *runtime.Response) error {
			return h.assertBudgetMonotonic(ctx, step, resp, a)
		})
	case AssertExactBudget:
		return h.forSteps(a, func(step *Step, resp *runtime.Response) error {
			return h.assertExactBudget(ctx, step, resp)
		})
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// forSteps applies check to the named step, or to every step that produced
// a value when the assertion names none. A named step that halted fails.
func (h *Harness) forSteps(a Assertion, check func(*Step, *runtime.Response) error) error {
	if a.Step != "" {
		step, _ := h.scenario.step(a.Step)
		resp, ok := h.responses[a.Step]
		if !ok {
			return &AssertionError{Type: a.Type, Step: a.Step, Expected: "an evaluated step", Actual: "step was not evaluated"}
		}
		if resp.Halt != nil {
			return &AssertionError{Type: a.Type, Step: a.Step, Expected: "a step that produces a value", Actual: "halt " + string(resp.Halt.Code)}
		}
		return check(step, resp)
	}

	var errs []string
	for i := range h.scenario.Steps {
		step := &h.scenario.Steps[i]
		resp, ok := h.responses[step.Name]
		if !ok || resp.Halt != nil {
			continue
		}
		if err := check(step, resp); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}

// assertDeterministic replays the scenario's ledger Runs times and requires
// every record to reproduce each time.
func (h *Harness) assertDeterministic(ctx context.Context, a Assertion) error {
	runs := a.Runs
	if runs == 0 {
		runs = 1
	}
	replayer := engine.New(nil)
	for run := 1; run <= runs; run++ {
		report, err := replayer.ReplayStore(ctx, h.store)
		if err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}
		if !report.Deterministic() {
			m := report.Mismatches[0]
			return &AssertionError{
				Type:     AssertDeterministic,
				Expected: fmt.Sprintf("%d records reproduce on run %d", report.Total, run),
				Actual: fmt.Sprintf("%d mismatches; first %s: %s (recorded %s, replayed %s)",
					len(report.Mismatches), m.ID, m.Reason, m.Recorded, m.Replayed),
			}
		}
	}
	return nil
}

// assertBudgetMonotonic re-runs a step with both budgets raised and
// requires the identical outcome.
func (h *Harness) assertBudgetMonotonic(ctx context.Context, step *Step, resp *runtime.Response, a Assertion) error {
	extra := a.Extra
	if extra == 0 {
		extra = defaultExtra
	}
	req := h.request(step)
	req.StepBudget += extra
	req.MemoryBudget += extra

	got, err := h.rerun(ctx, step, req)
	if err != nil {
		return err
	}
	if !resp.Same(got) {
		return &AssertionError{
			Type:     AssertBudgetMonotonic,
			Step:     step.Name,
			Expected: outcomeText(resp),
			Actual:   outcomeText(got),
		}
	}
	return nil
}

// assertExactBudget re-runs a step with budgets equal to its usage, which
// must reproduce the outcome, and with one step fewer, which must exhaust
// the step budget.
func (h *Harness) assertExactBudget(ctx context.Context, step *Step, resp *runtime.Response) error {
	req := h.request(step)
	req.StepBudget = resp.StepsUsed
	req.MemoryBudget = max(resp.MemoryUsed, 1)

	got, err := h.rerun(ctx, step, req)
	if err != nil {
		return err
	}
	if !resp.Same(got) {
		return &AssertionError{
			Type:     AssertExactBudget,
			Step:     step.Name,
			Expected: outcomeText(resp),
			Actual:   outcomeText(got),
		}
	}

	if resp.StepsUsed <= 1 {
		return nil
	}
	req.StepBudget = resp.StepsUsed - 1
	got, err = h.rerun(ctx, step, req)
	if err != nil {
		return err
	}
	if got.HaltCode() != halt.CodeBudgetExhausted || got.Halt.Details["resource"] != "steps" {
		return &AssertionError{
			Type:     AssertExactBudget,
			Step:     step.Name,
			Expected: fmt.Sprintf("halt BUDGET_EXHAUSTED on steps with budget %d", req.StepBudget),
			Actual:   outcomeText(got),
		}
	}
	return nil
}

// rerun evaluates a modified request without recording it.
func (h *Harness) rerun(ctx context.Context, step *Step, req runtime.Request) (*runtime.Response, error) {
	o, err := engine.New(nil).Evaluate(ctx, engine.Job{Name: step.Name, Request: req})
	if err != nil {
		return nil, err
	}
	if o.Err != nil {
		return nil, fmt.Errorf("step %q: %w", step.Name, o.Err)
	}
	return o.Response, nil
}

func outcomeText(r *runtime.Response) string {
	if r.Halt != nil {
		return fmt.Sprintf("halt %s steps=%d memory=%d", r.Halt.Code, r.StepsUsed, r.MemoryUsed)
	}
	sr, err := stepResult("", r)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("result %s steps=%d memory=%d", sr.Result, r.StepsUsed, r.MemoryUsed)
}
