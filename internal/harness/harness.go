package harness

import (
	"context"
	"fmt"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/engine"
	"github.com/roach88/smarm/internal/runtime"
	"github.com/roach88/smarm/internal/store"
)

// Harness holds the state of one scenario execution.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *engine.Engine

	// responses holds the outcome of each evaluated step by name.
	responses map[string]*runtime.Response
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory ledger for isolation. Record IDs
// come from a fixed generator so the ledger contents are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Evaluate every step through the engine, recording each outcome
// 3. Check each step against its expectation
// 4. Evaluate the scenario assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := make([]string, len(scenario.Steps))
	for i := range scenario.Steps {
		ids[i] = fmt.Sprintf("%s-%03d", scenario.Name, i+1)
	}

	h := &Harness{
		scenario:  scenario,
		store:     st,
		engine:    engine.New(st, engine.WithIDGenerator(engine.NewFixedGenerator(ids...))),
		responses: make(map[string]*runtime.Response, len(scenario.Steps)),
	}

	result := NewResult()
	if err := h.executeSteps(ctx, result); err != nil {
		return nil, err
	}

	for _, assertion := range scenario.Assertions {
		if err := h.evaluateAssertion(ctx, assertion); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

// request builds the evaluation request for a step.
func (h *Harness) request(step *Step) runtime.Request {
	b := h.scenario.budgetFor(step)
	return runtime.Request{
		Program:      step.encoded,
		StepBudget:   b.Steps,
		MemoryBudget: b.Memory,
		EnvVersion:   h.scenario.Env,
		Grants:       h.scenario.grantsFor(step),
	}
}

// executeSteps runs every step in one engine batch and checks expectations.
func (h *Harness) executeSteps(ctx context.Context, result *Result) error {
	jobs := make([]engine.Job, len(h.scenario.Steps))
	for i := range h.scenario.Steps {
		step := &h.scenario.Steps[i]
		jobs[i] = engine.Job{Name: step.Name, Request: h.request(step)}
	}

	outcomes, err := h.engine.Run(ctx, jobs)
	if err != nil {
		return fmt.Errorf("engine run failed: %w", err)
	}

	for i, o := range outcomes {
		step := &h.scenario.Steps[i]
		if o.Err != nil {
			result.Steps = append(result.Steps, StepResult{Name: step.Name})
			result.AddError(fmt.Sprintf("step %q: %v", step.Name, o.Err))
			continue
		}

		sr, err := stepResult(step.Name, o.Response)
		if err != nil {
			return err
		}
		result.Steps = append(result.Steps, sr)
		h.responses[step.Name] = o.Response

		for _, msg := range checkExpect(step, o.Response, sr) {
			result.AddError(fmt.Sprintf("step %q: %s", step.Name, msg))
		}
	}
	return nil
}

// stepResult summarizes a response.
func stepResult(name string, resp *runtime.Response) (StepResult, error) {
	sr := StepResult{
		Name:       name,
		StepsUsed:  resp.StepsUsed,
		MemoryUsed: resp.MemoryUsed,
	}
	if resp.Halt != nil {
		sr.Halt = string(resp.Halt.Code)
		return sr, nil
	}
	v, err := resp.Decode()
	if err != nil {
		return sr, fmt.Errorf("step %q: decoding result: %w", name, err)
	}
	if sr.Result, err = canonical.FormatText(v); err != nil {
		return sr, fmt.Errorf("step %q: formatting result: %w", name, err)
	}
	return sr, nil
}

// checkExpect returns one message per unmet expectation.
func checkExpect(step *Step, resp *runtime.Response, sr StepResult) []string {
	var msgs []string
	e := step.Expect

	if e.Result != "" {
		want := normalizeText(e.Result)
		switch {
		case sr.Halt != "":
			msgs = append(msgs, fmt.Sprintf("expected result %s, got halt %s: %s",
				want, sr.Halt, resp.Halt.Message))
		case sr.Result != want:
			msgs = append(msgs, fmt.Sprintf("expected result %s, got %s", want, sr.Result))
		}
	}

	if e.Halt != "" {
		if sr.Halt != e.Halt {
			got := sr.Halt
			if got == "" {
				got = "result " + sr.Result
			}
			msgs = append(msgs, fmt.Sprintf("expected halt %s, got %s", e.Halt, got))
		} else {
			for k, want := range e.Details {
				if got, ok := resp.Halt.Details[k]; !ok || got != want {
					msgs = append(msgs, fmt.Sprintf("expected halt detail %s=%q, got %q", k, want, got))
				}
			}
		}
	}

	if e.StepsUsed != nil && *e.StepsUsed != sr.StepsUsed {
		msgs = append(msgs, fmt.Sprintf("expected steps_used %d, got %d", *e.StepsUsed, sr.StepsUsed))
	}
	if e.MemoryUsed != nil && *e.MemoryUsed != sr.MemoryUsed {
		msgs = append(msgs, fmt.Sprintf("expected memory_used %d, got %d", *e.MemoryUsed, sr.MemoryUsed))
	}
	return msgs
}

// normalizeText reformats a text datum so that equivalent spellings
// compare equal. Validation has already parsed it.
func normalizeText(src string) string {
	v, err := canonical.ParseText(src)
	if err != nil {
		return src
	}
	text, err := canonical.FormatText(v)
	if err != nil {
		return src
	}
	return text
}
