package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func parseScenario(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Samples(t *testing.T) {
	result, err := Run(loadScenario(t, "samples"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Steps, 7)

	assert.Equal(t, StepResult{Name: "add", Result: "3", StepsUsed: 5, MemoryUsed: 4}, result.Steps[0])
	assert.Equal(t, "BUDGET_EXHAUSTED", result.Steps[3].Halt)
	assert.Empty(t, result.Steps[3].Result)
}

func TestRun_Capabilities(t *testing.T) {
	result, err := Run(loadScenario(t, "capabilities"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "#(2)", result.Steps[3].Result)
	assert.Equal(t, "(3 4)", result.Steps[4].Result)
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	s := parseScenario(t, `
name: wrong
description: expectations that do not hold
budget: {steps: 100, memory: 100}
steps:
  - name: value
    program: (+ 1 2)
    expect: {result: "4", steps_used: 6}
  - name: halt_expected
    program: (+ 1 2)
    expect: {halt: TYPE_ERROR}
  - name: result_expected
    program: (car 1)
    expect: {result: "1"}
  - name: details
    program: |
      (define (f) (f))
      (f)
    budget: {steps: 50, memory: 50}
    expect: {halt: BUDGET_EXHAUSTED, details: {resource: memory}}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Equal(t, `step "value": expected result 4, got 3`, result.Errors[0])
	assert.Equal(t, `step "value": expected steps_used 6, got 5`, result.Errors[1])
	assert.Equal(t, `step "halt_expected": expected halt TYPE_ERROR, got result 3`, result.Errors[2])
	assert.Contains(t, result.Errors[3], `step "result_expected": expected result 1, got halt TYPE_ERROR`)
	assert.Equal(t, `step "details": expected halt detail resource="memory", got "steps"`, result.Errors[4])
}

func TestRun_NormalizesExpectedResult(t *testing.T) {
	s := parseScenario(t, `
name: spelling
description: equivalent spellings of the same datum
budget: {steps: 100, memory: 100}
steps:
  - name: list
    program: (list 1 2)
    expect: {result: "(1 . (2 . ()))"}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidRequestIsStepError(t *testing.T) {
	s := parseScenario(t, `
name: grants
description: unknown grant
budget: {steps: 100, memory: 100}
grants: [time-travel]
steps:
  - name: one
    program: "1"
    expect: {result: "1"}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `step "one"`)
	assert.Contains(t, result.Errors[0], "INVALID_REQUEST")
	assert.Equal(t, []StepResult{{Name: "one"}}, result.Steps)
}

func TestAssertion_ExactBudgetOnHaltedStep(t *testing.T) {
	s := parseScenario(t, `
name: exact
description: exact budget needs a value
budget: {steps: 100, memory: 100}
steps:
  - name: bad
    program: (car 1)
    expect: {halt: TYPE_ERROR}
assertions:
  - {type: exact_budget, step: bad}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: exact_budget")
	assert.Contains(t, result.Errors[0], "halt TYPE_ERROR")
}

func TestAssertion_AllStepsSkipHalts(t *testing.T) {
	s := parseScenario(t, `
name: mixed
description: budget assertions over every step
budget: {steps: 1000, memory: 1000}
steps:
  - name: fact
    program: |
      (define (fact n) (if (< n 2) 1 (* n (fact (- n 1)))))
      (fact 10)
    expect: {result: "3628800"}
  - name: bad
    program: (vector-ref (vector) 0)
    expect: {halt: TYPE_ERROR}
assertions:
  - {type: exact_budget}
  - {type: budget_monotonic, extra: 1}
  - {type: deterministic, runs: 3}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertBudgetMonotonic,
		Step:     "add",
		Expected: "result 3 steps=5 memory=1",
		Actual:   "result 3 steps=6 memory=1",
	}
	assert.Equal(t,
		"Assertion failed: budget_monotonic (step \"add\")\n"+
			"  Expected: result 3 steps=5 memory=1\n"+
			"  Actual: result 3 steps=6 memory=1\n",
		err.Error())
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
