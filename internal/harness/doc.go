// Package harness runs Smarm conformance scenarios.
//
// A scenario is a YAML file listing programs together with the outcome each
// one must produce. Every compatible evaluator must reproduce the listed
// result or halt code, and, where given, the exact step and memory usage.
//
// # Scenario Format
//
//	name: samples
//	description: "What this scenario validates"
//	env: smarm/env/v1          # optional, defaults to manifest.DefaultVersion
//	grants: [vector-mutation]  # optional
//	budget: { steps: 1000, memory: 1000 }
//	steps:
//	  - name: add
//	    program: (+ 1 2)
//	    expect:
//	      result: "3"
//	      steps_used: 5
//	  - name: loop
//	    program: |
//	      (define (loop) (loop))
//	      (loop)
//	    budget: { steps: 100, memory: 100 }
//	    expect:
//	      halt: BUDGET_EXHAUSTED
//	      details: { resource: steps }
//	assertions:
//	  - type: deterministic
//	    runs: 3
//	  - type: exact_budget
//	    step: add
//
// Programs are written in the text form. A program of several top-level
// forms is encoded as one (begin ...) form.
//
// # Assertion Types
//
//   - deterministic: replays the scenario's ledger and requires every
//     record to reproduce
//   - budget_monotonic: re-runs a successful step with larger budgets and
//     requires an identical outcome and usage
//   - exact_budget: re-runs a successful step with budgets equal to its
//     usage (must succeed identically) and with one step less (must halt
//     with BUDGET_EXHAUSTED)
//
// # Deterministic Testing
//
// Each scenario runs through the engine into a fresh in-memory ledger with
// fixed record IDs, so the snapshot of a run is identical on every host.
// RunWithGolden compares that snapshot against testdata/golden.
package harness
