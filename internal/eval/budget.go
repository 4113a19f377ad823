package eval

import (
	"github.com/roach88/smarm/internal/halt"
)

// Budget tracks the step and memory counters of one top-level evaluation.
//
// A Budget is never shared between evaluations and never visible to the
// program. Every reduction step charges steps; every allocation charges
// memory. Memory is cumulative: it counts what was allocated, not what is
// still live, so the total does not depend on when the host collector runs.
//
// A charge that does not fit consumes the remainder of its counter before
// halting. A program halted for steps therefore reports exactly the step
// limit as used, regardless of the size of the final charge.
type Budget struct {
	maxSteps  int64
	steps     int64
	maxMemory int64
	memory    int64
}

// NewBudget creates a budget with the given limits.
func NewBudget(maxSteps, maxMemory int64) *Budget {
	return &Budget{
		maxSteps:  maxSteps,
		maxMemory: maxMemory,
	}
}

// Charge consumes n steps.
//
// Returns a BudgetExhausted halt (resource "steps") if fewer than n remain.
func (b *Budget) Charge(n int64) error {
	if n <= 0 {
		return nil
	}
	if n > b.maxSteps-b.steps {
		b.steps = b.maxSteps
		return halt.Exhausted("steps", b.steps, b.maxSteps)
	}
	b.steps += n
	return nil
}

// Alloc charges n units of memory.
//
// Returns a BudgetExhausted halt (resource "memory") if fewer than n remain.
func (b *Budget) Alloc(n int64) error {
	if n <= 0 {
		return nil
	}
	if n > b.maxMemory-b.memory {
		b.memory = b.maxMemory
		return halt.Exhausted("memory", b.memory, b.maxMemory)
	}
	b.memory += n
	return nil
}

// Steps returns the steps charged so far.
func (b *Budget) Steps() int64 {
	return b.steps
}

// Memory returns the memory charged so far.
func (b *Budget) Memory() int64 {
	return b.memory
}

// MaxSteps returns the step limit.
func (b *Budget) MaxSteps() int64 {
	return b.maxSteps
}

// MaxMemory returns the memory limit.
func (b *Budget) MaxMemory() int64 {
	return b.maxMemory
}
