package engine

import (
	"github.com/roach88/smarm/internal/runtime"
)

// QuotaEnforcer caps the budgets a single request may ask for.
//
// Budgets make every evaluation terminate, but a host still decides how
// much work one submission may cost. The enforcer rejects a request before
// it is evaluated; it never changes the budgets of a request it accepts,
// because a clamped budget would change the outcome.
//
// A zero limit means unlimited.
type QuotaEnforcer struct {
	maxSteps  int64
	maxMemory int64
}

// NewQuotaEnforcer creates an enforcer with the given ceilings.
func NewQuotaEnforcer(maxSteps, maxMemory int64) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps, maxMemory: maxMemory}
}

// Check returns a quota RuntimeError if req exceeds a ceiling.
func (q *QuotaEnforcer) Check(job int, req runtime.Request) error {
	if q == nil {
		return nil
	}
	if q.maxSteps > 0 && req.StepBudget > q.maxSteps {
		return NewQuotaError(job, "steps", req.StepBudget, q.maxSteps)
	}
	if q.maxMemory > 0 && req.MemoryBudget > q.maxMemory {
		return NewQuotaError(job, "memory", req.MemoryBudget, q.maxMemory)
	}
	return nil
}

// MaxSteps returns the step ceiling.
func (q *QuotaEnforcer) MaxSteps() int64 {
	return q.maxSteps
}

// MaxMemory returns the memory ceiling.
func (q *QuotaEnforcer) MaxMemory() int64 {
	return q.maxMemory
}
