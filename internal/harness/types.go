package harness

// StepResult is the observed outcome of one step.
type StepResult struct {
	Name string `json:"name"`

	// Result is the value in text form; empty when the step halted.
	Result string `json:"result,omitempty"`

	// Halt is the halt code; empty when the step produced a value.
	Halt string `json:"halt,omitempty"`

	StepsUsed  int64 `json:"steps_used"`
	MemoryUsed int64 `json:"memory_used"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
