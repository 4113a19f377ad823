package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/halt"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Env is the environment version; empty means the default.
	Env string `yaml:"env,omitempty"`

	// Grants apply to every step that does not set its own.
	Grants []string `yaml:"grants,omitempty"`

	// Budget applies to every step that does not set its own.
	Budget Budget `yaml:"budget"`

	// Steps are evaluated in order, each as an independent program.
	Steps []Step `yaml:"steps"`

	// Assertions check properties beyond the per-step expectations.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Budget is a pair of evaluation budgets.
type Budget struct {
	Steps  int64 `yaml:"steps"`
	Memory int64 `yaml:"memory"`
}

// Step is one program and its expected outcome.
type Step struct {
	Name    string   `yaml:"name"`
	Program string   `yaml:"program"`
	Budget  *Budget  `yaml:"budget,omitempty"`
	Grants  []string `yaml:"grants,omitempty"`
	Expect  Expect   `yaml:"expect"`

	// encoded is the canonical program, filled in by validation.
	encoded []byte
}

// Expect specifies the expected outcome of a step. Exactly one of Result
// and Halt must be set.
type Expect struct {
	// Result is the expected value in text form.
	Result string `yaml:"result,omitempty"`

	// Halt is the expected halt code.
	Halt string `yaml:"halt,omitempty"`

	// Details is a subset match on the halt details.
	Details map[string]string `yaml:"details,omitempty"`

	// StepsUsed and MemoryUsed, when set, must match exactly.
	StepsUsed  *int64 `yaml:"steps_used,omitempty"`
	MemoryUsed *int64 `yaml:"memory_used,omitempty"`
}

// Assertion validates a property of the scenario's steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "deterministic": replayed ledger reproduces every record
	// - "budget_monotonic": larger budgets give the same outcome
	// - "exact_budget": the used budget suffices, one step less does not
	Type string `yaml:"type"`

	// Step names the step to check; empty means every applicable step.
	Step string `yaml:"step,omitempty"`

	// Runs is the number of replays (deterministic). Default 1.
	Runs int `yaml:"runs,omitempty"`

	// Extra is added to both budgets (budget_monotonic). Default 1000.
	Extra int64 `yaml:"extra,omitempty"`
}

// Assertion type constants.
const (
	AssertDeterministic   = "deterministic"
	AssertBudgetMonotonic = "budget_monotonic"
	AssertExactBudget     = "exact_budget"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// budgetFor returns the effective budget of a step.
func (s *Scenario) budgetFor(step *Step) Budget {
	if step.Budget != nil {
		return *step.Budget
	}
	return s.Budget
}

// grantsFor returns the effective grants of a step.
func (s *Scenario) grantsFor(step *Step) []string {
	if step.Grants != nil {
		return step.Grants
	}
	return s.Grants
}

func (s *Scenario) step(name string) (*Step, bool) {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i], true
		}
	}
	return nil, false
}

// validateScenario checks that required fields are present and valid, and
// encodes every program.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Steps))
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		seen[step.Name] = true

		b := s.budgetFor(step)
		if b.Steps <= 0 || b.Memory <= 0 {
			return fmt.Errorf("steps[%d]: budget steps and memory must be positive", i)
		}

		if err := validateExpect(i, &step.Expect); err != nil {
			return err
		}

		forms, err := canonical.ParseProgram(step.Program)
		if err != nil {
			return fmt.Errorf("steps[%d]: program: %w", i, err)
		}
		if len(forms) == 0 {
			return fmt.Errorf("steps[%d]: program is empty", i)
		}
		if step.encoded, err = canonical.EncodeProgram(forms); err != nil {
			return fmt.Errorf("steps[%d]: program: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(s, i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(i int, e *Expect) error {
	switch {
	case e.Result == "" && e.Halt == "":
		return fmt.Errorf("steps[%d].expect: one of result and halt is required", i)
	case e.Result != "" && e.Halt != "":
		return fmt.Errorf("steps[%d].expect: result and halt are exclusive", i)
	case e.Halt != "" && !halt.Code(e.Halt).Valid():
		return fmt.Errorf("steps[%d].expect: unknown halt code %q", i, e.Halt)
	case e.Result != "" && len(e.Details) > 0:
		return fmt.Errorf("steps[%d].expect: details require a halt", i)
	}
	if e.Result != "" {
		if _, err := canonical.ParseText(e.Result); err != nil {
			return fmt.Errorf("steps[%d].expect: result: %w", i, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(s *Scenario, index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDeterministic:
		if a.Runs < 0 {
			return fmt.Errorf("assertions[%d]: runs must be non-negative", index)
		}
	case AssertBudgetMonotonic:
		if a.Extra < 0 {
			return fmt.Errorf("assertions[%d]: extra must be non-negative", index)
		}
	case AssertExactBudget:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Step != "" {
		if _, ok := s.step(a.Step); !ok {
			return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
		}
	}

	return nil
}
