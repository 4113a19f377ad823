package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Samples(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "samples.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "samples", s.Name)
	assert.Equal(t, Budget{Steps: 10000, Memory: 10000}, s.Budget)
	require.Len(t, s.Steps, 7)
	for _, step := range s.Steps {
		assert.NotEmpty(t, step.encoded, step.Name)
	}

	loop, ok := s.step("loop_forever")
	require.True(t, ok)
	assert.Equal(t, Budget{Steps: 1000, Memory: 1000}, s.budgetFor(loop))
	assert.Equal(t, "steps", loop.Expect.Details["resource"])
	require.NotNil(t, loop.Expect.StepsUsed)
	assert.Equal(t, int64(1000), *loop.Expect.StepsUsed)

	add, _ := s.step("add")
	assert.Equal(t, s.Budget, s.budgetFor(add))
	assert.Len(t, s.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenario_GrantsFor(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "capabilities.yaml"))
	require.NoError(t, err)

	granted, _ := s.step("vector_mutation_granted")
	assert.Equal(t, []string{"vector-mutation"}, s.grantsFor(granted))
	plain, _ := s.step("vector_mutation_ungranted")
	assert.Empty(t, s.grantsFor(plain))
}

func TestParseScenario_Invalid(t *testing.T) {
	const header = "name: x\ndescription: d\nbudget: {steps: 10, memory: 10}\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: header + "assertion: []\nsteps: [{name: a, program: '1', expect: {result: '1'}}]\n",
			want: "field assertion not found",
		},
		{
			name: "missing name",
			yaml: "description: d\nbudget: {steps: 10, memory: 10}\nsteps: [{name: a, program: '1', expect: {result: '1'}}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nbudget: {steps: 10, memory: 10}\nsteps: [{name: a, program: '1', expect: {result: '1'}}]\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: header,
			want: "steps list is required",
		},
		{
			name: "duplicate step",
			yaml: header + "steps:\n- {name: a, program: '1', expect: {result: '1'}}\n- {name: a, program: '2', expect: {result: '2'}}\n",
			want: `duplicate step name "a"`,
		},
		{
			name: "zero budget",
			yaml: "name: x\ndescription: d\nsteps: [{name: a, program: '1', expect: {result: '1'}}]\n",
			want: "budget steps and memory must be positive",
		},
		{
			name: "no expectation",
			yaml: header + "steps: [{name: a, program: '1', expect: {}}]\n",
			want: "one of result and halt is required",
		},
		{
			name: "result and halt",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1', halt: TYPE_ERROR}}]\n",
			want: "result and halt are exclusive",
		},
		{
			name: "unknown halt code",
			yaml: header + "steps: [{name: a, program: '1', expect: {halt: OOPS}}]\n",
			want: `unknown halt code "OOPS"`,
		},
		{
			name: "details without halt",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1', details: {resource: steps}}}]\n",
			want: "details require a halt",
		},
		{
			name: "unparsable program",
			yaml: header + "steps: [{name: a, program: '(+ 1', expect: {result: '1'}}]\n",
			want: "steps[0]: program",
		},
		{
			name: "empty program",
			yaml: header + "steps: [{name: a, program: '  ', expect: {result: '1'}}]\n",
			want: "program is empty",
		},
		{
			name: "unparsable result",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '(1'}}]\n",
			want: "steps[0].expect: result",
		},
		{
			name: "unknown assertion type",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1'}}]\nassertions: [{type: fast}]\n",
			want: `unknown assertion type "fast"`,
		},
		{
			name: "assertion without type",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1'}}]\nassertions: [{step: a}]\n",
			want: "type is required",
		},
		{
			name: "assertion on unknown step",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1'}}]\nassertions: [{type: exact_budget, step: b}]\n",
			want: `unknown step "b"`,
		},
		{
			name: "negative runs",
			yaml: header + "steps: [{name: a, program: '1', expect: {result: '1'}}]\nassertions: [{type: deterministic, runs: -1}]\n",
			want: "runs must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
