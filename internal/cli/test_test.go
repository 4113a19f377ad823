package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	harnessGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

const passingScenario = `name: add
description: addition
budget: {steps: 100, memory: 100}
steps:
  - name: add
    program: (+ 1 2)
    expect: {result: "3", steps_used: 5}
`

const failingScenario = `name: wrong
description: an expectation that does not hold
budget: {steps: 100, memory: 100}
steps:
  - name: add
    program: (+ 1 2)
    expect: {result: "4"}
`

func TestTest_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ capabilities\n")
	assert.Contains(t, out, "✓ samples\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden, "--filter", "samp*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "samples", resp.Data.Scenarios[0].Name)
}

func TestTest_Failure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTo(filepath.Join(dir, "a.yaml"), passingScenario))
	require.NoError(t, writeTo(filepath.Join(dir, "b.yaml"), failingScenario))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ add\n")
	assert.Contains(t, out, "✗ wrong\n")
	assert.Contains(t, out, `step "add": expected result 4, got 3`)
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTo(filepath.Join(dir, "bad.yml"), "name: x\nstep: []\n"))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Data  TestResult `json:"data"`
		Error *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "bad.yml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTo(filepath.Join(dir, "add.yaml"), passingScenario))

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ add (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "add.golden"))
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario": "add",
  "steps": [
    {
      "name": "add",
      "result": "3",
      "steps_used": 5,
      "memory_used": 4
    }
  ]
}
`, string(golden))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	// A stale golden file fails the scenario even though its expectations hold.
	require.NoError(t, writeTo(filepath.Join(dir, "golden", "add.golden"), "{}\n"))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTest_UpdateSkipsFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTo(filepath.Join(dir, "wrong.yaml"), failingScenario))

	_, err := execute(t, "test", dir, "--update")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "golden", "wrong.golden"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTest_EmptyAndMissingDirs(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	_, err = execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles_InvalidFilter(t *testing.T) {
	_, err := findScenarioFiles(harnessScenarios, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
