package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEvaluation_Result(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestResult("019a0000-0000-7000-8000-000000000001", 1)
	ev.Grants = []string{"vector-mutation"}
	require.NoError(t, s.WriteEvaluation(ctx, ev))

	got, err := s.ReadEvaluation(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	assert.False(t, got.Halted())
}

func TestWriteEvaluation_Halt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestHalt("h1", 1, "UNBOUND_VARIABLE")
	require.NoError(t, s.WriteEvaluation(ctx, ev))

	got, err := s.ReadEvaluation(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, got.Halted())
	assert.Nil(t, got.Result)
	assert.Empty(t, got.ResultID)
	assert.Equal(t, "UNBOUND_VARIABLE", got.HaltCode)
	assert.Equal(t, map[string]string{"symbol": "x"}, got.HaltDetails)

	// halt outcomes store NULL results
	var isNull bool
	require.NoError(t, s.db.QueryRow("SELECT result IS NULL FROM evaluations WHERE id = 'h1'").Scan(&isNull))
	assert.True(t, isNull)
}

func TestWriteEvaluation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestResult("a", 1)
	require.NoError(t, s.WriteEvaluation(ctx, ev))

	// Same ID again, even with different content, is ignored.
	dup := ev
	dup.StepsUsed = 99
	require.NoError(t, s.WriteEvaluation(ctx, dup))

	got, err := s.ReadEvaluation(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.StepsUsed)

	all, err := s.ListEvaluations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWriteEvaluation_Constraints(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(ev *Evaluation)
	}{
		{"both result and halt", func(ev *Evaluation) { ev.HaltCode = "TYPE_ERROR" }},
		{"neither result nor halt", func(ev *Evaluation) { ev.Result = nil }},
		{"zero step budget", func(ev *Evaluation) { ev.StepBudget = 0 }},
		{"negative memory budget", func(ev *Evaluation) { ev.MemoryBudget = -1 }},
		{"missing program ID", func(ev *Evaluation) { ev.ProgramID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ev := createTestResult("a", 1)
			tt.mutate(&ev)
			assert.Error(t, s.WriteEvaluation(ctx, ev))
		})
	}
}

func TestWriteEvaluation_SeqUnique(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteEvaluation(ctx, createTestResult("a", 1)))
	err := s.WriteEvaluation(ctx, createTestResult("b", 1))
	assert.Error(t, err, "two records cannot share a seq")
}

func TestWriteEvaluations_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	batch := []Evaluation{
		createTestResult("a", 1),
		createTestHalt("b", 2, "TYPE_ERROR"),
		createTestResult("c", 2), // seq collision rolls back the batch
	}
	require.Error(t, s.WriteEvaluations(ctx, batch))

	all, err := s.ListEvaluations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.WriteEvaluations(ctx, batch[:2]))
	all, err = s.ListEvaluations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
