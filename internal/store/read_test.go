package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvaluation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEvaluation(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEvaluations_Empty(t *testing.T) {
	s := createTestStore(t)

	all, err := s.ListEvaluations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all, "empty ledger lists as an empty slice")
	assert.Empty(t, all)
}

func TestListEvaluations_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Written out of order, IDs deliberately not in seq order.
	for _, ev := range []Evaluation{
		createTestResult("zz", 3),
		createTestHalt("aa", 1, "TYPE_ERROR"),
		createTestResult("mm", 2),
	} {
		require.NoError(t, s.WriteEvaluation(ctx, ev))
	}

	all, err := s.ListEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"aa", "mm", "zz"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})

	again, err := s.ListEvaluations(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, again)
}

func TestListEvaluationsForProgram(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a1 := createTestResult("a1", 1)
	b := createTestResult("b", 2)
	a2 := createTestHalt("a2", 3, "BUDGET_EXHAUSTED")
	a2.ProgramID = a1.ProgramID
	for _, ev := range []Evaluation{a1, b, a2} {
		require.NoError(t, s.WriteEvaluation(ctx, ev))
	}

	got, err := s.ListEvaluationsForProgram(ctx, a1.ProgramID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a2", got[1].ID)

	got, err = s.ListEvaluationsForProgram(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListEvaluationsAfter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.WriteEvaluation(ctx, createTestResult(string(rune('a'+i)), i)))
	}

	got, err := s.ListEvaluationsAfter(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].Seq)
	assert.Equal(t, int64(5), got[1].Seq)
}

func TestSummarize(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Halts)

	for _, ev := range []Evaluation{
		createTestResult("a", 1),
		createTestResult("b", 2),
		createTestHalt("c", 3, "TYPE_ERROR"),
		createTestHalt("d", 4, "BUDGET_EXHAUSTED"),
		createTestHalt("e", 5, "TYPE_ERROR"),
	} {
		require.NoError(t, s.WriteEvaluation(ctx, ev))
	}

	sum, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Total:   5,
		Results: 2,
		Halts:   map[string]int{"TYPE_ERROR": 2, "BUDGET_EXHAUSTED": 1},
		LastSeq: 5,
	}, sum)
}

func TestMarshalGrants_Deterministic(t *testing.T) {
	data, err := marshalGrants(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	data, err = marshalDetails(map[string]string{"z": "1", "a": "<2>"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<2>","z":"1"}`, data)

	details, err := unmarshalDetails(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "<2>", "z": "1"}, details)
}
