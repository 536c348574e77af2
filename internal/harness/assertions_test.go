package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var sampleTrace = []TraceEvent{
	{Seq: 1, Step: 1, Op: "read", Slot: "typistHistory", Result: "absent"},
	{Seq: 2, Step: 1, Op: "history", Slot: "typistHistory", Text: "[]", Result: "delivered"},
	{Seq: 3, Step: 1, Op: "read", Slot: "typistConfig", Result: "absent"},
	{Seq: 4, Step: 1, Op: "config", Slot: "typistConfig", Result: "absent"},
	{Seq: 5, Step: 2, Op: "write", Slot: "typistHistory", Text: `[{"wpm":42}]`, Result: "ok"},
}

func TestAssertTraceContains_Found(t *testing.T) {
	err := assertTraceContains(sampleTrace, Assertion{
		Type: AssertTraceContains,
		Op:   "write",
		Slot: "typistHistory",
		Text: strPtr(`[{"wpm":42}]`),
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_AnySlot(t *testing.T) {
	err := assertTraceContains(sampleTrace, Assertion{Type: AssertTraceContains, Op: "config"})
	assert.NoError(t, err)
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	err := assertTraceContains(sampleTrace, Assertion{
		Type: AssertTraceContains,
		Op:   "write",
		Slot: "typistConfig",
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, "trace_contains", assertErr.Type)
	assert.Contains(t, assertErr.Expected, "write typistConfig")
	assert.Equal(t, "not found in trace", assertErr.Actual)
}

func TestAssertTraceContains_WrongText(t *testing.T) {
	err := assertTraceContains(sampleTrace, Assertion{
		Type: AssertTraceContains,
		Op:   "write",
		Text: strPtr(`[]`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "with text []")
}

func TestAssertTraceOrder_Correct(t *testing.T) {
	err := assertTraceOrder(sampleTrace, Assertion{
		Type: AssertTraceOrder,
		Ops:  []string{"read", "read", "write"},
	})
	assert.NoError(t, err)
}

func TestAssertTraceOrder_Wrong(t *testing.T) {
	err := assertTraceOrder(sampleTrace, Assertion{
		Type: AssertTraceOrder,
		Ops:  []string{"write", "read"},
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Contains(t, assertErr.Actual, "missing read")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Type: AssertTraceCount, Op: "read", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Type: AssertTraceCount, Op: "read", Slot: "typistConfig", Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Type: AssertTraceCount, Op: "fault", Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Type: AssertTraceCount, Op: "write", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 occurrences of write")
	assert.Contains(t, err.Error(), "Actual: 1 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	state := map[string]string{"typistHistory": `[{"wpm":42}]`}

	assert.NoError(t, assertFinalState(state, Assertion{Slot: "typistHistory", Text: strPtr(`[{"wpm":42}]`)}))
	assert.NoError(t, assertFinalState(state, Assertion{Slot: "typistConfig", Absent: true}))

	err := assertFinalState(state, Assertion{Slot: "typistHistory", Absent: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typistHistory absent")

	err = assertFinalState(state, Assertion{Slot: "typistConfig", Text: strPtr(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: absent")

	err = assertFinalState(state, Assertion{Slot: "typistHistory", Text: strPtr(`[]`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `stored [{"wpm":42}]`)
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	result := &Result{Trace: sampleTrace, State: map[string]string{}}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Op: "write", Count: 1},
		{Type: AssertTraceCount, Op: "write", Count: 2},
		{Type: AssertFinalState, Slot: "typistHistory", Absent: true},
		{Type: "bogus"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
