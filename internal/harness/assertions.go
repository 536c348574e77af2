package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] step %d %s %s %s\n", event.Seq, event.Step, event.Op, event.Slot, event.Result)
	}

	return buf.String()
}

// matches reports whether event is op on slot. An empty slot matches any slot.
func matches(event TraceEvent, op, slot string) bool {
	return event.Op == op && (slot == "" || event.Slot == slot)
}

func describeOp(a Assertion) string {
	if a.Slot == "" {
		return a.Op
	}
	return a.Op + " " + a.Slot
}

// assertTraceContains checks if the trace contains a matching op, with the
// given text if one is specified.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if !matches(event, assertion.Op, assertion.Slot) {
			continue
		}
		if assertion.Text == nil || event.Text == *assertion.Text {
			return nil
		}
	}

	expected := describeOp(assertion)
	if assertion.Text != nil {
		expected += fmt.Sprintf(" with text %s", *assertion.Text)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening ops are allowed), and an op
// may repeat in the list.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Ops) {
			break
		}
		if event.Op == assertion.Ops[next] {
			next++
		}
	}

	if next < len(assertion.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Ops), assertion.Ops[next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, assertion.Op, assertion.Slot) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describeOp(assertion)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the text stored in a slot once the scenario ends.
func assertFinalState(state map[string]string, assertion Assertion) error {
	text, ok := state[assertion.Slot]

	if assertion.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s absent", assertion.Slot),
				Actual:   fmt.Sprintf("stored %s", text),
			}
		}
		return nil
	}

	switch {
	case !ok:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", assertion.Slot, *assertion.Text),
			Actual:   "absent",
		}
	case text != *assertion.Text:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", assertion.Slot, *assertion.Text),
			Actual:   fmt.Sprintf("stored %s", text),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
