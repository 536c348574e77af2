package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/typist/internal/bridge"
	"github.com/roach88/typist/internal/store"
	"github.com/roach88/typist/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs one scenario against an isolated in-memory store.
type Harness struct {
	mem      *store.MemoryGateway
	trace    *testutil.Trace
	gw       *testutil.RecordingGateway
	ports    *testutil.TracingPorts
	sessions *testutil.FixedSessionGenerator
	logger   *slog.Logger

	bridge *bridge.Bridge

	// stepErr is the error the bridge returned for the current step.
	stepErr error
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh MemoryGateway and store the seed text
// 2. Execute each step, checking its expect clause
// 3. Evaluate the assertions against the trace and stored state
//
// An error is returned only when the scenario cannot be executed;
// failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	mem := store.NewMemoryGateway()
	for slot, text := range scenario.Seed {
		mem.Seed(store.Slot(slot), text)
	}

	trace := testutil.NewTrace()
	h := &Harness{
		mem:      mem,
		trace:    trace,
		gw:       testutil.NewRecordingGateway(mem, trace),
		ports:    testutil.NewTracingPorts(trace),
		sessions: testutil.NewFixedSessionGenerator(scenario.Session),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		stepNo := i + 1
		mark := h.trace.Len()

		h.stepErr = nil
		if err := h.executeStep(ctx, &step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		stepErr := h.stepErr
		codes := codeStrings(stepErr)
		if stepErr != nil {
			h.trace.Add(testutil.Op{Kind: testutil.OpFault, Text: faultResult(stepErr, codes)})
		}

		for _, op := range h.trace.Since(mark) {
			result.Trace = append(result.Trace, traceEvent(stepNo, op))
		}

		if step.Expect != nil {
			for _, msg := range h.checkExpect(i, step.Expect, codes, stepErr) {
				result.AddError(msg)
			}
		}
	}

	for _, slot := range store.Slots {
		if text, ok := mem.Peek(slot); ok {
			result.State[string(slot)] = text
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step and records the bridge's error in h.stepErr,
// where it becomes part of the scenario outcome. A returned error means the
// step could not run at all.
func (h *Harness) executeStep(ctx context.Context, step *Step) error {
	action := step.action()
	switch action {
	case "reload", "append", "config":
		if h.bridge == nil {
			return fmt.Errorf("%s: bridge not booted", action)
		}
	}

	switch action {
	case "boot":
		if h.bridge != nil {
			return fmt.Errorf("boot: bridge already booted, use reload")
		}
		h.stepErr = h.boot(ctx)
	case "reload":
		h.stepErr = h.boot(ctx)
	case "append":
		h.stepErr = h.bridge.AppendHistory(ctx, bridge.HistoryEntry(step.Append))
	case "config":
		h.stepErr = h.bridge.ChangeConfig(ctx, bridge.ConfigState(step.Config))
	case "fail_writes":
		h.mem.FailWrites(faults[step.FailWrites])
	case "fail_reads":
		h.mem.FailReads(faults[step.FailReads])
	case "":
		// checkpoint
	default:
		return fmt.Errorf("unsupported step action %q", action)
	}
	return nil
}

// boot replaces the current bridge with a freshly booted one.
func (h *Harness) boot(ctx context.Context) error {
	h.bridge = bridge.New(h.gw, h.ports,
		bridge.WithLogger(h.logger),
		bridge.WithSessionGenerator(h.sessions),
	)
	return h.bridge.Boot(ctx)
}

// checkExpect compares the bridge's state after step index with expect.
func (h *Harness) checkExpect(index int, expect *Expect, codes []string, stepErr error) []string {
	var errs []string
	prefix := fmt.Sprintf("steps[%d].expect", index)

	if !equalStrings(codes, expect.Codes) {
		if stepErr != nil && len(codes) == 0 {
			errs = append(errs, fmt.Sprintf("%s: codes: expected %v, got error %v", prefix, expect.Codes, stepErr))
		} else {
			errs = append(errs, fmt.Sprintf("%s: codes: expected %v, got %v", prefix, expect.Codes, codes))
		}
	}

	if h.bridge == nil {
		if expect.History != nil || expect.Config != nil || expect.ConfigAbsent || len(expect.State) > 0 {
			errs = append(errs, fmt.Sprintf("%s: bridge not booted", prefix))
		}
		return errs
	}

	if expect.History != nil {
		got := historyText(h.bridge.History())
		want, err := compactText(*expect.History)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: history: %v", prefix, err))
		} else if got != want {
			errs = append(errs, fmt.Sprintf("%s: history: expected %s, got %s", prefix, want, got))
		}
	}

	cfg, present := h.bridge.Config()
	if expect.ConfigAbsent && present {
		errs = append(errs, fmt.Sprintf("%s: config: expected absent, got %s", prefix, cfg))
	}
	if expect.Config != nil {
		want, err := compactText(*expect.Config)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("%s: config: %v", prefix, err))
		case !present:
			errs = append(errs, fmt.Sprintf("%s: config: expected %s, got absent", prefix, want))
		case string(cfg) != want:
			errs = append(errs, fmt.Sprintf("%s: config: expected %s, got %s", prefix, want, cfg))
		}
	}

	status := h.bridge.Status()
	for slot, want := range expect.State {
		got := status.History
		if store.Slot(slot) == store.SlotConfig {
			got = status.Config
		}
		if got.String() != want {
			errs = append(errs, fmt.Sprintf("%s: state of %s: expected %s, got %s", prefix, slot, want, got))
		}
	}

	return errs
}

// traceEvent renders a traced op for the result trace.
func traceEvent(step int, op testutil.Op) TraceEvent {
	ev := TraceEvent{
		Seq:  op.Seq,
		Step: step,
		Op:   string(op.Kind),
		Slot: string(op.Slot),
	}

	switch op.Kind {
	case testutil.OpRead:
		switch {
		case op.Err != nil:
			ev.Result = "error"
		case op.Found:
			ev.Text = op.Text
			ev.Result = "found"
		default:
			ev.Result = "absent"
		}
	case testutil.OpWrite:
		ev.Text = op.Text
		ev.Result = okOrError(op.Err)
	case testutil.OpClear:
		ev.Result = okOrError(op.Err)
	case testutil.OpHistory:
		ev.Text = op.Text
		ev.Result = "delivered"
	case testutil.OpConfig:
		if op.Found {
			ev.Text = op.Text
			ev.Result = "present"
		} else {
			ev.Result = "absent"
		}
	case testutil.OpFault:
		ev.Result = op.Text
	}

	return ev
}

func okOrError(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// faultResult summarizes a step error as its codes, or its message when the
// error carries none (e.g. a lifecycle error).
func faultResult(err error, codes []string) string {
	if len(codes) == 0 {
		return err.Error()
	}
	return strings.Join(codes, ",")
}

func codeStrings(err error) []string {
	var out []string
	for _, code := range bridge.Codes(err) {
		out = append(out, string(code))
	}
	return out
}

// historyText renders a log the way it would be stored.
func historyText(log bridge.HistoryLog) string {
	entries := make([]string, len(log))
	for i, entry := range log {
		entries[i] = string(entry)
	}
	return "[" + strings.Join(entries, ",") + "]"
}

func compactText(text string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return "", fmt.Errorf("invalid JSON %q: %w", text, err)
	}
	return buf.String(), nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
