package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/typist/internal/store"
	"github.com/roach88/typist/internal/testutil"
)

// Scenario defines a persistence scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the fixed session id given to every boot.
	// If empty, defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Seed maps slot names to raw text stored before the first boot.
	// The text is stored as given, so it may be malformed on purpose.
	Seed map[string]string `yaml:"seed,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and stored state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted action, optionally followed by an expectation.
// A step names at most one action; a step with only Expect is a checkpoint.
type Step struct {
	// Boot starts the first bridge.
	Boot bool `yaml:"boot,omitempty"`

	// Reload replaces the bridge with a fresh one over the same store,
	// as a page reload would.
	Reload bool `yaml:"reload,omitempty"`

	// Append emits a history entry, given as JSON text.
	Append string `yaml:"append,omitempty"`

	// Config emits a config change, given as JSON text.
	Config string `yaml:"config,omitempty"`

	// FailWrites injects a write fault: "quota", "unavailable" or "none".
	FailWrites string `yaml:"fail_writes,omitempty"`

	// FailReads injects a read fault: "quota", "unavailable" or "none".
	FailReads string `yaml:"fail_reads,omitempty"`

	// Expect is checked after the action runs.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a step.
type Expect struct {
	// Codes are the bridge error codes the step must return, in order.
	// Empty means the step must succeed.
	Codes []string `yaml:"codes,omitempty"`

	// History is the expected in-memory log as JSON text.
	History *string `yaml:"history,omitempty"`

	// Config is the expected in-memory config as JSON text.
	Config *string `yaml:"config,omitempty"`

	// ConfigAbsent expects that no config exists in memory.
	ConfigAbsent bool `yaml:"config_absent,omitempty"`

	// State maps slot names to expected lifecycle states
	// ("loaded", "syncing", "faulted").
	State map[string]string `yaml:"state,omitempty"`
}

// Assertion validates the trace or the final stored state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Op is the traced op kind (used by trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Slot restricts the op to one slot (trace_contains, trace_count) or
	// names the slot to inspect (final_state).
	Slot string `yaml:"slot,omitempty"`

	// Text is the expected op text (trace_contains) or stored text (final_state).
	Text *string `yaml:"text,omitempty"`

	// Absent expects the slot to be unwritten (final_state).
	Absent bool `yaml:"absent,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Fault names accepted by fail_writes and fail_reads.
var faults = map[string]error{
	"quota":       store.ErrQuotaExceeded,
	"unavailable": store.ErrStorageUnavailable,
	"none":        nil,
}

var opKinds = map[string]bool{
	string(testutil.OpRead):    true,
	string(testutil.OpWrite):   true,
	string(testutil.OpClear):   true,
	string(testutil.OpHistory): true,
	string(testutil.OpConfig):  true,
	string(testutil.OpFault):   true,
}

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

// ParseScenario parses scenario YAML.
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

// validateScenario checks that required fields are present and valid.
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

	for slot := range s.Seed {
		if !store.Slot(slot).Valid() {
			return fmt.Errorf("seed: unknown slot %q", slot)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if s.Steps[0].action() != "boot" {
		return fmt.Errorf("steps[0]: first step must be boot")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// action names the step's action, or "" for a checkpoint.
// It returns "multiple" if more than one action is set.
func (s *Step) action() string {
	var names []string
	if s.Boot {
		names = append(names, "boot")
	}
	if s.Reload {
		names = append(names, "reload")
	}
	if s.Append != "" {
		names = append(names, "append")
	}
	if s.Config != "" {
		names = append(names, "config")
	}
	if s.FailWrites != "" {
		names = append(names, "fail_writes")
	}
	if s.FailReads != "" {
		names = append(names, "fail_reads")
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return "multiple"
	}
}

// validateStep validates a single step.
func validateStep(index int, s *Step) error {
	switch s.action() {
	case "multiple":
		return fmt.Errorf("steps[%d]: only one action per step", index)
	case "":
		if s.Expect == nil {
			return fmt.Errorf("steps[%d]: an action or expect is required", index)
		}
	case "append":
		if !json.Valid([]byte(s.Append)) {
			return fmt.Errorf("steps[%d]: append is not valid JSON", index)
		}
	case "config":
		if !json.Valid([]byte(s.Config)) {
			return fmt.Errorf("steps[%d]: config is not valid JSON", index)
		}
	case "fail_writes":
		if _, ok := faults[s.FailWrites]; !ok {
			return fmt.Errorf("steps[%d]: unknown fault %q", index, s.FailWrites)
		}
	case "fail_reads":
		if _, ok := faults[s.FailReads]; !ok {
			return fmt.Errorf("steps[%d]: unknown fault %q", index, s.FailReads)
		}
	}

	if s.Expect == nil {
		return nil
	}
	for slot := range s.Expect.State {
		if !store.Slot(slot).Valid() {
			return fmt.Errorf("steps[%d].expect: unknown slot %q", index, slot)
		}
	}
	if s.Expect.ConfigAbsent && s.Expect.Config != nil {
		return fmt.Errorf("steps[%d].expect: config and config_absent are exclusive", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Slot != "" && !store.Slot(a.Slot).Valid() {
		return fmt.Errorf("assertions[%d]: unknown slot %q", index, a.Slot)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if !opKinds[a.Op] {
			return fmt.Errorf("assertions[%d]: unknown op %q for %s", index, a.Op, a.Type)
		}
		if a.Type == AssertTraceCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
		for _, op := range a.Ops {
			if !opKinds[op] {
				return fmt.Errorf("assertions[%d]: unknown op %q", index, op)
			}
		}
	case AssertFinalState:
		if a.Slot == "" {
			return fmt.Errorf("assertions[%d]: slot is required for final_state", index)
		}
		if a.Absent == (a.Text != nil) {
			return fmt.Errorf("assertions[%d]: final_state needs exactly one of text or absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
