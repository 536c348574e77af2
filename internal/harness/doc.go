// Package harness runs scripted persistence scenarios against the bridge.
//
// A scenario seeds a store, drives the bridge through boots, reloads, history
// appends, config changes and injected storage faults, and checks what the
// core was given and what ended up stored.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	session: fixed-session-id
//	seed:
//	  typistHistory: '[{"wpm":40}]'
//	steps:
//	  - boot: true
//	  - append: '{"wpm":42,"duration":30}'
//	  - config: '{"theme":"dark"}'
//	  - fail_writes: quota
//	  - reload: true
//	    expect:
//	      history: '[{"wpm":42,"duration":30}]'
//	      config: '{"theme":"dark"}'
//	assertions:
//	  - type: final_state
//	    slot: typistConfig
//	    text: '{"theme":"dark"}'
//
// Values are written as JSON text so that key order survives the YAML layer.
//
// # Assertion Types
//
//   - trace_contains: an op on a slot appears in the trace, optionally with text
//   - trace_order: ops appear in the order given
//   - trace_count: an op appears exactly N times
//   - final_state: a slot holds the given text, or is absent
//
// # Deterministic Testing
//
// Every scenario runs against a fresh MemoryGateway with a fixed session id,
// and every storage call and core delivery is stamped from one sequence, so
// the same scenario always produces the same trace. RunWithGolden compares
// that trace against testdata/golden/<name>.golden.
package harness
