package bridge

import (
	"encoding/json"
	"fmt"
)

// HistoryEntry is one session record produced by the core.
// The bridge treats it as opaque JSON.
type HistoryEntry = json.RawMessage

// HistoryLog is the chronological, append-only list of entries.
type HistoryLog []HistoryEntry

// ConfigState is the user's settings as produced by the core.
// The bridge treats it as opaque JSON.
type ConfigState = json.RawMessage

// InitialConfig is the boot-time config message delivered to the core.
// Present is false when the config slot was never written; the core picks
// its own default in that case.
type InitialConfig struct {
	Value   ConfigState
	Present bool
}

// Clone returns a deep copy of the log.
func (l HistoryLog) Clone() HistoryLog {
	out := make(HistoryLog, len(l))
	for i, entry := range l {
		out[i] = cloneRaw(entry)
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// SlotState is the lifecycle state of one slot.
type SlotState int

const (
	// StateUninitialized means Boot has not run.
	StateUninitialized SlotState = iota
	// StateLoaded means the slot was read and delivered to the core.
	StateLoaded
	// StateSyncing means at least one event for the slot has been processed.
	StateSyncing
	// StateFaulted means Boot could not read or parse the slot.
	StateFaulted
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateSyncing:
		return "syncing"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Status is a snapshot of the bridge for diagnostics.
type Status struct {
	Session       string
	History       SlotState
	Config        SlotState
	Entries       int
	ConfigPresent bool
	Seq           int64
	Pending       int
}
