// Package bridge synchronizes the typist application core with slot storage.
//
// The bridge owns two independent lifecycles, one per slot:
//
//	Uninitialized -> Loaded -> Syncing
//	      \-> Faulted (boot could not read or parse the slot)
//
// Boot reads both slots through a store.Gateway and delivers them to the core
// as the initial history and initial config messages. After boot, the core
// emits events (a history entry was produced, the config changed) and the
// bridge persists each one with a whole-slot overwrite.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Events from the core are enqueued to a FIFO queue and Run processes them one
// at a time. Writes to a slot are therefore strictly ordered and each write
// reflects every prior event for that slot. AppendHistory and ChangeConfig
// process an event synchronously under the same lock for hosts that have no
// loop of their own.
//
// Failure Policy:
//   - An absent slot is not an error: history boots as [] and config boots
//     with the absent marker (no default is invented).
//   - A slot holding text that is not valid JSON, or history that is not a
//     JSON array, is MALFORMED_STATE. The slot is Faulted; nothing is
//     delivered for it and it is never silently replaced by an empty value.
//   - A backend failure is STORAGE_ERROR. The triggering read or write fails,
//     nothing is retried, and the in-memory state stays authoritative.
//
// A fault in one slot never blocks or changes the other.
package bridge
