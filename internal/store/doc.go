// Package store provides the slot storage gateway for the typist bridge.
//
// A slot is a named text value in a persistent key-value store. The bridge
// owns two of them:
//   - typistHistory: JSON array of session entries, chronological order
//   - typistConfig: JSON value holding the user's settings
//
// All backends implement Gateway:
//   - MemoryGateway: in-process map, the test fake (supports fault injection)
//   - SQLiteGateway: single "slots" table in a SQLite database
//   - FileGateway: one file per slot, atomic temp-file + rename writes
//   - RedisGateway: one Redis string key per slot
//   - Disabled: every call fails with ErrStorageUnavailable
//
// # Absence
//
// Reading a slot that was never written is not an error: Read returns
// ok=false with a nil error. Only a backend malfunction returns an error,
// and that error is always a *StorageError.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
