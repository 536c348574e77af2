package store

import (
	"context"
	"errors"
	"fmt"
)

// Slot names one entry in the persistent key-value store.
type Slot string

const (
	// SlotHistory holds the JSON-encoded session history array.
	SlotHistory Slot = "typistHistory"
	// SlotConfig holds the JSON-encoded user configuration.
	SlotConfig Slot = "typistConfig"
)

// Slots lists the slots owned by the bridge, in boot order.
var Slots = []Slot{SlotHistory, SlotConfig}

// Valid reports whether s is one of the bridge's slots.
func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// Gateway reads and writes slot text.
//
// Read returns ok=false and a nil error for a slot that has never been
// written. Write overwrites the slot. Both return *StorageError on backend
// failure.
type Gateway interface {
	Read(ctx context.Context, slot Slot) (text string, ok bool, err error)
	Write(ctx context.Context, slot Slot, text string) error
}

// Clearer is implemented by gateways that can delete every slot they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Sequencer is implemented by gateways that number their writes. LastSeq
// returns the number of the last write to slot, or ok=false if the slot was
// never written.
type Sequencer interface {
	LastSeq(ctx context.Context, slot Slot) (seq int64, ok bool, err error)
}

// Storage failure sentinels.
var (
	// ErrStorageUnavailable means the backing store cannot be used at all,
	// e.g. it was disabled by the host.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrQuotaExceeded means the backing store refused a write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnknownSlot means a slot name outside Slots was used.
	ErrUnknownSlot = errors.New("unknown slot")
)

// StorageError describes a failed gateway operation.
type StorageError struct {
	// Op is "read", "write" or "clear".
	Op string

	// Slot is the slot involved; empty for clear.
	Slot Slot

	// Backend names the gateway implementation ("memory", "sqlite", ...).
	Backend string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("%s storage: %s %s: %v", e.Backend, e.Op, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s storage: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError returns true if err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func newStorageError(backend, op string, slot Slot, err error) *StorageError {
	return &StorageError{Op: op, Slot: slot, Backend: backend, Err: err}
}

// checkSlot rejects slot names the bridge does not own.
func checkSlot(backend, op string, slot Slot) error {
	if !slot.Valid() {
		return newStorageError(backend, op, slot, ErrUnknownSlot)
	}
	return nil
}
