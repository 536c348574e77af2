package bridge

import (
	"errors"
	"fmt"

	"github.com/roach88/typist/internal/store"
)

// Lifecycle errors.
var (
	ErrNotBooted     = errors.New("bridge has not booted")
	ErrAlreadyBooted = errors.New("bridge has already booted")
)

// Error is a persistence fault detected by the bridge.
//
// Faults include:
//   - Malformed state: a stored slot does not parse
//   - Storage error: the gateway failed a read or write
//   - Invalid payload: a core event did not carry valid JSON
//   - Slot faulted: an event for a slot that failed to load was kept in memory only
type Error struct {
	// Code identifies the fault category.
	Code ErrorCode

	// Slot is the slot involved.
	Slot store.Slot

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (optional).
	Err error
}

// ErrorCode categorizes bridge faults.
type ErrorCode string

const (
	// ErrCodeMalformedState indicates a stored slot is present but unparsable.
	ErrCodeMalformedState ErrorCode = "MALFORMED_STATE"

	// ErrCodeStorage indicates the backing store failed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"

	// ErrCodeInvalidPayload indicates a core event carried invalid JSON.
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"

	// ErrCodeSlotFaulted indicates an event was applied in memory but not
	// persisted because its slot failed to load.
	ErrCodeSlotFaulted ErrorCode = "SLOT_FAULTED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (slot=%s): %v", e.Code, e.Message, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s: %s (slot=%s)", e.Code, e.Message, e.Slot)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// hasCode reports whether any *Error in err's chain carries code.
func hasCode(err error, code ErrorCode) bool {
	for _, c := range Codes(err) {
		if c == code {
			return true
		}
	}
	return false
}

// IsMalformed returns true if err reports malformed stored state.
// Walks wrapped and joined errors.
func IsMalformed(err error) bool {
	return hasCode(err, ErrCodeMalformedState)
}

// IsStorage returns true if err reports a backing store failure.
func IsStorage(err error) bool {
	return hasCode(err, ErrCodeStorage) || store.IsStorageError(err)
}

// IsInvalidPayload returns true if err reports an invalid core payload.
func IsInvalidPayload(err error) bool {
	return hasCode(err, ErrCodeInvalidPayload)
}

// IsFaulted returns true if err reports an event kept in memory only.
func IsFaulted(err error) bool {
	return hasCode(err, ErrCodeSlotFaulted)
}

// Codes returns the codes of every *Error in err's chain, outermost first,
// descending into each member of a joined error in order.
func Codes(err error) []ErrorCode {
	var codes []ErrorCode
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, member := range joined.Unwrap() {
				walk(member)
			}
			return
		}
		if be, ok := err.(*Error); ok {
			codes = append(codes, be.Code)
			walk(be.Err)
			return
		}
		walk(errors.Unwrap(err))
	}
	walk(err)
	return codes
}

func newMalformedError(slot store.Slot, err error) *Error {
	return &Error{
		Code:    ErrCodeMalformedState,
		Slot:    slot,
		Message: "stored value does not parse",
		Err:     err,
	}
}

func newStorageError(slot store.Slot, op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStorage,
		Slot:    slot,
		Message: op + " failed",
		Err:     err,
	}
}

func newInvalidPayloadError(slot store.Slot, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidPayload,
		Slot:    slot,
		Message: "event payload is not valid JSON",
		Err:     err,
	}
}

func newFaultedError(slot store.Slot, cause error) *Error {
	return &Error{
		Code:    ErrCodeSlotFaulted,
		Slot:    slot,
		Message: "slot failed to load; change kept in memory only",
		Err:     cause,
	}
}
