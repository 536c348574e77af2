package store

import "context"

// Disabled is a Gateway whose backing store is switched off.
// Every operation fails with ErrStorageUnavailable.
type Disabled struct{}

var _ Gateway = Disabled{}

// Read always fails.
func (Disabled) Read(_ context.Context, slot Slot) (string, bool, error) {
	return "", false, newStorageError("disabled", "read", slot, ErrStorageUnavailable)
}

// Write always fails.
func (Disabled) Write(_ context.Context, slot Slot, _ string) error {
	return newStorageError("disabled", "write", slot, ErrStorageUnavailable)
}

// Clear always fails.
func (Disabled) Clear(_ context.Context) error {
	return newStorageError("disabled", "clear", "", ErrStorageUnavailable)
}
