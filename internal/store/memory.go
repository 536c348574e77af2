package store

import (
	"context"
	"sync"
)

// MemoryGateway is an in-memory Gateway intended for tests and examples.
// Faults can be injected to simulate a disabled store or a full quota.
type MemoryGateway struct {
	mu       sync.RWMutex
	slots    map[Slot]string
	readErr  error
	writeErr error
	writes   int
}

var _ Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{slots: map[Slot]string{}}
}

// Read returns the stored text for slot.
func (g *MemoryGateway) Read(_ context.Context, slot Slot) (string, bool, error) {
	if err := checkSlot("memory", "read", slot); err != nil {
		return "", false, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.readErr != nil {
		return "", false, newStorageError("memory", "read", slot, g.readErr)
	}
	text, ok := g.slots[slot]
	return text, ok, nil
}

// Write overwrites the text for slot.
func (g *MemoryGateway) Write(_ context.Context, slot Slot, text string) error {
	if err := checkSlot("memory", "write", slot); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.writeErr != nil {
		return newStorageError("memory", "write", slot, g.writeErr)
	}
	g.slots[slot] = text
	g.writes++
	return nil
}

// Clear deletes every slot.
func (g *MemoryGateway) Clear(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.writeErr != nil {
		return newStorageError("memory", "clear", "", g.writeErr)
	}
	g.slots = map[Slot]string{}
	return nil
}

// Seed sets slot text directly, bypassing fault injection.
// Used to prepare a store before boot, e.g. with malformed text.
func (g *MemoryGateway) Seed(slot Slot, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots[slot] = text
}

// Peek returns slot text directly, bypassing fault injection.
func (g *MemoryGateway) Peek(slot Slot) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	text, ok := g.slots[slot]
	return text, ok
}

// Writes returns the number of successful writes.
func (g *MemoryGateway) Writes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.writes
}

// FailReads makes every subsequent Read fail with err. A nil err restores reads.
func (g *MemoryGateway) FailReads(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.readErr = err
}

// FailWrites makes every subsequent Write and Clear fail with err.
// A nil err restores writes.
func (g *MemoryGateway) FailWrites(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeErr = err
}
