package testutil

import (
	"sync"

	"github.com/roach88/typist/internal/store"
)

// OpKind names a traced operation.
type OpKind string

const (
	OpRead    OpKind = "read"
	OpWrite   OpKind = "write"
	OpClear   OpKind = "clear"
	OpHistory OpKind = "history"
	OpConfig  OpKind = "config"
	OpFault   OpKind = "fault"
)

// Op is one traced operation.
type Op struct {
	// Seq is assigned by the Trace, starting at 1.
	Seq  int64
	Kind OpKind
	Slot store.Slot

	// Text is the slot text read or written, or the delivered value.
	Text string

	// Found is false for a read of an absent slot or an absent config delivery.
	Found bool

	// Err is the gateway error, if the operation failed.
	Err error
}

// Trace is a thread-safe, sequenced log of operations.
//
// Unlike bridge.Clock, a Trace can be reset so the same scenario can run
// several times with identical seq values.
type Trace struct {
	mu  sync.Mutex
	seq int64
	ops []Op
}

// NewTrace creates an empty trace. The first recorded op gets seq 1.
func NewTrace() *Trace {
	return &Trace{}
}

// Add stamps op with the next seq and appends it.
func (t *Trace) Add(op Op) Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	op.Seq = t.seq
	t.ops = append(t.ops, op)
	return op
}

// Ops returns a copy of every recorded op in order.
func (t *Trace) Ops() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Op(nil), t.ops...)
}

// Since returns the ops recorded after the first n.
func (t *Trace) Since(n int) []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n >= len(t.ops) {
		return nil
	}
	return append([]Op(nil), t.ops[n:]...)
}

// Len returns the number of recorded ops.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Reset forgets every op and restarts seq at 0.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq = 0
	t.ops = nil
}
