package testutil

import (
	"context"
	"errors"

	"github.com/roach88/typist/internal/store"
)

// RecordingGateway wraps a Gateway and traces every call.
type RecordingGateway struct {
	inner store.Gateway
	trace *Trace
}

var (
	_ store.Gateway = (*RecordingGateway)(nil)
	_ store.Clearer = (*RecordingGateway)(nil)
)

// NewRecordingGateway traces calls on inner into trace.
func NewRecordingGateway(inner store.Gateway, trace *Trace) *RecordingGateway {
	return &RecordingGateway{inner: inner, trace: trace}
}

// Read implements store.Gateway.
func (g *RecordingGateway) Read(ctx context.Context, slot store.Slot) (string, bool, error) {
	text, ok, err := g.inner.Read(ctx, slot)
	g.trace.Add(Op{Kind: OpRead, Slot: slot, Text: text, Found: ok, Err: err})
	return text, ok, err
}

// Write implements store.Gateway.
func (g *RecordingGateway) Write(ctx context.Context, slot store.Slot, text string) error {
	err := g.inner.Write(ctx, slot, text)
	g.trace.Add(Op{Kind: OpWrite, Slot: slot, Text: text, Found: true, Err: err})
	return err
}

// Clear implements store.Clearer. It fails if the wrapped gateway cannot clear.
func (g *RecordingGateway) Clear(ctx context.Context) error {
	var err error
	if c, ok := g.inner.(store.Clearer); ok {
		err = c.Clear(ctx)
	} else {
		err = errors.New("gateway does not support clear")
	}
	g.trace.Add(Op{Kind: OpClear, Err: err})
	return err
}
