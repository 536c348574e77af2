package bridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/typist/internal/store"
)

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBridge creates an unbooted bridge over gw with a fresh recorder.
func newTestBridge(t *testing.T, gw store.Gateway, opts ...Option) (*Bridge, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(gw, rec, opts...), rec
}

// bootTestBridge creates and boots a bridge, failing the test on boot error.
func bootTestBridge(t *testing.T, gw store.Gateway, opts ...Option) (*Bridge, *Recorder) {
	t.Helper()
	b, rec := newTestBridge(t, gw, opts...)
	require.NoError(t, b.Boot(t.Context()))
	return b, rec
}

// logStrings renders a log as strings for readable assertions.
func logStrings(log HistoryLog) []string {
	out := make([]string, len(log))
	for i, entry := range log {
		out[i] = string(entry)
	}
	return out
}

// storedHistory decodes the history slot of a memory gateway.
func storedHistory(t *testing.T, gw *store.MemoryGateway) []string {
	t.Helper()
	text, ok := gw.Peek(store.SlotHistory)
	require.True(t, ok, "history slot should be written")
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(text), &raw))
	out := make([]string, len(raw))
	for i, entry := range raw {
		out[i] = string(entry)
	}
	return out
}
