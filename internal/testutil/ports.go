package testutil

import (
	"strings"

	"github.com/roach88/typist/internal/bridge"
	"github.com/roach88/typist/internal/store"
)

// TracingPorts is a bridge.Outbound that appends each delivery to a Trace.
// Histories are traced as JSON array text built from the delivered entries.
type TracingPorts struct {
	trace *Trace
}

var _ bridge.Outbound = (*TracingPorts)(nil)

// NewTracingPorts traces deliveries into trace.
func NewTracingPorts(trace *Trace) *TracingPorts {
	return &TracingPorts{trace: trace}
}

// InitialHistory implements bridge.Outbound.
func (p *TracingPorts) InitialHistory(log bridge.HistoryLog) {
	entries := make([]string, len(log))
	for i, entry := range log {
		entries[i] = string(entry)
	}
	text := "[" + strings.Join(entries, ",") + "]"
	p.trace.Add(Op{Kind: OpHistory, Slot: store.SlotHistory, Text: text, Found: true})
}

// InitialConfig implements bridge.Outbound.
func (p *TracingPorts) InitialConfig(cfg bridge.InitialConfig) {
	p.trace.Add(Op{Kind: OpConfig, Slot: store.SlotConfig, Text: string(cfg.Value), Found: cfg.Present})
}
