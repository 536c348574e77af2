package bridge

import (
	"sync"
	"sync/atomic"
)

// Outbound is the core's inbound port pair: the bridge delivers the two
// initial-state messages through it, once each, during Boot.
//
// Methods are called with the bridge's lock held. They must not call back
// into the bridge synchronously; use Enqueue to emit events instead.
type Outbound interface {
	InitialHistory(log HistoryLog)
	InitialConfig(cfg InitialConfig)
}

// FaultReporter is optionally implemented by an Outbound that wants to be
// told about persistence faults (to surface them to the hosting page or an
// operator). ReportFault must not block.
type FaultReporter interface {
	ReportFault(err error)
}

// ChanPorts delivers bridge messages on channels, one per data kind.
// History and Config are buffered so the single boot delivery never blocks.
type ChanPorts struct {
	History chan HistoryLog
	Config  chan InitialConfig
	Faults  chan error

	dropped atomic.Int64
}

var (
	_ Outbound      = (*ChanPorts)(nil)
	_ FaultReporter = (*ChanPorts)(nil)
)

// NewChanPorts creates channel ports. faultBuffer sizes the Faults channel;
// faults that do not fit are dropped and counted.
func NewChanPorts(faultBuffer int) *ChanPorts {
	return &ChanPorts{
		History: make(chan HistoryLog, 1),
		Config:  make(chan InitialConfig, 1),
		Faults:  make(chan error, faultBuffer),
	}
}

// InitialHistory implements Outbound.
func (p *ChanPorts) InitialHistory(log HistoryLog) {
	p.History <- log
}

// InitialConfig implements Outbound.
func (p *ChanPorts) InitialConfig(cfg InitialConfig) {
	p.Config <- cfg
}

// ReportFault implements FaultReporter without blocking.
func (p *ChanPorts) ReportFault(err error) {
	select {
	case p.Faults <- err:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many faults did not fit in the Faults buffer.
func (p *ChanPorts) Dropped() int64 {
	return p.dropped.Load()
}

// Recorder is an Outbound that records every delivery. Used by tests and the
// scenario harness.
type Recorder struct {
	mu        sync.Mutex
	histories []HistoryLog
	configs   []InitialConfig
	faults    []error
}

var (
	_ Outbound      = (*Recorder)(nil)
	_ FaultReporter = (*Recorder)(nil)
)

// InitialHistory implements Outbound.
func (r *Recorder) InitialHistory(log HistoryLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, log)
}

// InitialConfig implements Outbound.
func (r *Recorder) InitialConfig(cfg InitialConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

// ReportFault implements FaultReporter.
func (r *Recorder) ReportFault(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, err)
}

// Histories returns every history delivery in order.
func (r *Recorder) Histories() []HistoryLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HistoryLog(nil), r.histories...)
}

// Configs returns every config delivery in order.
func (r *Recorder) Configs() []InitialConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]InitialConfig(nil), r.configs...)
}

// Faults returns every reported fault in order.
func (r *Recorder) Faults() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.faults...)
}

// Reset forgets all recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = nil
	r.configs = nil
	r.faults = nil
}
