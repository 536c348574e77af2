package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/typist/internal/store"
)

// Bridge is the single-writer synchronizer between the core and slot storage.
//
// Thread-safety model:
//   - Enqueue(), Stop(), accessors: safe from any goroutine
//   - AppendHistory(), ChangeConfig(): safe from any goroutine, serialized
//     with the Run loop by the bridge lock
//   - Run(): must be called from exactly one goroutine, after Boot
//
// INVARIANTS:
//   - The stored history equals the log delivered at boot plus every entry
//     appended since (unless a write failed; memory stays authoritative)
//   - The history log only grows, one entry per append
//   - The stored config equals the last config change, if any
type Bridge struct {
	gw       store.Gateway
	core     Outbound
	clock    *Clock
	sessions SessionGenerator
	queue    *eventQueue
	base     *slog.Logger

	mu      sync.Mutex
	booted  bool
	session string
	logger  *slog.Logger

	historyState SlotState
	historyErr   error
	history      HistoryLog

	configState   SlotState
	configErr     error
	config        ConfigState
	configPresent bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.base = logger
	}
}

// WithSessionGenerator sets the session id generator. Default: UUIDv7Generator.
func WithSessionGenerator(gen SessionGenerator) Option {
	return func(b *Bridge) {
		b.sessions = gen
	}
}

// WithClock sets the logical clock. Default: a clock starting at 0.
func WithClock(clock *Clock) Option {
	return func(b *Bridge) {
		b.clock = clock
	}
}

// New creates a Bridge over gw that delivers initial state to core.
// The bridge does nothing until Boot is called.
func New(gw store.Gateway, core Outbound, opts ...Option) *Bridge {
	b := &Bridge{
		gw:       gw,
		core:     core,
		clock:    NewClock(),
		sessions: UUIDv7Generator{},
		queue:    newEventQueue(),
		base:     slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.base
	return b
}

// Boot loads both slots and delivers them to the core.
//
// Both slots are always attempted: a fault in one does not prevent the other
// from loading. Boot returns the faults joined with errors.Join; use
// IsMalformed / IsStorage or Codes to inspect them. A faulted slot delivers
// nothing to the core.
func (b *Bridge) Boot(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.booted {
		return ErrAlreadyBooted
	}
	b.booted = true
	b.session = b.sessions.Generate()
	b.logger = b.base.With("session", b.session)

	b.logger.Info("bridge booting")

	historyErr := b.loadHistory(ctx)
	configErr := b.loadConfig(ctx)

	b.logger.Info("bridge booted",
		"history", b.historyState.String(),
		"config", b.configState.String(),
	)

	return errors.Join(historyErr, configErr)
}

// loadHistory reads and delivers the history slot.
// The caller must hold b.mu.
func (b *Bridge) loadHistory(ctx context.Context) error {
	text, ok, err := b.gw.Read(ctx, store.SlotHistory)
	if err != nil {
		return b.faultSlot(store.SlotHistory, newStorageError(store.SlotHistory, "read", err))
	}
	if !ok {
		text = emptyHistoryText
	}

	log, err := decodeHistory(text)
	if err != nil {
		return b.faultSlot(store.SlotHistory, newMalformedError(store.SlotHistory, err))
	}

	b.history = log
	b.historyState = StateLoaded
	b.core.InitialHistory(log.Clone())

	b.logger.Info("history loaded",
		"slot", store.SlotHistory,
		"stored", ok,
		"entries", len(log),
	)
	return nil
}

// loadConfig reads and delivers the config slot.
// The caller must hold b.mu.
func (b *Bridge) loadConfig(ctx context.Context) error {
	text, ok, err := b.gw.Read(ctx, store.SlotConfig)
	if err != nil {
		return b.faultSlot(store.SlotConfig, newStorageError(store.SlotConfig, "read", err))
	}

	if !ok {
		b.configState = StateLoaded
		b.core.InitialConfig(InitialConfig{Present: false})
		b.logger.Info("config absent", "slot", store.SlotConfig)
		return nil
	}

	cfg, err := decodeConfig(text)
	if err != nil {
		return b.faultSlot(store.SlotConfig, newMalformedError(store.SlotConfig, err))
	}

	b.config = cfg
	b.configPresent = true
	b.configState = StateLoaded
	b.core.InitialConfig(InitialConfig{Value: cloneRaw(cfg), Present: true})

	b.logger.Info("config loaded", "slot", store.SlotConfig, "bytes", len(cfg))
	return nil
}

// faultSlot marks a slot Faulted after a failed boot read and reports it.
// The caller must hold b.mu.
func (b *Bridge) faultSlot(slot store.Slot, err *Error) error {
	switch slot {
	case store.SlotHistory:
		b.historyState = StateFaulted
		b.historyErr = err
	case store.SlotConfig:
		b.configState = StateFaulted
		b.configErr = err
	}

	b.logger.Error("slot failed to load",
		"slot", slot,
		"code", string(err.Code),
		"error", err.Err,
	)
	b.report(err)
	return err
}

// report forwards a fault to the core if it accepts reports.
func (b *Bridge) report(err error) {
	if reporter, ok := b.core.(FaultReporter); ok {
		reporter.ReportFault(err)
	}
}

// Enqueue submits a core event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// The payload is copied, so the caller may reuse its buffer.
// Returns false if the bridge has been stopped.
func (b *Bridge) Enqueue(ev Event) bool {
	ev.Payload = cloneRaw(ev.Payload)
	return b.queue.Enqueue(ev)
}

// Run is the single-writer event loop. It processes queued events in order
// until ctx is cancelled or Stop is called and the queue has drained.
//
// ERROR HANDLING: A failed event is logged, reported to the core and
// skipped; the loop keeps running. There is no retry.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	booted := b.booted
	logger := b.logger
	b.mu.Unlock()

	if !booted {
		return ErrNotBooted
	}

	logger.Info("bridge loop starting")

	for {
		if event, ok := b.queue.TryDequeue(); ok {
			if err := b.processEvent(ctx, event); err != nil {
				logEventError(logger, event, err)
				b.report(err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			logger.Info("bridge loop stopping: context cancelled")
			b.queue.Close()
			return ctx.Err()

		case <-b.queue.Wait():
			if b.queue.Drained() {
				logger.Info("bridge loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue. Run returns once queued events are processed.
func (b *Bridge) Stop() {
	b.queue.Close()
}

// processEvent routes an event to its slot handler.
func (b *Bridge) processEvent(ctx context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch event.Type {
	case EventHistoryEntry:
		return b.appendHistoryLocked(ctx, event.Payload)
	case EventConfigChanged:
		return b.changeConfigLocked(ctx, event.Payload)
	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

// AppendHistory processes one "history entry produced" event synchronously.
//
// The entry is appended to the in-memory log and the whole log overwrites
// the history slot. If the write fails the entry stays in memory and is
// included in the next successful write.
func (b *Bridge) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendHistoryLocked(ctx, entry)
}

// appendHistoryLocked applies one history entry.
// The caller must hold b.mu.
func (b *Bridge) appendHistoryLocked(ctx context.Context, entry HistoryEntry) error {
	if !b.booted {
		return ErrNotBooted
	}

	compacted, err := compactJSON(entry)
	if err != nil {
		return newInvalidPayloadError(store.SlotHistory, err)
	}

	seq := b.clock.Next()
	b.history = append(b.history, compacted)

	if b.historyState == StateFaulted {
		b.logger.Warn("history entry kept in memory only",
			"slot", store.SlotHistory,
			"seq", seq,
			"entries", len(b.history),
		)
		return newFaultedError(store.SlotHistory, b.historyErr)
	}
	b.historyState = StateSyncing

	text, err := encodeHistory(b.history)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if err := b.gw.Write(ctx, store.SlotHistory, text); err != nil {
		return newStorageError(store.SlotHistory, "write", err)
	}

	b.logger.Debug("history persisted",
		"slot", store.SlotHistory,
		"seq", seq,
		"entries", len(b.history),
	)
	return nil
}

// ChangeConfig processes one "config changed" event synchronously.
//
// The value replaces the in-memory config and overwrites the config slot.
// A config slot that faulted at boot is recovered by this write, since the
// new value supersedes whatever was stored.
func (b *Bridge) ChangeConfig(ctx context.Context, cfg ConfigState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changeConfigLocked(ctx, cfg)
}

// changeConfigLocked applies one config change.
// The caller must hold b.mu.
func (b *Bridge) changeConfigLocked(ctx context.Context, cfg ConfigState) error {
	if !b.booted {
		return ErrNotBooted
	}

	compacted, err := compactJSON(cfg)
	if err != nil {
		return newInvalidPayloadError(store.SlotConfig, err)
	}

	seq := b.clock.Next()
	b.config = compacted
	b.configPresent = true

	if b.configState == StateFaulted {
		b.logger.Info("config slot recovered by config change",
			"slot", store.SlotConfig,
			"seq", seq,
		)
		b.configErr = nil
	}
	b.configState = StateSyncing

	if err := b.gw.Write(ctx, store.SlotConfig, encodeConfig(compacted)); err != nil {
		return newStorageError(store.SlotConfig, "write", err)
	}

	b.logger.Debug("config persisted",
		"slot", store.SlotConfig,
		"seq", seq,
		"bytes", len(compacted),
	)
	return nil
}

// History returns a copy of the in-memory history log.
func (b *Bridge) History() HistoryLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Clone()
}

// Config returns a copy of the in-memory config and whether one exists.
func (b *Bridge) Config() (ConfigState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneRaw(b.config), b.configPresent
}

// Status returns a diagnostic snapshot.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Session:       b.session,
		History:       b.historyState,
		Config:        b.configState,
		Entries:       len(b.history),
		ConfigPresent: b.configPresent,
		Seq:           b.clock.Current(),
		Pending:       b.queue.Len(),
	}
}

// logEventError logs a failed event with enough context for manual recovery.
func logEventError(logger *slog.Logger, event Event, err error) {
	attrs := []any{
		"port", event.Type.String(),
		"payload", string(event.Payload),
		"error", err,
	}
	var be *Error
	if errors.As(err, &be) {
		attrs = append(attrs, "code", string(be.Code), "slot", be.Slot)
	}
	logger.Error("event processing failed", attrs...)
}
