package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/bridge"
	"github.com/roach88/typist/internal/store"
)

// newLogger builds the command logger: a text handler on w at info level,
// or debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// session is one boot of the bridge against the configured store.
type session struct {
	gw     store.Gateway
	close  func() error
	bridge *bridge.Bridge
	ports  *bridge.Recorder
	logger *slog.Logger

	// bootErr holds the slot faults Boot reported, if any.
	bootErr error
}

// openStore resolves config and opens the configured gateway.
// Errors are command errors (exit 2).
func openStore(ctx context.Context, opts *RootOptions, logger *slog.Logger) (store.Gateway, func() error, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	gw, closeFn, err := openGateway(ctx, cfg, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	logger.Debug("store ready", "backend", cfg.Backend)
	return gw, closeFn, nil
}

// bootSession opens the store and boots a bridge over it.
// A boot that faults a slot still returns a session; see bootErr.
func bootSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	ctx := commandContext(cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	gw, closeFn, err := openStore(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	ports := &bridge.Recorder{}
	b := bridge.New(gw, ports,
		bridge.WithLogger(logger),
		bridge.WithClock(resumeClock(ctx, gw, logger)),
	)
	s := &session{
		gw:     gw,
		close:  closeFn,
		bridge: b,
		ports:  ports,
		logger: logger,
	}
	s.bootErr = b.Boot(ctx)
	return s, nil
}

// resumeClock starts the bridge clock at the store's last write number, so
// seq keeps increasing across runs on gateways that number their writes.
// Other gateways start from 0.
func resumeClock(ctx context.Context, gw store.Gateway, logger *slog.Logger) *bridge.Clock {
	seqr, ok := gw.(store.Sequencer)
	if !ok {
		return bridge.NewClock()
	}

	var last int64
	for _, slot := range store.Slots {
		seq, ok, err := seqr.LastSeq(ctx, slot)
		if err != nil {
			logger.Warn("reading last write seq", "slot", slot, "error", err)
			continue
		}
		if ok && seq > last {
			last = seq
		}
	}
	logger.Debug("clock resumed", "seq", last)
	return bridge.NewClockAt(last)
}

// Close releases the store, logging any failure.
func (s *session) Close() {
	if err := s.close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}
