package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/bridge"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host the bridge behind a JSON line protocol",
		Long: `Boot the bridge and exchange JSON messages with a host process, one per
line, until stdin closes or the process is interrupted.

Inbound (stdin):
  {"port":"appendHistory","value":<entry>}
  {"port":"saveConfig","value":<config>}

Outbound (stdout):
  {"port":"history","value":[...]}
  {"port":"config","value":<config>|null,"present":true|false}
  {"port":"error","code":"...","slot":"...","message":"..."}

Logs go to stderr.

Example:
  typist serve --backend sqlite --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

// faultBuffer bounds faults waiting to be written to stdout.
const faultBuffer = 64

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	logger := newLogger(opts, cmd.ErrOrStderr())

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	gw, closeFn, err := openStore(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	out := newLinePorts(cmd.OutOrStdout())
	core := bridge.NewChanPorts(faultBuffer)
	b := bridge.New(gw, core,
		bridge.WithLogger(logger),
		bridge.WithClock(resumeClock(ctx, gw, logger)),
	)

	// Slot faults keep serving so the healthy slot stays usable.
	if err := b.Boot(ctx); err != nil {
		logger.Warn("boot reported faults", "error", err)
	}
	out.forwardBoot(core)

	stopFaults := make(chan struct{})
	faultsDone := make(chan struct{})
	go func() {
		defer close(faultsDone)
		out.forwardFaults(core, stopFaults)
	}()

	runDone := make(chan error, 1)
	go func() {
		runDone <- b.Run(ctx)
	}()

	readDone := make(chan error, 1)
	go func() {
		readDone <- readMessages(cmd.InOrStdin(), b, out)
	}()

	var readErr, runErr error
	select {
	case readErr = <-readDone:
		// Drain whatever was queued before stdin closed
		b.Stop()
		runErr = <-runDone
	case runErr = <-runDone:
	}

	close(stopFaults)
	<-faultsDone
	if n := core.Dropped(); n > 0 {
		logger.Warn("faults not forwarded", "dropped", n)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "bridge error", runErr)
	}
	if readErr != nil && !errors.Is(readErr, errBridgeStopped) {
		return WrapExitError(ExitFailure, "reading stdin", readErr)
	}
	if err := out.Err(); err != nil {
		return WrapExitError(ExitFailure, "writing stdout", err)
	}

	logger.Info("bridge stopped gracefully")
	return nil
}
