package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/store"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete both slots",
		Long: `Delete typistHistory and typistConfig from the configured store.

The next boot sees a first visit: an empty history and an absent config.

Example:
  typist reset --backend file`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, cmd)
		},
	}
}

func runReset(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())
	gw, closeFn, err := openStore(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	clearer, ok := gw.(store.Clearer)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("backend %T cannot be reset", gw))
	}
	if err := clearer.Clear(ctx); err != nil {
		return WrapExitError(ExitFailure, "reset failed", err)
	}
	logger.Info("slots cleared")

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"cleared": store.Slots})
	}
	return formatter.Success("cleared typistHistory and typistConfig")
}
