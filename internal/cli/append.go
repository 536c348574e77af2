package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/bridge"
)

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "append <entry-json>",
		Short: "Append one history entry and persist the log",
		Long: `Boot the bridge, append one history entry and overwrite typistHistory
with the whole log.

The entry is any JSON value. A malformed config slot does not prevent the
append; a malformed history slot does, and its stored text is left as is.

Example:
  typist append '{"wpm":42,"duration":30}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChange(rootOpts, cmd, func(s *session) error {
				return s.bridge.AppendHistory(commandContext(cmd), bridge.HistoryEntry(args[0]))
			})
		},
	}
}

// NewSetConfigCommand creates the set-config command.
func NewSetConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-config <config-json>",
		Short: "Replace the config and persist it",
		Long: `Boot the bridge, replace the config wholesale and overwrite typistConfig.

A malformed config slot is replaced by the new value.

Example:
  typist set-config '{"theme":"dark"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChange(rootOpts, cmd, func(s *session) error {
				return s.bridge.ChangeConfig(commandContext(cmd), bridge.ConfigState(args[0]))
			})
		},
	}
}

// changeResult is printed after a successful change.
type changeResult struct {
	Entries       int   `json:"entries"`
	ConfigPresent bool  `json:"config_present"`
	Seq           int64 `json:"seq"`
}

// runChange boots a session and applies one change to it.
func runChange(opts *RootOptions, cmd *cobra.Command, change func(*session) error) error {
	s, err := bootSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.bootErr != nil {
		s.logger.Warn("boot reported faults", "error", s.bootErr)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := change(s); err != nil {
		if ferr := formatter.Fault(err); ferr != nil {
			return ferr
		}
		if bridge.IsInvalidPayload(err) {
			return WrapExitError(ExitCommandError, "invalid argument", err)
		}
		return WrapExitError(ExitFailure, "change not persisted", err)
	}

	status := s.bridge.Status()
	if opts.Format == "json" {
		return formatter.Success(changeResult{
			Entries:       status.Entries,
			ConfigPresent: status.ConfigPresent,
			Seq:           status.Seq,
		})
	}
	return formatter.Success(fmt.Sprintf("persisted (entries=%d, config=%t)", status.Entries, status.ConfigPresent))
}
