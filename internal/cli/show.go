package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/store"
)

// slotArgs maps show arguments to slots.
var slotArgs = map[string]store.Slot{
	"history": store.SlotHistory,
	"config":  store.SlotConfig,
}

// SlotText is the raw stored text of one slot.
type SlotText struct {
	Slot    string `json:"slot"`
	Present bool   `json:"present"`
	Text    string `json:"text,omitempty"`
	Seq     int64  `json:"seq,omitempty"` // last write number, on gateways that record one
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [history|config]",
		Short: "Print the raw stored slot text",
		Long: `Print the raw text stored in a slot, without parsing it.

With no argument both slots are printed. A never-written slot prints
"absent". Useful for inspecting a slot the bridge reported as malformed.

Example:
  typist show
  typist show history`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args)
		},
	}
}

func runShow(opts *RootOptions, cmd *cobra.Command, args []string) error {
	slots := store.Slots
	if len(args) == 1 {
		slot, ok := slotArgs[args[0]]
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown slot %q: must be history or config", args[0]))
		}
		slots = []store.Slot{slot}
	}

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

	seqr, _ := gw.(store.Sequencer)
	texts := make([]SlotText, 0, len(slots))
	for _, slot := range slots {
		text, ok, err := gw.Read(ctx, slot)
		if err != nil {
			return WrapExitError(ExitFailure, "read failed", err)
		}
		st := SlotText{Slot: string(slot), Present: ok, Text: text}
		if seqr != nil && ok {
			if st.Seq, _, err = seqr.LastSeq(ctx, slot); err != nil {
				return WrapExitError(ExitFailure, "read failed", err)
			}
		}
		texts = append(texts, st)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(texts)
	}

	w := cmd.OutOrStdout()
	for _, st := range texts {
		text := st.Text
		if !st.Present {
			text = "absent"
		}
		// A single slot prints bare so it can be piped
		if len(texts) == 1 {
			fmt.Fprintln(w, text)
		} else {
			fmt.Fprintf(w, "%s: %s\n", st.Slot, text)
		}
	}
	return nil
}
