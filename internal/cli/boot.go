package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/bridge"
)

// BootReport is what the core would receive at boot.
type BootReport struct {
	Session       string          `json:"session"`
	History       json.RawMessage `json:"history,omitempty"` // omitted when the slot faulted
	Entries       int             `json:"entries"`
	Config        json.RawMessage `json:"config,omitempty"` // omitted when absent or faulted
	ConfigPresent bool            `json:"config_present"`
	HistoryState  string          `json:"history_state"`
	ConfigState   string          `json:"config_state"`
	Faults        []string        `json:"faults,omitempty"`
}

// NewBootCommand creates the boot command.
func NewBootCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Load both slots and print the initial messages",
		Long: `Boot the bridge against the configured store and print the initial
history and config messages the core would receive.

An absent history is delivered as an empty list and an absent config as
"absent". A malformed slot or a storage failure is reported and exits 1;
the other slot is still loaded.

Example:
  typist boot --backend sqlite
  typist boot --config ./typist.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(rootOpts, cmd)
		},
	}
}

func runBoot(opts *RootOptions, cmd *cobra.Command) error {
	s, err := bootSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	report := buildBootReport(s)
	w := cmd.OutOrStdout()

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report, Session: report.Session}
		if s.bootErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: faultCode(s.bootErr), Message: s.bootErr.Error()}
		}
		formatter := &OutputFormatter{Format: opts.Format, Writer: w}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		writeBootText(w, report)
	}

	if s.bootErr != nil {
		return WrapExitError(ExitFailure, "boot failed", s.bootErr)
	}
	return nil
}

func buildBootReport(s *session) BootReport {
	status := s.bridge.Status()
	report := BootReport{
		Session:      status.Session,
		HistoryState: status.History.String(),
		ConfigState:  status.Config.String(),
	}

	if histories := s.ports.Histories(); len(histories) > 0 {
		report.History = historyJSON(histories[0])
		report.Entries = len(histories[0])
	}
	if configs := s.ports.Configs(); len(configs) > 0 && configs[0].Present {
		report.Config = configs[0].Value
		report.ConfigPresent = true
	}
	for _, code := range bridge.Codes(s.bootErr) {
		report.Faults = append(report.Faults, string(code))
	}
	return report
}

func writeBootText(w io.Writer, report BootReport) {
	fmt.Fprintf(w, "session: %s\n", report.Session)

	switch {
	case report.History != nil:
		fmt.Fprintf(w, "history: %s\n", report.History)
	default:
		fmt.Fprintf(w, "history: %s\n", report.HistoryState)
	}

	switch {
	case report.ConfigPresent:
		fmt.Fprintf(w, "config: %s\n", report.Config)
	case report.ConfigState == bridge.StateFaulted.String():
		fmt.Fprintf(w, "config: %s\n", report.ConfigState)
	default:
		fmt.Fprintln(w, "config: absent")
	}

	for _, code := range report.Faults {
		fmt.Fprintf(w, "fault: %s\n", code)
	}
}

// historyJSON renders a log as a JSON array.
func historyJSON(log bridge.HistoryLog) json.RawMessage {
	buf := []byte{'['}
	for i, entry := range log {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, entry...)
	}
	return append(buf, ']')
}
