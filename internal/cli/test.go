package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typist/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// Golden outcomes reported per scenario.
const (
	goldenNone    = "none"
	goldenMatched = "matched"
	goldenUpdated = "updated"
	goldenDiffers = "mismatch"
)

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`

	// diff is goldie's rendering of a golden mismatch, printed with --verbose.
	diff string
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run persistence scenarios",
		Long: `Run persistence scenarios against an in-memory store.

Executes scenario files, checking each step's expectations and the final
assertions. When <scenarios-dir>/golden/<name>.golden exists the trace is
compared with it as well; --update rewrites it. Golden files are shared
with go test, which keeps them in the same format.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  typist test ./scenarios
  typist test ./scenarios --filter "quota-*"
  typist test ./scenarios --update
  typist test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, file := range files {
		sr := runScenario(file, opts.Update)
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if opts.Format != "json" {
			writeScenarioText(cmd.OutOrStdout(), sr, opts.Verbose)
		}
	}

	if opts.Format == "json" {
		if err := writeTestJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		writeTestSummary(cmd.OutOrStdout(), result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles finds all YAML scenario files under dir whose base name
// (without extension) matches filter.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}

		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// goldenFor returns the golden file of a scenario file:
// <dir>/golden/<base>.golden next to the scenario.
func goldenFor(scenarioFile string) harness.GoldenFile {
	base := filepath.Base(scenarioFile)
	return harness.GoldenFile{
		Dir:  filepath.Join(filepath.Dir(scenarioFile), "golden"),
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// runScenario loads, runs and golden-checks one scenario file. Assertion
// failures and golden mismatches both fail the scenario.
func runScenario(scenarioFile string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(scenarioFile), File: scenarioFile}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail("load error: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("execution error: %v", err)
	}
	sr.Pass = result.Pass
	sr.Errors = result.Errors

	golden := goldenFor(scenarioFile)
	if update {
		if err := golden.Update(scenario, result); err != nil {
			return fail("golden update error: %v", err)
		}
		sr.Golden = goldenUpdated
		return sr
	}

	var mismatch *harness.GoldenMismatchError
	switch err := golden.Compare(scenario, result); {
	case err == nil:
		sr.Golden = goldenMatched
	case errors.Is(err, harness.ErrNoGolden):
		sr.Golden = goldenNone
	case errors.As(err, &mismatch):
		sr.Golden = goldenDiffers
		sr.diff = mismatch.Diff
		return fail("golden file mismatch: %s (run with --update to regenerate)", mismatch.Path)
	default:
		return fail("golden comparison error: %v", err)
	}
	return sr
}

func writeScenarioText(w io.Writer, sr ScenarioResult, verbose bool) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	if sr.Golden == goldenUpdated {
		fmt.Fprintf(w, "%s %s (golden updated)\n", mark, sr.Name)
	} else {
		fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
	}

	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if verbose && sr.diff != "" {
		fmt.Fprintf(w, "%s\n", sr.diff)
	}
}

func writeTestSummary(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}

func writeTestJSON(w io.Writer, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	formatter := &OutputFormatter{Format: "json", Writer: w}
	return formatter.encode(resp)
}
