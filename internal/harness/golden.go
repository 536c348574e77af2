package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// DefaultGoldenDir is where go test keeps the package's golden traces.
const DefaultGoldenDir = "testdata/golden"

const goldenSuffix = ".golden"

// ErrNoGolden is returned by GoldenFile.Compare when the file does not exist.
var ErrNoGolden = errors.New("golden file not found")

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Session      string       `json:"session,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// MarshalTrace renders the scenario's trace as indented JSON.
// Struct field order and the absence of maps keep the output deterministic.
// HTML characters are left unescaped so stored text reads as stored.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      scenario.Session,
		Trace:        result.Trace,
	}
	if snapshot.Trace == nil {
		snapshot.Trace = []TraceEvent{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GoldenFile is one golden trace, stored at <Dir>/<Name>.golden.
// Both go test and the test command read and write it through goldie.
type GoldenFile struct {
	Dir  string
	Name string
}

// Path returns the golden file's location.
func (f GoldenFile) Path() string {
	return filepath.Join(f.Dir, f.Name+goldenSuffix)
}

// Update writes the result's trace as the golden file, creating Dir if needed.
func (f GoldenFile) Update(scenario *Scenario, result *Result) error {
	data, err := MarshalTrace(scenario, result)
	if err != nil {
		return err
	}
	rec := &goldenRecorder{}
	if err := newGoldie(rec, f.Dir).Update(rec, f.Name, data); err != nil {
		return fmt.Errorf("update %s: %w", f.Path(), err)
	}
	return nil
}

// Compare checks the result's trace against the golden file. It returns
// ErrNoGolden when there is no file and a *GoldenMismatchError when the
// trace differs.
func (f GoldenFile) Compare(scenario *Scenario, result *Result) error {
	if _, err := os.Stat(f.Path()); errors.Is(err, os.ErrNotExist) {
		return ErrNoGolden
	}

	data, err := MarshalTrace(scenario, result)
	if err != nil {
		return err
	}

	rec := &goldenRecorder{}
	newGoldie(rec, f.Dir).Assert(rec, f.Name, data)
	if len(rec.errs) > 0 {
		return &GoldenMismatchError{Path: f.Path(), Diff: rec.errs[0].Error()}
	}
	return nil
}

// GoldenMismatchError reports a trace that differs from its golden file.
type GoldenMismatchError struct {
	Path string
	Diff string // goldie's rendering of the difference
}

func (e *GoldenMismatchError) Error() string {
	return fmt.Sprintf("trace does not match %s", e.Path)
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenario, result)
	if err != nil {
		return err
	}

	newGoldie(t, DefaultGoldenDir).Assert(t, scenario.Name, traceJSON)
	return nil
}

func newGoldie(t testing.TB, dir string) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(goldenSuffix),
	)
}

// goldenRecorder lets goldie run outside go test. It collects reported
// errors instead of failing a test; goldie calls nothing else on it with
// the options newGoldie sets.
type goldenRecorder struct {
	testing.TB
	errs []error
}

func (r *goldenRecorder) Helper()      {}
func (r *goldenRecorder) Name() string { return "" }
func (r *goldenRecorder) FailNow()     {}

func (r *goldenRecorder) Error(args ...any) {
	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			r.errs = append(r.errs, err)
			return
		}
	}
	r.errs = append(r.errs, errors.New(fmt.Sprint(args...)))
}
