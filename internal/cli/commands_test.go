package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fileStore points the CLI at a fresh file backend and returns its directory.
func fileStore(t *testing.T) string {
	t.Helper()
	clearConfigEnv(t)
	t.Chdir(t.TempDir())
	dir := filepath.Join(t.TempDir(), "slots")
	t.Setenv("TYPIST_BACKEND", BackendFile)
	t.Setenv("TYPIST_FILE_DIR", dir)
	return dir
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func readSlotFile(t *testing.T, dir, slot string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, slot+".json"))
	require.NoError(t, err)
	return string(data)
}

func writeSlotFile(t *testing.T, dir, slot, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, slot+".json"), []byte(text), 0o644))
}

func TestBoot_FirstVisit(t *testing.T) {
	fileStore(t)

	out, stderr, err := execute(t, "", "boot")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "session: "))
	assert.Equal(t, "history: []", lines[1])
	assert.Equal(t, "config: absent", lines[2])
	assert.Contains(t, stderr, "bridge booted")
}

func TestBoot_JSON(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistHistory", `[{"wpm":42,"duration":30}]`)
	writeSlotFile(t, dir, "typistConfig", `{"theme":"dark"}`)

	out, _, err := execute(t, "", "boot", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status  string     `json:"status"`
		Session string     `json:"session"`
		Data    BootReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Session)
	assert.Equal(t, resp.Session, resp.Data.Session)
	assert.JSONEq(t, `[{"wpm":42,"duration":30}]`, string(resp.Data.History))
	assert.Equal(t, 1, resp.Data.Entries)
	assert.True(t, resp.Data.ConfigPresent)
	assert.JSONEq(t, `{"theme":"dark"}`, string(resp.Data.Config))
	assert.Equal(t, "loaded", resp.Data.HistoryState)
	assert.Empty(t, resp.Data.Faults)
}

func TestBoot_MalformedHistory(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistHistory", "not json")
	writeSlotFile(t, dir, "typistConfig", `{"theme":"dark"}`)

	out, _, err := execute(t, "", "boot")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "history: faulted")
	assert.Contains(t, out, `config: {"theme":"dark"}`, "the healthy slot still loads")
	assert.Contains(t, out, "fault: MALFORMED_STATE")
	assert.Equal(t, "not json", readSlotFile(t, dir, "typistHistory"), "malformed text is left untouched")
}

func TestBoot_MalformedJSONOutput(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistConfig", "{broken")

	out, _, err := execute(t, "", "boot", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_STATE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "typistConfig")
}

func TestAppend_PersistsWholeLog(t *testing.T) {
	dir := fileStore(t)

	out, _, err := execute(t, "", "append", `{"wpm":42,"duration":30}`)
	require.NoError(t, err)
	assert.Equal(t, "persisted (entries=1, config=false)\n", out)

	out, _, err = execute(t, "", "append", `{ "wpm": 55, "duration": 60 }`)
	require.NoError(t, err)
	assert.Equal(t, "persisted (entries=2, config=false)\n", out)

	assert.Equal(t,
		`[{"wpm":42,"duration":30},{"wpm":55,"duration":60}]`,
		readSlotFile(t, dir, "typistHistory"))
}

func TestAppend_JSONOutput(t *testing.T) {
	fileStore(t)

	out, _, err := execute(t, "", "append", "--format", "json", `{"wpm":42}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"entries":1,"config_present":false,"seq":1}}`, out)
}

func TestAppend_InvalidPayload(t *testing.T) {
	dir := fileStore(t)

	out, _, err := execute(t, "", "append", "not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_PAYLOAD]")
	assert.NoFileExists(t, filepath.Join(dir, "typistHistory.json"))
}

func TestAppend_FaultedHistoryIsNotOverwritten(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistHistory", `{"not":"a list"}`)

	out, _, err := execute(t, "", "append", `{"wpm":42}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [SLOT_FAULTED]")
	assert.Equal(t, `{"not":"a list"}`, readSlotFile(t, dir, "typistHistory"))
}

func TestSetConfig_ReplacesValue(t *testing.T) {
	dir := fileStore(t)

	_, _, err := execute(t, "", "set-config", `{"theme":"light"}`)
	require.NoError(t, err)
	out, _, err := execute(t, "", "set-config", `{"theme":"dark","layout":"qwerty"}`)
	require.NoError(t, err)
	assert.Equal(t, "persisted (entries=0, config=true)\n", out)

	assert.Equal(t, `{"theme":"dark","layout":"qwerty"}`, readSlotFile(t, dir, "typistConfig"))
}

func TestSetConfig_RecoversMalformedConfig(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistConfig", "{broken")

	_, stderr, err := execute(t, "", "set-config", `{"theme":"dark"}`)
	require.NoError(t, err)
	assert.Contains(t, stderr, "boot reported faults")
	assert.Equal(t, `{"theme":"dark"}`, readSlotFile(t, dir, "typistConfig"))
}

func TestSetConfig_IgnoresMalformedHistory(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistHistory", "not json")

	_, _, err := execute(t, "", "set-config", `{"theme":"dark"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, readSlotFile(t, dir, "typistConfig"))
	assert.Equal(t, "not json", readSlotFile(t, dir, "typistHistory"))
}

func TestShow(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistHistory", "not json")

	out, _, err := execute(t, "", "show")
	require.NoError(t, err)
	assert.Equal(t, "typistHistory: not json\ntypistConfig: absent\n", out)

	out, _, err = execute(t, "", "show", "history")
	require.NoError(t, err)
	assert.Equal(t, "not json\n", out)

	out, _, err = execute(t, "", "show", "config")
	require.NoError(t, err)
	assert.Equal(t, "absent\n", out)
}

func TestShow_JSON(t *testing.T) {
	dir := fileStore(t)
	writeSlotFile(t, dir, "typistConfig", `{"theme":"dark"}`)

	out, _, err := execute(t, "", "show", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[
		{"slot":"typistHistory","present":false},
		{"slot":"typistConfig","present":true,"text":"{\"theme\":\"dark\"}"}
	]}`, out)
}

func TestShow_UnknownSlot(t *testing.T) {
	fileStore(t)

	_, _, err := execute(t, "", "show", "settings")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown slot "settings"`)
}

func TestReset(t *testing.T) {
	dir := fileStore(t)

	_, _, err := execute(t, "", "append", `{"wpm":42}`)
	require.NoError(t, err)
	_, _, err = execute(t, "", "set-config", `{"theme":"dark"}`)
	require.NoError(t, err)

	out, _, err := execute(t, "", "reset")
	require.NoError(t, err)
	assert.Equal(t, "cleared typistHistory and typistConfig\n", out)
	assert.NoFileExists(t, filepath.Join(dir, "typistHistory.json"))
	assert.NoFileExists(t, filepath.Join(dir, "typistConfig.json"))

	out, _, err = execute(t, "", "boot")
	require.NoError(t, err)
	assert.Contains(t, out, "history: []")
	assert.Contains(t, out, "config: absent")
}

func TestRoundTripAcrossBackends(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendFile} {
		t.Run(backend, func(t *testing.T) {
			clearConfigEnv(t)
			dir := t.TempDir()
			t.Chdir(dir)
			t.Setenv("TYPIST_SQLITE_PATH", filepath.Join(dir, "typist.db"))
			t.Setenv("TYPIST_FILE_DIR", filepath.Join(dir, "slots"))

			_, _, err := execute(t, "", "--backend", backend, "append", `{"wpm":42,"duration":30}`)
			require.NoError(t, err)
			_, _, err = execute(t, "", "--backend", backend, "set-config", `{"theme":"dark"}`)
			require.NoError(t, err)

			out, _, err := execute(t, "", "--backend", backend, "boot")
			require.NoError(t, err)
			assert.Contains(t, out, `history: [{"wpm":42,"duration":30}]`)
			assert.Contains(t, out, `config: {"theme":"dark"}`)
		})
	}
}

func TestCommand_BadConfigIsCommandError(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "boot")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestSQLiteSeqContinuesAcrossRuns(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TYPIST_BACKEND", BackendSQLite)
	t.Setenv("TYPIST_SQLITE_PATH", filepath.Join(dir, "typist.db"))

	_, _, err := execute(t, "", "append", `{"wpm":42}`)
	require.NoError(t, err)
	_, _, err = execute(t, "", "set-config", `{"theme":"dark"}`)
	require.NoError(t, err)

	out, _, err := execute(t, "", "append", "--format", "json", `{"wpm":55}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"entries":2,"config_present":true,"seq":3}}`, out)

	out, _, err = execute(t, "", "show", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[
		{"slot":"typistHistory","present":true,"text":"[{\"wpm\":42},{\"wpm\":55}]","seq":3},
		{"slot":"typistConfig","present":true,"text":"{\"theme\":\"dark\"}","seq":2}
	]}`, out)
}
