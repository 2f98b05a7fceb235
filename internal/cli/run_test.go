package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nnorbert/codedam"
)

const doublerProgram = `
settings {
  title = "Doubler"
}

variable "x" { value = input("A number?") }
set "x" { value = x * 2 }
print { value = "x is ${x}" }
`

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func testConfig(path string) *Config {
	return &Config{ProgramPath: path, Interval: time.Millisecond, LogFormat: "text", LogLevel: "info"}
}

func runWith(t *testing.T, cfg *Config, input string) (string, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out, logs bytes.Buffer
	err := Run(ctx, cfg, Streams{In: strings.NewReader(input), Out: &out, Err: &logs})
	return out.String(), logs.String(), err
}

func TestRun_AutoPlay(t *testing.T) {
	t.Parallel()

	out, logs, err := runWith(t, testConfig(writeProgram(t, doublerProgram)), "7\n")
	require.NoError(t, err)
	require.Contains(t, out, "Input: A number?> ")
	require.Contains(t, out, "x is 14\n")
	require.Contains(t, logs, "run_finished")
	require.Contains(t, logs, "Runner finished.")
}

func TestRun_StepMode(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeProgram(t, doublerProgram))
	cfg.StepMode = true

	// Four steps; the input prompt consumes the third line.
	out, _, err := runWith(t, cfg, "\n\n7\n\n\n")
	require.NoError(t, err)
	require.Contains(t, out, "> var x = input(\"A number?\")")
	require.Contains(t, out, "> x = (x * 2)")
	require.Contains(t, out, "x is 14\n")
	require.Contains(t, out, "Doubler: x=14\n")
	require.True(t, strings.HasSuffix(out, "finished\n"))
}

func TestRun_StepModeQuit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeProgram(t, doublerProgram))
	cfg.StepMode = true

	out, _, err := runWith(t, cfg, "\nq\n")
	require.NoError(t, err)
	require.NotContains(t, out, "finished")
	require.NotContains(t, out, "x is 14")
}

func TestRun_Failure(t *testing.T) {
	t.Parallel()

	path := writeProgram(t, `print { value = 1 / 0 }`)
	_, logs, err := runWith(t, testConfig(path), "")
	require.ErrorIs(t, err, codedam.ErrDivisionByZero)
	require.Contains(t, err.Error(), "program failed")
	require.Contains(t, logs, "run_failed")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	path := writeProgram(t, `print { value = missing }`)
	_, _, err := runWith(t, testConfig(path), "")
	require.ErrorIs(t, err, codedam.ErrUnknownVariable)
}

func TestRun_Journal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeProgram(t, doublerProgram))
	cfg.JournalPath = filepath.Join(t.TempDir(), "runs.db")

	_, logs, err := runWith(t, cfg, "3\n")
	require.NoError(t, err)
	require.Contains(t, logs, "Journal enabled.")

	j, err := codedam.OpenJournal(cfg.JournalPath)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "Doubler", runs[0].Program)
	require.True(t, strings.HasSuffix(runs[0].RunID, "/run-1"))
	require.Equal(t, codedam.EventType("run.finished"), runs[0].LastType)
}

func TestFormatScope(t *testing.T) {
	t.Parallel()

	snap := codedam.Snapshot{Frames: []codedam.ScopeFrame{
		{Name: "Program", Variables: []codedam.VariableView{{Name: "x", Value: 1.0}, {Name: "s", Value: "hi"}}},
		{Name: "empty"},
		{Name: "then", Variables: []codedam.VariableView{{Name: "y"}}},
	}}
	require.Equal(t, "Program: x=1 s=hi\nthen: y=none\n", formatScope(snap))
}
