package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/store"
)

func TestRunScenario(t *testing.T) {
	path := writeScenario(t, "fifo.yaml", validScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "scenario:    cli-fifo")
	assert.Contains(t, output, "events:      4")
	assert.Contains(t, output, "fingerprint: ")
	assert.NotContains(t, output, "run id:")
}

func TestRunScenarioJSON(t *testing.T) {
	path := writeScenario(t, "fifo.yaml", validScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cli-fifo", data["scenario"])
	assert.Equal(t, float64(4), data["events"])
	assert.Len(t, data["fingerprint"], 64)
}

func TestRunScenarioRecordsToStore(t *testing.T) {
	path := writeScenario(t, "fifo.yaml", validScenarioYAML)
	dbPath := filepath.Join(t.TempDir(), "loom.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	runID, ok := data["run_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, runID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "cli-fifo", run.Scenario)
	assert.Equal(t, data["fingerprint"], run.Fingerprint)
}

func TestRunDeadlockedScenario(t *testing.T) {
	path := writeScenario(t, "stuck.yaml", `name: stuck
capacity: 1
threads:
  - name: solo
    steps:
      - op: take
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "DEADLOCK_DETECTED")
}

func TestRunMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
