package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
)

func runValoVerify(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

// writeFixture writes a dim-2 config file plus a log with one insert
// event, and returns the config/snapshot/log paths.
func writeFixture(t *testing.T, dir string) (configPath, snapshotPath, logPath string) {
	t.Helper()

	logPath = filepath.Join(dir, "valo.log")
	log, err := eventlog.Open(fs.NewReal(), logPath, 2)
	require.NoError(t, err)
	defer log.Close()

	vec := fixedpoint.Vector{fixedpoint.FromInt(1), fixedpoint.FromInt(2)}
	require.NoError(t, log.Append(eventlog.Entry{
		Kind:  eventlog.EntryEvent,
		Event: kernel.InsertRecordEvent(0, vec),
	}))

	snapshotPath = filepath.Join(dir, "valo.snapshot")
	configPath = filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"dim": 2}`), 0o600))

	return configPath, snapshotPath, logPath
}

func Test_Run_Verifies_Log_Only_State_And_Prints_Proof(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath, snapshotPath, logPath := writeFixture(t, dir)

	stdout, stderr, code := runValoVerify(t,
		"--config", configPath,
		"--snapshot", snapshotPath,
		"--log", logPath,
	)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "final_state_hash")
	assert.Contains(t, stdout, "event_count")
}

func Test_Run_Print_Config_Shows_Resolved_Paths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath, snapshotPath, logPath := writeFixture(t, dir)

	stdout, stderr, code := runValoVerify(t,
		"--config", configPath,
		"--snapshot", snapshotPath,
		"--log", logPath,
		"--print-config",
	)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"snapshot_path"`)
}

func Test_Run_Rejects_Dimension_Mismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, snapshotPath, logPath := writeFixture(t, dir) // log written at dim 2

	// Config left at the default dim (8): recovery must refuse to
	// reconcile a dim-2 log against an 8-dimensional kernel config.
	_, stderr, code := runValoVerify(t, "--snapshot", snapshotPath, "--log", logPath)
	require.NotEqual(t, 0, code)
	assert.NotEmpty(t, stderr)
}
