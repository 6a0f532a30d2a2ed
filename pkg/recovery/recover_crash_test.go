package recovery_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
)

// syncDir durably persists path's directory entry against a [fs.Crash]:
// a name only survives [fs.Crash.SimulateCrash] once an open handle for
// its parent directory has itself been Sync'd.
func syncDir(t *testing.T, fsys fs.FS, path string) {
	t.Helper()

	d, err := fsys.Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Sync())
	require.NoError(t, d.Close())
}

// Property 5 (spec §8): durability. Every event whose Append returned
// successfully (file write + fsync) must survive a crash.
func Test_Recover_After_Simulated_Crash_Reconstructs_Durable_Log(t *testing.T) {
	t.Parallel()

	crash, err := fs.NewCrash(t, fs.NewReal(), &fs.CrashConfig{})
	require.NoError(t, err)

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	events := []kernel.Event{
		kernel.InsertRecordEvent(0, vec(1, 1)),
		kernel.InsertRecordEvent(1, vec(2, 2)),
		kernel.InsertRecordEvent(2, vec(3, 3)),
	}

	log, err := eventlog.Open(crash, "events.log", cfg.Dim)
	require.NoError(t, err)
	syncDir(t, crash, ".")
	appendAll(t, log, events)
	require.NoError(t, log.Close())

	require.NoError(t, crash.SimulateCrash())

	want := kernel.NewState(cfg)
	for _, e := range events {
		require.NoError(t, want.Apply(e))
	}

	got, count, err := recovery.Recover(crash, "", "events.log", cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(events)), count)
	assert.Equal(t, want.Hash(), got.Hash())
}

// Property 5 (spec §8): a write that never reached an fsync'd handle —
// the page-cache-only write a real crash would lose — must not survive
// [fs.Crash.SimulateCrash], and recovering afterward must see exactly the
// log as it stood at the last successful Append, not an error.
func Test_Recover_After_Simulated_Crash_Discards_Unsynced_Tail_Write(t *testing.T) {
	t.Parallel()

	crash, err := fs.NewCrash(t, fs.NewReal(), &fs.CrashConfig{})
	require.NoError(t, err)

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	durable := []kernel.Event{
		kernel.InsertRecordEvent(0, vec(1, 1)),
		kernel.InsertRecordEvent(1, vec(2, 2)),
	}

	log, err := eventlog.Open(crash, "events.log", cfg.Dim)
	require.NoError(t, err)
	syncDir(t, crash, ".")
	appendAll(t, log, durable)

	// A raw append at the OS-handle level with no following Sync: Crash
	// tracks durability per-handle-Sync, so this never enters the
	// durable snapshot [fs.Crash.SimulateCrash] restores from.
	f, err := crash.OpenFile("events.log", os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xAA, 0xAA, 0xAA, 0xAA})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, log.Close())

	require.NoError(t, crash.SimulateCrash())

	want := kernel.NewState(cfg)
	for _, e := range durable {
		require.NoError(t, want.Apply(e))
	}

	got, count, err := recovery.Recover(crash, "", "events.log", cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(durable)), count)
	assert.Equal(t, want.Hash(), got.Hash())
}

// A log file created but never made durable at the directory level does
// not exist at all after a crash: its name was never fsynced into its
// parent. Recover must fail closed on the missing file rather than
// inventing an empty log.
func Test_Recover_After_Simulated_Crash_Loses_Log_Without_Directory_Sync(t *testing.T) {
	t.Parallel()

	crash, err := fs.NewCrash(t, fs.NewReal(), &fs.CrashConfig{})
	require.NoError(t, err)

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	log, err := eventlog.Open(crash, "events.log", cfg.Dim)
	require.NoError(t, err)
	appendAll(t, log, []kernel.Event{kernel.InsertRecordEvent(0, vec(1, 1))})
	require.NoError(t, log.Close())

	require.NoError(t, crash.SimulateCrash())

	_, _, err = recovery.Recover(crash, "", "events.log", cfg)
	require.Error(t, err)
}
