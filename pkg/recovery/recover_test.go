package recovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
	"github.com/valokernel/valo/pkg/snapshot"
)

func vec(xs ...int) fixedpoint.Vector {
	out := make(fixedpoint.Vector, len(xs))
	for i, x := range xs {
		out[i] = fixedpoint.FromInt(x)
	}
	return out
}

func appendAll(t *testing.T, log *eventlog.Log, events []kernel.Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, log.Append(eventlog.Entry{Kind: eventlog.EntryEvent, Event: e}))
	}
}

// Property 1 (spec §8): replay determinism. Recovering from a bare log
// (no snapshot) reproduces exactly the state obtained by applying the same
// events directly in-process.
func Test_Recover_From_Log_Only_Matches_Direct_Apply(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	logPath := dir + "/events.log"

	events := []kernel.Event{
		kernel.InsertRecordEvent(0, vec(1, 1)),
		kernel.InsertRecordEvent(1, vec(2, 2)),
		kernel.InsertRecordEvent(2, vec(3, 3)),
		kernel.DeleteRecordEvent(1),
	}

	log, err := eventlog.Open(fsys, logPath, 2)
	require.NoError(t, err)
	appendAll(t, log, events)
	require.NoError(t, log.Close())

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	want := kernel.NewState(cfg)
	for _, e := range events {
		require.NoError(t, want.Apply(e))
	}

	got, count, err := recovery.Recover(fsys, "", logPath, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(events)), count)
	assert.Equal(t, want.Hash(), got.Hash())
}

// Scenario: a valid snapshot paired with a log suffix recovers to the same
// state as replaying the full log from empty.
func Test_Recover_Applies_Snapshot_Then_Log_Suffix(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	logPath := dir + "/events.log"
	snapPath := dir + "/snapshot.valo"

	cfg := kernel.DefaultConfig(2, 64, 64, 64)

	prefix := []kernel.Event{
		kernel.InsertRecordEvent(0, vec(1, 1)),
		kernel.InsertRecordEvent(1, vec(2, 2)),
	}
	suffix := []kernel.Event{
		kernel.InsertRecordEvent(2, vec(3, 3)),
	}

	log, err := eventlog.Open(fsys, logPath, 2)
	require.NoError(t, err)
	appendAll(t, log, prefix)
	appendAll(t, log, suffix)
	require.NoError(t, log.Close())

	snapState := kernel.NewState(cfg)
	for _, e := range prefix {
		require.NoError(t, snapState.Apply(e))
	}
	require.NoError(t, snapshot.WriteFile(snapPath, snapState))

	full := kernel.NewState(cfg)
	for _, e := range append(append([]kernel.Event{}, prefix...), suffix...) {
		require.NoError(t, full.Apply(e))
	}

	got, count, err := recovery.Recover(fsys, snapPath, logPath, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(prefix)+len(suffix)), count)
	assert.Equal(t, full.Hash(), got.Hash())
}

// "Event log always wins" (spec §4.10): a snapshot whose hash disagrees
// with what the log up to its own checkpoint actually produces is
// discarded in favor of a full replay from empty.
func Test_Recover_Discards_Diverged_Snapshot_And_Trusts_Log(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	logPath := dir + "/events.log"
	snapPath := dir + "/snapshot.valo"

	cfg := kernel.DefaultConfig(2, 64, 64, 64)

	events := []kernel.Event{
		kernel.InsertRecordEvent(0, vec(1, 1)),
		kernel.InsertRecordEvent(1, vec(2, 2)),
	}

	log, err := eventlog.Open(fsys, logPath, 2)
	require.NoError(t, err)
	appendAll(t, log, events)
	require.NoError(t, log.Close())

	// A snapshot whose Version (1) claims it reflects the log's first
	// event, but whose record holds a different vector than that event
	// produces: replaying the log to position 1 yields a different hash,
	// simulating a corrupted/forged snapshot.
	diverged := kernel.NewState(cfg)
	require.NoError(t, diverged.Apply(kernel.InsertRecordEvent(0, vec(9, 9))))
	require.NoError(t, snapshot.WriteFile(snapPath, diverged))

	want := kernel.NewState(cfg)
	for _, e := range events {
		require.NoError(t, want.Apply(e))
	}

	got, count, err := recovery.Recover(fsys, snapPath, logPath, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(events)), count)
	assert.Equal(t, want.Hash(), got.Hash())
}

// Property 8 (spec §8): a log written for one dimensionality must never be
// silently replayed into a differently-configured kernel.
func Test_Recover_Rejects_Dimension_Mismatch(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	logPath := dir + "/events.log"

	log, err := eventlog.Open(fsys, logPath, 3)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	_, _, err = recovery.Recover(fsys, "", logPath, cfg)
	require.ErrorIs(t, err, recovery.ErrDimensionMismatch)
}

func Test_Recover_Tolerates_Missing_Snapshot_File(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	logPath := dir + "/events.log"

	events := []kernel.Event{kernel.InsertRecordEvent(0, vec(1, 1))}
	log, err := eventlog.Open(fsys, logPath, 2)
	require.NoError(t, err)
	appendAll(t, log, events)
	require.NoError(t, log.Close())

	cfg := kernel.DefaultConfig(2, 64, 64, 64)
	_, count, err := recovery.Recover(fsys, dir+"/does-not-exist.valo", logPath, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
