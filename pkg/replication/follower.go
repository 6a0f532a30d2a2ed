package replication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/valokernel/valo/internal/wire"
	"github.com/valokernel/valo/pkg/commit"
	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
	"github.com/valokernel/valo/pkg/snapshot"
)

// Follower drives spec §4.12's sync protocol against a single
// [LeaderClient]: bootstrap from a snapshot when starting cold or after
// a confirmed divergence, stream committed events through the ordinary
// shadow/commit pipeline, and track its own agreement state.
type Follower struct {
	fsys         fs.FS
	snapshotPath string
	logPath      string
	cfg          kernel.Config
	client       LeaderClient

	// stabilityWindow is the number of consecutive proof mismatches the
	// background checker requires before confirming divergence, so a
	// merely-lagging follower is never mistaken for a diverged one.
	stabilityWindow int

	mu             sync.RWMutex
	state          FollowerState
	committer      *commit.Committer
	log            *eventlog.Log
	mismatchStreak int
}

// NewFollower opens (or creates) the log at logPath, recovers local
// state from it and snapshotPath, and returns a Follower ready to sync.
func NewFollower(fsys fs.FS, snapshotPath, logPath string, cfg kernel.Config, client LeaderClient, stabilityWindow int) (*Follower, error) {
	// Opening first creates the log (with just its header) if this is a
	// brand new follower, so the recovery read below always has a file to
	// read rather than needing its own "log doesn't exist yet" case.
	log, err := eventlog.Open(fsys, logPath, cfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("replication: open log: %w", err)
	}

	live, committedCount, err := recovery.Recover(fsys, snapshotPath, logPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("replication: recover local state: %w", err)
	}

	return &Follower{
		fsys:            fsys,
		snapshotPath:    snapshotPath,
		logPath:         logPath,
		cfg:             cfg,
		client:          client,
		stabilityWindow: stabilityWindow,
		state:           Unknown,
		committer:       commit.NewAt(log, live, committedCount),
		log:             log,
	}, nil
}

// State returns the follower's current agreement state.
func (f *Follower) State() FollowerState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Live returns the follower's current local state.
func (f *Follower) Live() *kernel.State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.committer.Live()
}

// Close releases the follower's open log file.
func (f *Follower) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.log.Close()
}

// Bootstrap implements spec §4.12 step 2: download the leader's
// snapshot, restore it, and reset the local log to a single Checkpoint
// entry recording the downloaded height. Called both on first sync
// (empty local journal) and whenever the divergence checker confirms a
// mismatch.
func (f *Follower) Bootstrap(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = Healing

	snapBytes, err := f.client.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("replication: fetch snapshot: %w", err)
	}

	restored, err := snapshot.Decode(snapBytes, f.cfg)
	if err != nil {
		return fmt.Errorf("replication: decode fetched snapshot: %w", err)
	}

	writer := fs.NewAtomicWriter(f.fsys)
	if err := writer.WriteWithDefaults(f.snapshotPath, bytes.NewReader(snapBytes)); err != nil {
		return fmt.Errorf("replication: persist fetched snapshot: %w", err)
	}

	if err := f.log.Close(); err != nil {
		return fmt.Errorf("replication: close old log: %w", err)
	}
	if err := f.fsys.Remove(f.logPath); err != nil {
		return fmt.Errorf("replication: remove old log: %w", err)
	}

	newLog, err := eventlog.Open(f.fsys, f.logPath, f.cfg.Dim)
	if err != nil {
		return fmt.Errorf("replication: open reset log: %w", err)
	}

	height := restored.Version()
	checkpoint := eventlog.Entry{
		Kind: eventlog.EntryCheckpoint,
		Checkpoint: eventlog.Checkpoint{
			EventCount:   height,
			SnapshotHash: restored.Hash(),
			Timestamp:    time.Now().Unix(),
		},
	}
	if err := newLog.Append(checkpoint); err != nil {
		return fmt.Errorf("replication: write reset checkpoint: %w", err)
	}

	f.log = newLog
	f.committer = commit.NewAt(newLog, restored, height)
	f.mismatchStreak = 0
	f.state = Synced
	return nil
}

// SyncStream implements spec §4.12 steps 3-4: open a chunked stream from
// the current committed height and commit every received event through
// the ordinary shadow/commit pipeline. It returns when the stream ends
// (io.EOF, reported as nil) or on the first protocol or commit error.
func (f *Follower) SyncStream(ctx context.Context) error {
	f.mu.Lock()
	fromSeq := f.committer.Journal().CommittedHeight()
	f.mu.Unlock()

	stream, err := f.client.OpenStream(ctx, fromSeq)
	if err != nil {
		return fmt.Errorf("replication: open stream: %w", err)
	}
	defer stream.Close()

	tracker := NewSequenceTracker(fromSeq)
	for {
		chunk, err := ReadChunk(stream)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("replication: read chunk: %w", err)
		}

		if err := tracker.Accept(chunk.Seq); err != nil {
			return err
		}

		entry, err := eventlog.DecodePayload(chunk.Payload)
		if err != nil {
			return fmt.Errorf("replication: decode chunk payload: %w", err)
		}
		if entry.Kind != eventlog.EntryEvent {
			continue
		}

		f.mu.Lock()
		_, err = f.committer.CommitEvent(entry.Event)
		f.mu.Unlock()
		if err != nil {
			return fmt.Errorf("replication: commit streamed event: %w", err)
		}
	}
}

// LocalProof builds this follower's current proof object (spec §6).
func (f *Follower) LocalProof(kernelVersion uint32) (wire.Proof, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count, logHash, err := eventlog.Hash(f.fsys, f.logPath)
	if err != nil {
		return wire.Proof{}, fmt.Errorf("replication: hash local log: %w", err)
	}

	live := f.committer.Live()
	return wire.Proof{
		KernelVersion:   kernelVersion,
		EventLogHash:    wire.HashHex(logHash),
		FinalStateHash:  wire.HashHex(live.Hash()),
		EventCount:      count,
		CommittedHeight: f.committer.Journal().CommittedHeight(),
	}, nil
}
