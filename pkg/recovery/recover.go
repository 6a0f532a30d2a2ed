package recovery

import (
	"fmt"

	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/snapshot"
)

// Recover implements spec §4.10: read and validate the log header,
// decode snapshotPath into a starting state if it is non-empty (a
// snapshot that fails to decode is treated the same as "no snapshot" —
// the log is always truth), replay every committed event beyond the
// snapshot's checkpoint, and return the resulting state plus the total
// number of committed events applied (the journal height used for
// subsequent proofs, spec §6).
//
// The snapshot's own [kernel.State.Version] is used as its checkpoint
// position in the log: Version counts one per successfully applied
// event since empty, which is exactly the log offset a snapshot was
// taken at. If replaying the log up to that position produces a
// different hash than the snapshot claims, the snapshot is discarded and
// the full log replay is taken as truth (the "event log always wins"
// rule) instead of failing recovery outright.
func Recover(fsys fs.FS, snapshotPath, logPath string, cfg kernel.Config) (*kernel.State, uint64, error) {
	dim, entries, _, err := eventlog.ReadAll(fsys, logPath)
	if err != nil {
		return nil, 0, err
	}
	if dim != cfg.Dim {
		return nil, 0, fmt.Errorf("%w: log dim %d, want %d", ErrDimensionMismatch, dim, cfg.Dim)
	}

	var events []kernel.Event
	for _, e := range entries {
		if e.Kind == eventlog.EntryEvent {
			events = append(events, e.Event)
		}
	}

	fullReplay := func() (*kernel.State, error) {
		s := kernel.NewState(cfg)
		for i, ev := range events {
			if err := s.Apply(ev); err != nil {
				return nil, fmt.Errorf("recovery: replay event %d: %w", i, err)
			}
		}
		return s, nil
	}

	snapState, hasSnapshot := tryDecodeSnapshot(fsys, snapshotPath, cfg)
	if !hasSnapshot {
		s, err := fullReplay()
		if err != nil {
			return nil, 0, err
		}
		return s, uint64(len(events)), nil
	}

	checkpoint := snapState.Version()
	if checkpoint > uint64(len(events)) {
		return nil, 0, fmt.Errorf("%w: snapshot checkpoint %d exceeds log length %d", ErrCorrupt, checkpoint, len(events))
	}

	checkState := kernel.NewState(cfg)
	for i, ev := range events[:checkpoint] {
		if err := checkState.Apply(ev); err != nil {
			return nil, 0, fmt.Errorf("recovery: replay event %d: %w", i, err)
		}
	}

	if checkState.Hash() != snapState.Hash() {
		s, err := fullReplay()
		if err != nil {
			return nil, 0, err
		}
		return s, uint64(len(events)), nil
	}

	result := snapState.Clone()
	for i, ev := range events[checkpoint:] {
		if err := result.Apply(ev); err != nil {
			return nil, 0, fmt.Errorf("recovery: replay event %d: %w", int(checkpoint)+i, err)
		}
	}
	return result, uint64(len(events)), nil
}

// ReplayTo rebuilds the state reflecting exactly the first upto committed
// events in the log at logPath, ignoring any snapshot. It is the building
// block [pkg/forensic] uses to compare two log positions directly,
// without the snapshot-divergence reconciliation [Recover] performs.
func ReplayTo(fsys fs.FS, logPath string, cfg kernel.Config, upto uint64) (*kernel.State, error) {
	dim, entries, _, err := eventlog.ReadAll(fsys, logPath)
	if err != nil {
		return nil, err
	}
	if dim != cfg.Dim {
		return nil, fmt.Errorf("%w: log dim %d, want %d", ErrDimensionMismatch, dim, cfg.Dim)
	}

	var events []kernel.Event
	for _, e := range entries {
		if e.Kind == eventlog.EntryEvent {
			events = append(events, e.Event)
		}
	}
	if upto > uint64(len(events)) {
		return nil, fmt.Errorf("%w: requested position %d exceeds log length %d", ErrCorrupt, upto, len(events))
	}

	s := kernel.NewState(cfg)
	for i, ev := range events[:upto] {
		if err := s.Apply(ev); err != nil {
			return nil, fmt.Errorf("recovery: replay event %d: %w", i, err)
		}
	}
	return s, nil
}

func tryDecodeSnapshot(fsys fs.FS, path string, cfg kernel.Config) (*kernel.State, bool) {
	if path == "" {
		return nil, false
	}
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, false
	}
	s, err := snapshot.Decode(b, cfg)
	if err != nil {
		return nil, false
	}
	return s, true
}
