package forensic

import (
	"errors"
	"fmt"

	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
)

// ErrInvalidRange reports to <= from, which would make for a meaningless
// or backward diff.
var ErrInvalidRange = errors.New("forensic: to must be greater than from")

// RankChange describes how a single record's membership in a top-k
// result set changed between two log positions.
type RankChange struct {
	ID uint32
	// FromRank/ToRank are -1 when the record was absent from that side's
	// result set (i.e. the record Entered or Left).
	FromRank int
	ToRank   int
}

// Entered reports whether id newly appears in the "to" result set.
func (c RankChange) Entered() bool { return c.FromRank < 0 && c.ToRank >= 0 }

// Left reports whether id dropped out of the result set by "to".
func (c RankChange) Left() bool { return c.FromRank >= 0 && c.ToRank < 0 }

// Reranked reports whether id is present on both sides at different ranks.
func (c RankChange) Reranked() bool { return c.FromRank >= 0 && c.ToRank >= 0 && c.FromRank != c.ToRank }

// Diff is the result of comparing the state at log position from against
// the state at log position to.
type Diff struct {
	FromHash [32]byte
	ToHash   [32]byte

	// OnlyInFrom/OnlyInTo are record ids present at one position but
	// absent at the other.
	OnlyInFrom []uint32
	OnlyInTo   []uint32

	// RankChanges is nil unless a query vector was supplied to [Compute].
	RankChanges []RankChange
}

// Options configures an optional top-k ranking comparison alongside the
// state/event diff.
type Options struct {
	Query fixedpoint.Vector
	K     int
	EF    int
}

// Compute builds two fresh aggregates by replaying logPath to from and to
// respectively and reports their differences (spec §4.13).
func Compute(fsys fs.FS, logPath string, cfg kernel.Config, from, to uint64, opts *Options) (Diff, error) {
	if to <= from {
		return Diff{}, fmt.Errorf("%w: from=%d to=%d", ErrInvalidRange, from, to)
	}

	fromState, err := recovery.ReplayTo(fsys, logPath, cfg, from)
	if err != nil {
		return Diff{}, fmt.Errorf("forensic: replay to %d: %w", from, err)
	}
	toState, err := recovery.ReplayTo(fsys, logPath, cfg, to)
	if err != nil {
		return Diff{}, fmt.Errorf("forensic: replay to %d: %w", to, err)
	}

	d := Diff{
		FromHash: fromState.Hash(),
		ToHash:   toState.Hash(),
	}

	fromIDs := recordIDSet(fromState)
	toIDs := recordIDSet(toState)
	for id := range fromIDs {
		if !toIDs[id] {
			d.OnlyInFrom = append(d.OnlyInFrom, id)
		}
	}
	for id := range toIDs {
		if !fromIDs[id] {
			d.OnlyInTo = append(d.OnlyInTo, id)
		}
	}

	if opts != nil && opts.Query != nil {
		changes, err := rankChanges(fromState, toState, *opts)
		if err != nil {
			return Diff{}, err
		}
		d.RankChanges = changes
	}

	return d, nil
}

func recordIDSet(s *kernel.State) map[uint32]bool {
	ids := make(map[uint32]bool)
	s.IterRecords(func(r kernel.Record) bool {
		ids[r.ID] = true
		return true
	})
	return ids
}

func rankChanges(fromState, toState *kernel.State, opts Options) ([]RankChange, error) {
	fromResults, err := fromState.Search(opts.Query, opts.K, opts.EF, nil)
	if err != nil {
		return nil, fmt.Errorf("forensic: search from-state: %w", err)
	}
	toResults, err := toState.Search(opts.Query, opts.K, opts.EF, nil)
	if err != nil {
		return nil, fmt.Errorf("forensic: search to-state: %w", err)
	}

	fromRank := make(map[uint32]int, len(fromResults))
	for i, r := range fromResults {
		fromRank[r.ID] = i
	}
	toRank := make(map[uint32]int, len(toResults))
	for i, r := range toResults {
		toRank[r.ID] = i
	}

	seen := make(map[uint32]bool)
	var changes []RankChange
	for id, rank := range fromRank {
		to, ok := toRank[id]
		if !ok {
			to = -1
		}
		if to != rank {
			changes = append(changes, RankChange{ID: id, FromRank: rank, ToRank: to})
		}
		seen[id] = true
	}
	for id, rank := range toRank {
		if seen[id] {
			continue
		}
		changes = append(changes, RankChange{ID: id, FromRank: -1, ToRank: rank})
	}

	return changes, nil
}
