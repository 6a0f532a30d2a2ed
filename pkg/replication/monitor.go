package replication

import (
	"context"
	"log"
	"time"
)

// DivergenceChecker periodically compares this follower's proof against
// its leader's and confirms divergence only after [Follower.stabilityWindow]
// consecutive mismatches, in the style of the teacher's
// coordinator.HealthMonitor: a ticker loop, a per-tick check, and a
// callback fired when the bootstrap triggered by confirmed divergence
// fails.
type DivergenceChecker struct {
	follower *Follower
	interval time.Duration

	// kernelVersion is stamped into outgoing proofs; it never changes at
	// runtime, so it is captured once here rather than threaded through
	// every call.
	kernelVersion uint32

	onDiverged func(err error)
}

// NewDivergenceChecker returns a checker that compares proofs every
// interval.
func NewDivergenceChecker(follower *Follower, kernelVersion uint32, interval time.Duration) *DivergenceChecker {
	return &DivergenceChecker{
		follower:      follower,
		interval:      interval,
		kernelVersion: kernelVersion,
	}
}

// OnDiverged sets a callback invoked if [DivergenceChecker.Run]'s
// triggered bootstrap fails, so the embedder can alert or retry.
func (c *DivergenceChecker) OnDiverged(fn func(err error)) {
	c.onDiverged = fn
}

// Run blocks, checking every interval, until ctx is done.
func (c *DivergenceChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *DivergenceChecker) checkOnce(ctx context.Context) {
	leaderProof, err := c.follower.client.FetchProof(ctx)
	if err != nil {
		log.Printf("replication: fetch leader proof: %v", err)
		return
	}

	localProof, err := c.follower.LocalProof(c.kernelVersion)
	if err != nil {
		log.Printf("replication: build local proof: %v", err)
		return
	}

	c.follower.mu.Lock()
	if localProof.Equivalent(leaderProof) {
		c.follower.mismatchStreak = 0
		c.follower.state = Synced
		c.follower.mu.Unlock()
		return
	}

	// A HEAD-hash mismatch alone is only a hint — the follower may simply
	// be lagging behind a leader that is still accepting writes. Require
	// the stability window before treating it as real divergence (spec
	// §4.12).
	c.follower.mismatchStreak++
	confirmed := c.follower.mismatchStreak >= c.follower.stabilityWindow
	c.follower.mu.Unlock()

	if !confirmed {
		return
	}

	c.follower.mu.Lock()
	c.follower.state = Diverged
	c.follower.mu.Unlock()

	log.Printf("replication: divergence confirmed after %d checks, bootstrapping", c.follower.stabilityWindow)
	if err := c.follower.Bootstrap(ctx); err != nil {
		log.Printf("replication: bootstrap after divergence failed: %v", err)
		if c.onDiverged != nil {
			c.onDiverged(err)
		}
	}
}
