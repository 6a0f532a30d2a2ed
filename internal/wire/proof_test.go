package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valokernel/valo/internal/wire"
)

func Test_Proof_Equivalent_Ignores_Snapshot_Hash(t *testing.T) {
	t.Parallel()

	a := wire.Proof{SnapshotHash: "aaaa", EventLogHash: "x", FinalStateHash: "y", EventCount: 1, CommittedHeight: 1}
	b := wire.Proof{SnapshotHash: "bbbb", EventLogHash: "x", FinalStateHash: "y", EventCount: 1, CommittedHeight: 1}
	assert.True(t, a.Equivalent(b))
}

func Test_Proof_Equivalent_Detects_Hash_Divergence(t *testing.T) {
	t.Parallel()

	a := wire.Proof{EventLogHash: "x", FinalStateHash: "y", EventCount: 1, CommittedHeight: 1}
	b := wire.Proof{EventLogHash: "x", FinalStateHash: "z", EventCount: 1, CommittedHeight: 1}
	assert.False(t, a.Equivalent(b))
}
