package recovery

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/valokernel/valo/pkg/fs"
)

// checkpointMagic tags a checkpoint file so a stray or foreign file at the
// configured path is never mistaken for one (spec §4.11).
var checkpointMagic = [4]byte{'V', 'C', 'K', 'P'}

const checkpointProtocolVersion uint32 = 1

// Checkpoint is the small fixed record written after a snapshot so a later
// boot knows exactly how far the log had been replayed when the snapshot
// was taken, without re-hashing the whole log to find out.
type Checkpoint struct {
	// LastCommittedLogIndex is the number of committed events reflected in
	// the paired snapshot (spec §4.11) — equal to [kernel.State.Version] at
	// the moment the snapshot was encoded.
	LastCommittedLogIndex uint64

	// SnapshotHash is the paired snapshot's [kernel.State.Hash], so a
	// checkpoint can never be silently paired with the wrong snapshot file.
	SnapshotHash [32]byte

	// KernelProtocolVersion pins the kernel encoding in effect when the
	// checkpoint was written, independent of the snapshot's own schema
	// version field (spec §4.7).
	KernelProtocolVersion uint32
}

// WriteCheckpoint durably and atomically writes cp to path.
func WriteCheckpoint(fsys fs.FS, path string, cp Checkpoint) error {
	var buf bytes.Buffer
	buf.Write(checkpointMagic[:])
	writeU32(&buf, checkpointProtocolVersion)
	writeU64(&buf, cp.LastCommittedLogIndex)
	buf.Write(cp.SnapshotHash[:])
	writeU32(&buf, cp.KernelProtocolVersion)

	w := fs.NewAtomicWriter(fsys)
	return w.WriteWithDefaults(path, bytes.NewReader(buf.Bytes()))
}

// ReadCheckpoint reads and validates the checkpoint at path. A missing file
// is reported via the underlying fs error, not wrapped, so callers can use
// [fs.Real.Exists] or os.IsNotExist style checks to distinguish "no
// checkpoint yet" from actual corruption.
func ReadCheckpoint(fsys fs.FS, path string) (Checkpoint, error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}
	if len(b) < 4+4+8+32+4 {
		return Checkpoint{}, fmt.Errorf("%w: checkpoint file truncated", ErrCorrupt)
	}
	if !bytes.Equal(b[0:4], checkpointMagic[:]) {
		return Checkpoint{}, fmt.Errorf("%w: bad checkpoint magic", ErrCorrupt)
	}
	version := binary.LittleEndian.Uint32(b[4:8])
	if version != checkpointProtocolVersion {
		return Checkpoint{}, fmt.Errorf("%w: checkpoint protocol version %d, want %d", ErrCorrupt, version, checkpointProtocolVersion)
	}

	var cp Checkpoint
	cp.LastCommittedLogIndex = binary.LittleEndian.Uint64(b[8:16])
	copy(cp.SnapshotHash[:], b[16:48])
	cp.KernelProtocolVersion = binary.LittleEndian.Uint32(b[48:52])
	return cp, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}
