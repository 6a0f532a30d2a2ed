package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/natefinch/atomic"

	"github.com/valokernel/valo/pkg/kernel"
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes s into the spec §6 envelope.
func Encode(s *kernel.State) ([]byte, error) {
	data := s.Export()
	cfg := s.Config()

	kernelBlob, metadataBlob, err := encodeKernelBlob(cfg, data)
	if err != nil {
		return nil, err
	}
	indexBlob := encodeIndexBlob(data)

	m := meta{
		KernelLen:   uint32(len(kernelBlob)),
		MetadataLen: uint32(len(metadataBlob)),
		IndexLen:    uint32(len(indexBlob)),
		MaxRecords:  cfg.MaxRecords,
		Dim:         cfg.Dim,
		MaxNodes:    cfg.MaxNodes,
		MaxEdges:    cfg.MaxEdges,
	}
	metaJSON, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode metadata: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(magicVALO[:])
	writeU32(&buf, schemaVersion)
	writeU32(&buf, uint32(len(metaJSON)))
	buf.Write(metaJSON)
	buf.Write(kernelBlob)
	buf.Write(metadataBlob)
	buf.Write(indexBlob)

	crc := crc32.Checksum(buf.Bytes(), crcTable)
	writeU32(&buf, crc)

	return buf.Bytes(), nil
}

// WriteFile encodes s and durably writes it to path via a tmp-file +
// rename, matching the teacher's own atomic-write discipline
// (pkg/fs/atomic_write.go).
func WriteFile(path string, s *kernel.State) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}

// Decode parses an envelope produced by [Encode] against cfg, failing
// closed on version mismatch, capacity/dimension mismatch, CRC mismatch,
// or any orphan graph/HNSW pointer (spec §4.7). On success the returned
// state has already passed [kernel.State.CheckInvariants].
func Decode(b []byte, cfg kernel.Config) (*kernel.State, error) {
	const fixedHeader = 4 + 4 + 4 // magic + schema_version + meta_len
	if len(b) < fixedHeader+4 {
		return nil, fmt.Errorf("%w: envelope too short", ErrCorrupt)
	}

	var magic [4]byte
	copy(magic[:], b[0:4])
	if magic != magicVALO && magic != magicVALK {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	gotVersion := readU32(b[4:8])
	if gotVersion != schemaVersion {
		return nil, fmt.Errorf("%w: schema version %d", ErrIncompatible, gotVersion)
	}

	metaLen := readU32(b[8:12])
	cursor := 12
	if len(b) < cursor+int(metaLen)+4 {
		return nil, fmt.Errorf("%w: truncated metadata section", ErrCorrupt)
	}

	var m meta
	if err := json.Unmarshal(b[cursor:cursor+int(metaLen)], &m); err != nil {
		return nil, fmt.Errorf("%w: metadata json: %v", ErrCorrupt, err)
	}
	cursor += int(metaLen)

	if m.Dim != cfg.Dim || m.MaxRecords != cfg.MaxRecords || m.MaxNodes != cfg.MaxNodes || m.MaxEdges != cfg.MaxEdges {
		return nil, fmt.Errorf("%w: snapshot capacity (dim=%d records=%d nodes=%d edges=%d) does not match config (dim=%d records=%d nodes=%d edges=%d)",
			ErrDimensionMismatch, m.Dim, m.MaxRecords, m.MaxNodes, m.MaxEdges, cfg.Dim, cfg.MaxRecords, cfg.MaxNodes, cfg.MaxEdges)
	}

	need := cursor + int(m.KernelLen) + int(m.MetadataLen) + int(m.IndexLen) + 4
	if len(b) < need {
		return nil, fmt.Errorf("%w: truncated body", ErrCorrupt)
	}

	crcCovered := b[:cursor+int(m.KernelLen)+int(m.MetadataLen)+int(m.IndexLen)]
	wantCRC := readU32(b[cursor+int(m.KernelLen)+int(m.MetadataLen)+int(m.IndexLen):])
	if crc32.Checksum(crcCovered, crcTable) != wantCRC {
		return nil, fmt.Errorf("%w: crc mismatch", ErrCorrupt)
	}

	kernelBlob := b[cursor : cursor+int(m.KernelLen)]
	cursor += int(m.KernelLen)
	metadataBlob := b[cursor : cursor+int(m.MetadataLen)]
	cursor += int(m.MetadataLen)
	indexBlob := b[cursor : cursor+int(m.IndexLen)]

	data, err := decodeKernelBlob(kernelBlob, metadataBlob, cfg)
	if err != nil {
		return nil, err
	}
	if err := decodeIndexBlob(indexBlob, data); err != nil {
		return nil, err
	}

	s := kernel.Import(cfg, *data)
	if err := s.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func readU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
