package eventlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"syscall"

	"github.com/valokernel/valo/pkg/fs"
)

// Log is an open, append-only event log file. The zero value is not
// usable; construct one with [Open].
type Log struct {
	fsys fs.FS
	file fs.File
	dim  int
}

// Open opens (creating if necessary) the event log at path for
// appending, writing a fresh header if the file is empty, or validating
// the existing header's dim against dim otherwise (spec §4.8 "dimension
// mismatch at open ⇒ fail-closed"). The file is locked exclusively for
// the lifetime of the returned Log, in the style of the teacher's
// fileLock (lock.go): a separate process holding the log open is a
// programmer error, not a condition to recover from.
func Open(fsys fs.FS, path string, dim int) (*Log, error) {
	file, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %q: %w", path, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("eventlog: lock %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("eventlog: stat %q: %w", path, err)
	}

	if info.Size() == 0 {
		if err := writeHeader(file, dim); err != nil {
			_ = file.Close()
			return nil, err
		}
	} else {
		if err := validateHeader(file, dim); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("eventlog: seek end %q: %w", path, err)
	}

	return &Log{fsys: fsys, file: file, dim: dim}, nil
}

func writeHeader(file fs.File, dim int) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], schemaVersion)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(dim))
	// bytes [8:16] are reserved, left zero.

	if _, err := file.Write(hdr[:]); err != nil {
		return fmt.Errorf("eventlog: write header: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("eventlog: sync header: %w", err)
	}
	return nil
}

func validateHeader(file fs.File, dim int) error {
	hdr, err := readHeaderBytes(file)
	if err != nil {
		return err
	}
	version := binary.LittleEndian.Uint32(hdr[0:4])
	if version != schemaVersion {
		return fmt.Errorf("%w: header version %d", ErrIncompatible, version)
	}
	gotDim := binary.LittleEndian.Uint32(hdr[4:8])
	if int(gotDim) != dim {
		return fmt.Errorf("%w: header dim %d, want %d", ErrDimensionMismatch, gotDim, dim)
	}
	return nil
}

func readHeaderBytes(file fs.File) ([headerSize]byte, error) {
	var hdr [headerSize]byte
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return hdr, fmt.Errorf("eventlog: seek header: %w", err)
	}
	n, err := file.Read(hdr[:])
	if err != nil || n != headerSize {
		return hdr, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	return hdr, nil
}

// Append serializes e, writes it, flushes, and fsyncs, returning only
// after the fsync succeeds (spec §4.8 append protocol). The log entry is
// durable on disk before this call returns.
func (l *Log) Append(e Entry) error {
	payload := encodeEntry(e)
	frame := make([]byte, 4+len(payload)+4)
	binary.LittleEndian.PutUint32(frame[0:4], uint32(len(payload)))
	copy(frame[4:], payload)
	crc := crc32.Checksum(payload, crcTable)
	binary.LittleEndian.PutUint32(frame[4+len(payload):], crc)

	if _, err := l.file.Write(frame); err != nil {
		return fmt.Errorf("eventlog: append: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("eventlog: fsync: %w", err)
	}
	return nil
}

// Close releases the log's exclusive lock and underlying file handle.
func (l *Log) Close() error {
	return l.file.Close()
}
