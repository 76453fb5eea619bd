// Package logfile implements the append-only data files (and their
// companion hint files) that back the store. A DataFile knows how to
// append put/delete records, read a value back by offset, and scan its
// own contents to rebuild the key index during recovery or merge.
package logfile

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jassi-singh/aether-kv/internal/format"
	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

// FlushPolicy controls how aggressively a DataFile syncs buffered writes
// to disk, mirroring the batch-size/sync-interval knobs of the teacher's
// internal/storage.File.
type FlushPolicy struct {
	BatchSize    int
	SyncInterval time.Duration
}

// DefaultFlushPolicy syncs after every write, the safest and simplest
// default for a library whose callers have not tuned a batching policy.
var DefaultFlushPolicy = FlushPolicy{BatchSize: 0, SyncInterval: 0}

// DataFile wraps one "bcXXXXXXXXXXXXXXXX.d" file. Writes are buffered and
// serialized by mu; internal/store serializes writers to the active file
// one at a time (spec.md §5), so mu only ever guards this file's own
// bookkeeping, not cross-file ordering.
type DataFile struct {
	mu       sync.Mutex
	id       uint64
	path     string
	file     *os.File
	buf      *bufio.Writer
	readOnly bool
	policy   FlushPolicy
	lastSync time.Time
	log      *zap.SugaredLogger
}

// Open opens (creating if needed) the data file for id at path. readOnly
// selects O_RDONLY for immutable files already filled past their
// rotation threshold; otherwise the file is opened O_RDWR|O_CREATE|O_APPEND
// so every write lands at the current end of file, matching the active-file semantics of datadir::impl::active_file.
func Open(path string, id uint64, readOnly bool, policy FlushPolicy, log *zap.SugaredLogger) (*DataFile, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	flags := os.O_RDONLY
	if !readOnly {
		flags = os.O_RDWR | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, bcerrors.IO("open", path, err)
	}

	df := &DataFile{
		id:       id,
		path:     path,
		file:     f,
		readOnly: readOnly,
		policy:   policy,
		lastSync: time.Now(),
		log:      log,
	}
	if !readOnly {
		df.buf = bufio.NewWriter(f)
	}
	return df, nil
}

// ID returns the file's id, decoded from its filename at open time.
func (f *DataFile) ID() uint64 { return f.id }

// Path returns the file's path on disk.
func (f *DataFile) Path() string { return f.path }

// Size returns the file's current size, including anything still
// buffered but not yet flushed.
func (f *DataFile) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizeLocked()
}

func (f *DataFile) sizeLocked() (int64, error) {
	stat, err := f.file.Stat()
	if err != nil {
		return 0, bcerrors.IO("stat", f.path, err)
	}
	size := stat.Size()
	if f.buf != nil {
		size += int64(f.buf.Buffered())
	}
	return size, nil
}

// AppendPut writes a live data record for key/value at version and
// reports the offset at which the value bytes begin — what the key index
// stores as ValuePos.
func (f *DataFile) AppendPut(key, value []byte, version uint64) (valuePos int64, err error) {
	if uint64(len(key)) > format.MaxKeySize {
		return 0, bcerrors.KeyTooLong(len(key))
	}
	if uint64(len(value)) > format.MaxValueSize {
		return 0, bcerrors.ValueTooLong(len(value))
	}

	buf := format.EncodePut(key, value, version)

	f.mu.Lock()
	defer f.mu.Unlock()

	offset, err := f.sizeLocked()
	if err != nil {
		return 0, err
	}
	valuePos = offset + int64(format.DataHeaderSize+len(key))

	if err := f.writeLocked(buf); err != nil {
		return 0, err
	}
	return valuePos, nil
}

// AppendDelete writes a tombstone record for key at version.
func (f *DataFile) AppendDelete(key []byte, version uint64) error {
	if uint64(len(key)) > format.MaxKeySize {
		return bcerrors.KeyTooLong(len(key))
	}

	buf := format.EncodeDelete(key, version)

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(buf)
}

func (f *DataFile) writeLocked(buf []byte) error {
	if f.readOnly {
		return bcerrors.IO("write", f.path, os.ErrPermission)
	}
	if _, err := f.buf.Write(buf); err != nil {
		return bcerrors.IO("write", f.path, err)
	}

	if f.policy.BatchSize <= 0 && f.policy.SyncInterval <= 0 {
		return f.flushAndSyncLocked()
	}
	if f.buf.Buffered() >= f.policy.BatchSize || time.Since(f.lastSync) >= f.policy.SyncInterval {
		return f.flushAndSyncLocked()
	}
	return nil
}

func (f *DataFile) flushAndSyncLocked() error {
	if err := f.buf.Flush(); err != nil {
		return bcerrors.IO("flush", f.path, err)
	}
	if err := f.file.Sync(); err != nil {
		return bcerrors.IO("sync", f.path, err)
	}
	f.lastSync = time.Now()
	return nil
}

// Flush forces any buffered writes out to disk.
func (f *DataFile) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buf == nil {
		return nil
	}
	return f.flushAndSyncLocked()
}

// ReadValue reads size bytes starting at pos, used to satisfy a Get once
// the key index has resolved a key to (file, pos, size). It flushes first
// if pos falls within data still sitting in the write buffer, so a read
// immediately following a Put on the same file never misses it — the
// same accounting the teacher's ShouldFlushBeforeRead performs.
func (f *DataFile) ReadValue(pos int64, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	f.mu.Lock()
	if f.buf != nil && f.buf.Buffered() > 0 {
		stat, err := f.file.Stat()
		if err != nil {
			f.mu.Unlock()
			return nil, bcerrors.IO("stat", f.path, err)
		}
		if pos >= stat.Size() {
			if err := f.flushAndSyncLocked(); err != nil {
				f.mu.Unlock()
				return nil, err
			}
		}
	}
	f.mu.Unlock()

	buf := make([]byte, size)
	if _, err := f.file.ReadAt(buf, pos); err != nil {
		return nil, bcerrors.IO("read", f.path, err).WithOffset(pos)
	}
	return buf, nil
}

// Reopen closes the write handle and reopens the file read-only. Called
// once a file is rotated out of the active slot so no further appends
// can land on it, matching datafile::reopen(O_RDONLY) in the original.
func (f *DataFile) Reopen() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readOnly {
		return nil
	}
	if err := f.flushAndSyncLocked(); err != nil {
		return err
	}
	if err := f.file.Close(); err != nil {
		return bcerrors.IO("close", f.path, err)
	}

	rf, err := os.OpenFile(f.path, os.O_RDONLY, 0644)
	if err != nil {
		return bcerrors.IO("open", f.path, err)
	}
	f.file = rf
	f.buf = nil
	f.readOnly = true
	return nil
}

// Close flushes any buffered writes and closes the underlying file.
func (f *DataFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.buf != nil {
		if err := f.flushAndSyncLocked(); err != nil {
			f.log.Warnw("logfile: flush on close failed", "path", f.path, "error", err)
		}
	}
	if err := f.file.Close(); err != nil {
		return bcerrors.IO("close", f.path, err)
	}
	return nil
}

// ScanRecord is one decoded data record yielded by Scan.
type ScanRecord struct {
	Key       []byte
	Value     []byte
	Version   uint64
	ValuePos  int64
	Tombstone bool
}

// Scan reads every record in the file from the beginning, calling cb for
// each one in order. It stops at the first clean end-of-file (no bytes of
// a further record observed) and returns nil. A torn trailing record (a
// header was read in full but the key/value bytes that must follow it
// could not be) is reported as bcerrors.UnexpectedEOF, and a CRC mismatch
// is reported as bcerrors.CorruptRecord; both terminate the scan, per the
// terminate-on-corruption policy resolved from the original's traversal
// (datafile.cpp, impl::traverse).
func (f *DataFile) Scan(cb func(ScanRecord) error) error {
	f.mu.Lock()
	if f.buf != nil {
		if err := f.flushAndSyncLocked(); err != nil {
			f.mu.Unlock()
			return err
		}
	}
	f.mu.Unlock()

	r := io.NewSectionReader(f.file, 0, 1<<62)
	var offset int64

	hdrBuf := make([]byte, format.DataHeaderSize)
	for {
		n, err := io.ReadFull(r, hdrBuf)
		if err == io.EOF && n == 0 {
			return nil
		}
		if err != nil {
			return bcerrors.UnexpectedEOF(f.path, offset)
		}

		hdr := format.DecodeDataHeader(hdrBuf)
		bodyLen := int64(hdr.Ksz)
		if !hdr.IsTombstone() {
			bodyLen += int64(hdr.Vsz)
		}

		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return bcerrors.UnexpectedEOF(f.path, offset)
		}

		key := body[:hdr.Ksz]
		var value []byte
		if !hdr.IsTombstone() {
			value = body[hdr.Ksz:]
		}

		if got := format.DataCRC(hdr, key, value); got != hdr.CRC {
			return bcerrors.CorruptRecord(f.path, offset)
		}

		rec := ScanRecord{
			Key:       key,
			Version:   hdr.Version,
			Tombstone: hdr.IsTombstone(),
		}
		if !rec.Tombstone {
			rec.Value = value
			rec.ValuePos = offset + int64(format.DataHeaderSize) + int64(hdr.Ksz)
		}

		if err := cb(rec); err != nil {
			return err
		}

		offset += int64(format.DataHeaderSize) + bodyLen
	}
}
