// Package store implements the storage engine: a directory of append-only
// data files plus an in-memory key index, giving Put/Get/Delete/Traverse/
// Merge over a single on-disk Bitcask-style store. It is the component
// spec.md calls "Store"; the root bitcask package is a thin public facade
// over it.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jassi-singh/aether-kv/internal/dirlock"
	"github.com/jassi-singh/aether-kv/internal/keydir"
	"github.com/jassi-singh/aether-kv/internal/logfile"
	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

// defaultMaxFileSize matches the original's 1 GiB default active-file
// rotation threshold (datadir.cpp, impl::max_file_size_ initializer).
const defaultMaxFileSize int64 = 1024 * 1024 * 1024

// fileIDIncrement and fileIDMask implement the original's rotation
// arithmetic exactly: a new file id is the current id plus one in the
// upper half of the 64-bit id space, masked back down to that half. This
// keeps rotation-generated ids and merge-generated ids (which increment
// by 1 in the full id space) from ever colliding, since merge always
// allocates ids strictly between the mask boundaries the prior rotation
// established. See datadir.cpp, file_id_increment/file_id_mask.
const (
	fileIDIncrement uint64 = 1 << 32
	fileIDMask      uint64 = 0xFFFFFFFF00000000
)

// Store is the concurrency-safe engine over one store directory. The
// cross-process directory lock is held for the Store's lifetime. Merge
// snapshots the file map under mu before taking mergeMu (which serializes
// Merge calls); while holding mergeMu it takes mu again only briefly, to
// register new files, read the max file size and remove merged files.
// Traverse takes mu for reading from inside the key index's read lock.
// No method takes the key index's lock or mergeMu while holding mu, and a
// DataFile's own mutex is always the innermost lock.
type Store struct {
	dir  string
	lock *dirlock.Lock

	mu       sync.RWMutex
	files    map[uint64]*logfile.DataFile
	activeID uint64

	maxFileSize int64
	mergeMu     sync.Mutex

	kd     *keydir.KeyDir
	policy logfile.FlushPolicy
	log    *zap.SugaredLogger
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithMaxFileSize overrides the active-file rotation threshold.
func WithMaxFileSize(n int64) Option {
	return func(s *Store) { s.maxFileSize = n }
}

// WithFlushPolicy overrides how aggressively data files sync to disk.
func WithFlushPolicy(p logfile.FlushPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger injects a structured logger; a nil logger is replaced with
// a no-op one so the store is usable without logging configured.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		if log == nil {
			log = zap.NewNop().Sugar()
		}
		s.log = log
	}
}

// Open opens (creating if necessary) the store directory at dir,
// acquires the cross-process directory lock, and rebuilds the key index
// from whatever data and hint files are present, per spec.md §4.4.1.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := ensureDirectory(dir); err != nil {
		return nil, err
	}

	lock, err := dirlock.Acquire(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:         dir,
		lock:        lock,
		files:       make(map[uint64]*logfile.DataFile),
		maxFileSize: defaultMaxFileSize,
		kd:          keydir.New(),
		policy:      logfile.DefaultFlushPolicy,
		log:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.openDataFiles(); err != nil {
		lock.Release()
		return nil, err
	}

	if err := s.recover(); err != nil {
		s.closeFilesLocked()
		lock.Release()
		return nil, err
	}

	s.log.Infow("store: opened", "dir", dir, "files", len(s.files), "keys", s.kd.Len())
	return s, nil
}

func ensureDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return bcerrors.NotADirectory(dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return bcerrors.IO("stat", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return bcerrors.IO("mkdir", dir, err)
	}
	return nil
}

// openDataFiles scans dir for data files, opening every file but the
// highest-numbered one read-only; the highest becomes the active file
// (matching datadir::impl's constructor: the ordered set's last member
// is the active file). If no data files exist, file id 0 is created.
func (s *Store) openDataFiles() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return bcerrors.IO("readdir", s.dir, err)
	}

	var ids []uint64
	for _, e := range entries {
		if e.IsDir() || !logfile.IsDataFilename(e.Name()) {
			continue
		}
		id, err := logfile.ParseFileID(e.Name())
		if err != nil {
			return bcerrors.BadFilename(e.Name())
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		readOnly := i != len(ids)-1
		df, err := logfile.Open(logfile.JoinData(s.dir, id), id, readOnly, s.policy, s.log)
		if err != nil {
			return err
		}
		s.files[id] = df
	}

	if len(ids) == 0 {
		df, err := logfile.Open(logfile.JoinData(s.dir, 0), 0, false, s.policy, s.log)
		if err != nil {
			return err
		}
		s.files[0] = df
		s.activeID = 0
		return nil
	}

	s.activeID = ids[len(ids)-1]
	return nil
}

// activeFile returns the current active file, rotating to a new one
// first if the active file has grown past maxFileSize. Callers must hold
// mu for writing.
func (s *Store) activeFile() (*logfile.DataFile, error) {
	active := s.files[s.activeID]
	size, err := active.Size()
	if err != nil {
		return nil, err
	}
	if size <= s.maxFileSize {
		return active, nil
	}

	if err := active.Reopen(); err != nil {
		return nil, err
	}

	newID := (s.activeID + fileIDIncrement) & fileIDMask
	df, err := logfile.Open(logfile.JoinData(s.dir, newID), newID, false, s.policy, s.log)
	if err != nil {
		return nil, err
	}
	s.files[newID] = df
	s.activeID = newID
	s.log.Infow("store: rotated active file", "new_id", newID)
	return df, nil
}

// Put writes key/value as a new record in the active file and updates
// the key index, reporting whether key was previously absent.
func (s *Store) Put(key, value []byte) (bool, error) {
	version := s.kd.NextVersion()

	s.mu.Lock()
	active, err := s.activeFile()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	valuePos, err := active.AppendPut(key, value, version)
	fileID := active.ID()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	inserted := s.kd.Put(string(key), keydir.Entry{
		FileID:   fileID,
		ValueSz:  uint32(len(value)),
		ValuePos: valuePos,
		Version:  version,
	})
	return inserted, nil
}

// Get returns the current value for key, if any.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	entry, ok := s.kd.Get(string(key))
	if !ok {
		return nil, false, nil
	}

	s.mu.RLock()
	df, ok := s.files[entry.FileID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, bcerrors.DanglingReference(entry.FileID)
	}

	value, err := df.ReadValue(entry.ValuePos, entry.ValueSz)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete appends a tombstone for key and removes it from the key index,
// reporting whether key was previously present.
func (s *Store) Delete(key []byte) (bool, error) {
	version := s.kd.NextVersion()

	s.mu.Lock()
	active, err := s.activeFile()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	err = active.AppendDelete(key, version)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	return s.kd.Del(string(key)), nil
}

// Traverse calls cb with every live key and its current value, stopping
// early if cb returns false, and reports whether it ran to completion.
func (s *Store) Traverse(cb func(key, value []byte) bool) (bool, error) {
	var getErr error
	complete := s.kd.Traverse(func(key string, e keydir.Entry) bool {
		s.mu.RLock()
		df, ok := s.files[e.FileID]
		s.mu.RUnlock()
		if !ok {
			getErr = bcerrors.DanglingReference(e.FileID)
			return false
		}

		value, err := df.ReadValue(e.ValuePos, e.ValueSz)
		if err != nil {
			getErr = err
			return false
		}
		return cb([]byte(key), value)
	})
	if getErr != nil {
		return false, getErr
	}
	return complete, nil
}

// Empty reports whether the store holds no live keys.
func (s *Store) Empty() bool { return s.kd.Empty() }

// MaxFileSize returns the current active-file rotation threshold.
func (s *Store) MaxFileSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxFileSize
}

// SetMaxFileSize changes the active-file rotation threshold.
func (s *Store) SetMaxFileSize(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxFileSize = n
}

// Close flushes and closes every open data file and releases the
// directory lock. The Store must not be used afterward.
func (s *Store) Close() error {
	s.mu.Lock()
	err := s.closeFilesLocked()
	s.mu.Unlock()

	if lerr := s.lock.Release(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func (s *Store) closeFilesLocked() error {
	var first error
	for _, df := range s.files {
		if err := df.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Clear deletes every data and hint file in dir. The caller must ensure
// no Store instance has dir open; Clear itself takes and releases the
// directory lock only to detect a live instance, matching
// datadir::impl::clear's "make sure no datadir instance exists" contract.
func Clear(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return bcerrors.IO("stat", dir, err)
	}
	if !info.IsDir() {
		return bcerrors.NotADirectory(dir)
	}

	lock, err := dirlock.Acquire(dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return bcerrors.IO("readdir", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !logfile.IsDataFilename(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return bcerrors.IO("remove", path, err)
		}
		hintPath := logfile.HintFilename(path)
		if _, err := os.Stat(hintPath); err == nil {
			if err := os.Remove(hintPath); err != nil {
				return bcerrors.IO("remove", hintPath, err)
			}
		}
	}
	return nil
}
