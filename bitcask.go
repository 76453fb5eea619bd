// Package bitcask is the public facade over the aether-kv storage engine:
// a single-node, embedded, log-structured key-value store. DB wraps
// internal/store.Store the way zoo::bitcask::bitcask wraps datadir+keydir
// in the original implementation this package is modeled on — a thin
// pimpl-style boundary so internal/* stays free to change shape.
package bitcask

import (
	"time"

	"go.uber.org/zap"

	"github.com/jassi-singh/aether-kv/internal/logfile"
	"github.com/jassi-singh/aether-kv/internal/store"
)

// DB is a single open handle on a store directory. A DB must not be
// shared across processes (Open takes an exclusive directory lock) but
// is safe for concurrent use by multiple goroutines within one process.
type DB struct {
	s *store.Store
}

// Option configures a DB at Open time.
type Option func(*store.Store)

// WithMaxFileSize overrides the default active-file rotation threshold.
func WithMaxFileSize(n int64) Option {
	return func(s *store.Store) { store.WithMaxFileSize(n)(s) }
}

// WithFlushPolicy overrides how aggressively data files buffer writes
// before syncing to disk: batchSize bytes, or syncInterval elapsed,
// whichever comes first. The zero value syncs on every write.
func WithFlushPolicy(batchSize int, syncInterval time.Duration) Option {
	return func(s *store.Store) {
		store.WithFlushPolicy(logfile.FlushPolicy{
			BatchSize:    batchSize,
			SyncInterval: syncInterval,
		})(s)
	}
}

// WithLogger injects a structured logger used for every lifecycle and
// error event the DB and its internals emit. A nil logger is replaced
// with a no-op one.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *store.Store) { store.WithLogger(log)(s) }
}

// Open opens (creating if necessary) the store directory at directory,
// acquiring an exclusive cross-process lock and rebuilding the key index
// from whatever data and hint files are present.
func Open(directory string, opts ...Option) (*DB, error) {
	storeOpts := make([]store.Option, len(opts))
	for i, opt := range opts {
		storeOpts[i] = store.Option(opt)
	}
	s, err := store.Open(directory, storeOpts...)
	if err != nil {
		return nil, err
	}
	return &DB{s: s}, nil
}

// Get returns the current value for key, if any.
func (db *DB) Get(key []byte) ([]byte, bool, error) { return db.s.Get(key) }

// Put writes key/value, reporting whether key was previously absent.
func (db *DB) Put(key, value []byte) (bool, error) { return db.s.Put(key, value) }

// Delete removes key, reporting whether it was previously present.
func (db *DB) Delete(key []byte) (bool, error) { return db.s.Delete(key) }

// Traverse calls cb with every live key and its current value, stopping
// early if cb returns false, and reports whether it ran to completion.
func (db *DB) Traverse(cb func(key, value []byte) bool) (bool, error) {
	return db.s.Traverse(cb)
}

// Merge compacts immutable data files down to only-current-version
// records, reclaiming the space held by overwritten and deleted keys.
func (db *DB) Merge() error { return db.s.Merge() }

// Empty reports whether the store holds no live keys.
func (db *DB) Empty() bool { return db.s.Empty() }

// MaxFileSize returns the current active-file rotation threshold.
func (db *DB) MaxFileSize() int64 { return db.s.MaxFileSize() }

// SetMaxFileSize changes the active-file rotation threshold.
func (db *DB) SetMaxFileSize(n int64) { db.s.SetMaxFileSize(n) }

// Close flushes and closes every open data file and releases the
// directory lock. db must not be used afterward.
func (db *DB) Close() error { return db.s.Close() }

// Clear deletes every data and hint file in directory. The caller must
// ensure no DB has directory open.
func Clear(directory string) error { return store.Clear(directory) }
