// Package dirlock provides the cross-process advisory lock that keeps two
// store instances from opening the same directory concurrently. It sits
// outermost in the store's lock hierarchy: acquired once on open and held
// until the store is closed, entirely outside the in-process mutexes in
// internal/store, internal/keydir and internal/logfile.
package dirlock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

// Lock wraps an advisory flock on a "LOCK" file inside a store directory.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire tries to take the lock for directory dir, failing immediately
// (non-blocking) if another instance already holds it. This matches the
// original's single-process-per-directory invariant from spec.md §6.
func Acquire(dir string) (*Lock, error) {
	lockPath := filepath.Join(dir, "LOCK")
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, bcerrors.IO("lock", lockPath, err)
	}
	if !locked {
		return nil, bcerrors.AlreadyOpen(dir, nil)
	}

	return &Lock{fl: fl, path: lockPath}, nil
}

// Release drops the lock and removes the lock file, per spec.md §6
// ("destroyed on graceful close").
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return bcerrors.IO("unlock", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return bcerrors.IO("remove", l.path, err)
	}
	return nil
}
