package store

import (
	"os"
	"sort"

	"github.com/jassi-singh/aether-kv/internal/keydir"
	"github.com/jassi-singh/aether-kv/internal/logfile"
	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

// Merge compacts every immutable (non-active) data file into a fresh set
// of files holding only each key's current version, writing a hint file
// alongside each so a later open can rebuild the index without
// re-reading values. It is a no-op if the store has fewer than two files
// (nothing to compact), and only one merge runs at a time (mergeMu),
// matching datadir::impl::merge.
func (s *Store) Merge() error {
	s.mu.RLock()
	if len(s.files) < 2 {
		s.mu.RUnlock()
		return nil
	}
	var immutableIDs []uint64
	for id := range s.files {
		if id != s.activeID {
			immutableIDs = append(immutableIDs, id)
		}
	}
	s.mu.RUnlock()

	if len(immutableIDs) == 0 {
		return nil
	}
	sort.Slice(immutableIDs, func(i, j int) bool { return immutableIDs[i] < immutableIDs[j] })

	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	m := &merger{
		s:      s,
		nextID: immutableIDs[len(immutableIDs)-1] + 1,
	}
	defer m.finish()

	for _, srcID := range immutableIDs {
		s.mu.RLock()
		srcFile := s.files[srcID]
		s.mu.RUnlock()

		if err := srcFile.Scan(m.migrateRecord); err != nil {
			return err
		}

		if err := s.removeFile(srcID); err != nil {
			return err
		}
	}
	return nil
}

// merger holds the destination file currently being written to during
// one Merge call. It is created lazily (only once a live record is
// actually found to migrate) and rotated once it passes the store's
// max file size, exactly as datadir::impl::merge does with merged_file.
type merger struct {
	s      *Store
	nextID uint64
	dest   *logfile.DataFile
	hint   *logfile.HintFile
}

func (m *merger) migrateRecord(r logfile.ScanRecord) error {
	if r.Tombstone {
		return nil
	}

	key := string(r.Key)
	entry, ok := m.s.kd.Get(key)
	if !ok || entry.Version != r.Version {
		return nil // superseded by a later write elsewhere
	}

	if m.dest == nil {
		if err := m.open(); err != nil {
			return err
		}
	}

	valuePos, err := m.dest.AppendPut(r.Key, r.Value, r.Version)
	if err != nil {
		return err
	}
	if err := m.hint.Put(r.Key, r.Version, uint32(len(r.Value)), valuePos); err != nil {
		return err
	}

	newEntry := keydir.Entry{
		FileID:   m.dest.ID(),
		ValueSz:  uint32(len(r.Value)),
		ValuePos: valuePos,
		Version:  r.Version,
	}
	m.s.kd.WithMutable(key, func(e keydir.Entry) keydir.Entry {
		if e.Version != r.Version {
			return e // superseded between the check above and this write
		}
		return newEntry
	})

	size, err := m.dest.Size()
	if err != nil {
		return err
	}
	if size > m.s.MaxFileSize() {
		if err := m.rotate(); err != nil {
			return err
		}
	}
	return nil
}

func (m *merger) open() error {
	id := m.nextID
	m.nextID++

	df, err := logfile.Open(logfile.JoinData(m.s.dir, id), id, false, m.s.policy, m.s.log)
	if err != nil {
		return err
	}
	hf, err := logfile.CreateHint(logfile.HintFilename(df.Path()))
	if err != nil {
		return err
	}

	m.s.mu.Lock()
	m.s.files[id] = df
	m.s.mu.Unlock()

	m.dest = df
	m.hint = hf
	return nil
}

func (m *merger) rotate() error {
	if err := m.dest.Reopen(); err != nil {
		return err
	}
	if err := m.hint.Close(); err != nil {
		return err
	}
	m.dest = nil
	m.hint = nil
	return nil
}

// finish closes out the trailing destination file and hint, if one was
// left open because it never hit the rotation threshold.
func (m *merger) finish() {
	if m.dest == nil {
		return
	}
	m.dest.Reopen()
	m.hint.Close()
}

// removeFile closes and deletes data file id and its hint file, if any.
func (s *Store) removeFile(id uint64) error {
	s.mu.Lock()
	df := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()

	path := df.Path()
	hintPath := logfile.HintFilename(path)

	if err := df.Close(); err != nil {
		s.log.Warnw("store: failed to close merged-away file", "path", path, "error", err)
	}
	if err := os.Remove(path); err != nil {
		return bcerrors.IO("remove", path, err)
	}
	if _, err := os.Stat(hintPath); err == nil {
		if err := os.Remove(hintPath); err != nil {
			return bcerrors.IO("remove", hintPath, err)
		}
	}
	return nil
}
