package bitcask

import (
	"fmt"
	"testing"
)

// TestDB_EndToEnd exercises spec.md §8 scenario S1 at the public-API
// level: put, get, overwrite, delete, traverse, close, reopen.
func TestDB_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := db.Put([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := db.Get([]byte("a"))
	if err != nil || !ok || string(got) != "1" {
		t.Fatalf("Get(a) = %q, %v, %v, want \"1\", true, nil", got, ok, err)
	}

	if _, err := db.Put([]byte("a"), []byte("3")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	got, ok, err = db.Get([]byte("a"))
	if err != nil || !ok || string(got) != "3" {
		t.Fatalf("Get(a) after overwrite = %q, %v, %v, want \"3\", true, nil", got, ok, err)
	}

	deleted, err := db.Delete([]byte("b"))
	if err != nil || !deleted {
		t.Fatalf("Delete(b) = %v, %v, want true, nil", deleted, err)
	}

	seen := map[string]string{}
	if _, err := db.Traverse(func(key, value []byte) bool {
		seen[string(key)] = string(value)
		return true
	}); err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if len(seen) != 1 || seen["a"] != "3" {
		t.Fatalf("Traverse() = %+v, want only a=3", seen)
	}

	if db.Empty() {
		t.Error("Empty() = true, want false")
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() (reopen) error = %v", err)
	}
	defer reopened.Close()

	got, ok, err = reopened.Get([]byte("a"))
	if err != nil || !ok || string(got) != "3" {
		t.Fatalf("Get(a) after reopen = %q, %v, %v, want \"3\", true, nil", got, ok, err)
	}
	if _, ok, _ := reopened.Get([]byte("b")); ok {
		t.Error("Get(b) after reopen found a deleted key")
	}
}

// TestDB_MergeAndClear exercises spec.md §8 scenario S4 at the
// public-API level: rotation via a tiny max file size, merge, clear.
func TestDB_MergeAndClear(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, WithMaxFileSize(256))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for round := 0; round < 3; round++ {
		for i := 0; i < 20; i++ {
			key := fmt.Sprintf("key_%d", i)
			value := fmt.Sprintf("value_round%d_%d_padded", round, i)
			if _, err := db.Put([]byte(key), []byte(value)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
		}
	}

	if db.MaxFileSize() != 256 {
		t.Errorf("MaxFileSize() = %d, want 256", db.MaxFileSize())
	}
	db.SetMaxFileSize(512)
	if db.MaxFileSize() != 512 {
		t.Errorf("MaxFileSize() = %d, want 512 after SetMaxFileSize", db.MaxFileSize())
	}

	if err := db.Merge(); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key_%d", i)
		want := fmt.Sprintf("value_round2_%d_padded", i)
		got, ok, err := db.Get([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Get(%q) after merge error = %v, ok = %v", key, err, ok)
		}
		if string(got) != want {
			t.Errorf("Get(%q) after merge = %q, want %q", key, got, want)
		}
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := Clear(dir); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after Clear() error = %v", err)
	}
	defer reopened.Close()
	if !reopened.Empty() {
		t.Error("Empty() = false after Clear(), want true")
	}
}
