package cli

import (
	"strings"
	"testing"
)

// fakeDB is a minimal in-memory stand-in for bitcask.DB, just enough to
// drive the command loop's parsing and output formatting.
type fakeDB struct {
	data       map[string]string
	mergeCalls int
	mergeErr   error
}

func newFakeDB() *fakeDB { return &fakeDB{data: map[string]string{}} }

func (f *fakeDB) Put(key, value []byte) (bool, error) {
	_, existed := f.data[string(key)]
	f.data[string(key)] = string(value)
	return !existed, nil
}

func (f *fakeDB) Get(key []byte) ([]byte, bool, error) {
	v, ok := f.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *fakeDB) Delete(key []byte) (bool, error) {
	_, ok := f.data[string(key)]
	delete(f.data, string(key))
	return ok, nil
}

func (f *fakeDB) Merge() error {
	f.mergeCalls++
	return f.mergeErr
}

func (f *fakeDB) Traverse(cb func(key, value []byte) bool) (bool, error) {
	for k, v := range f.data {
		if !cb([]byte(k), []byte(v)) {
			return false, nil
		}
	}
	return true, nil
}

func runCommands(t *testing.T, db DB, commands string) string {
	t.Helper()
	var out strings.Builder
	h := NewHandler(db, strings.NewReader(commands), &out, nil)
	if err := h.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestHandler_PutGet(t *testing.T) {
	db := newFakeDB()
	out := runCommands(t, db, "PUT foo bar\nGET foo\nEXIT\n")

	if !strings.Contains(out, "OK") {
		t.Errorf("output missing OK for PUT: %q", out)
	}
	if !strings.Contains(out, "bar") {
		t.Errorf("output missing value for GET: %q", out)
	}
}

func TestHandler_GetMissingKey(t *testing.T) {
	db := newFakeDB()
	out := runCommands(t, db, "GET missing\nEXIT\n")

	if !strings.Contains(out, "(not found)") {
		t.Errorf("output = %q, want \"(not found)\" for missing key", out)
	}
}

func TestHandler_Delete(t *testing.T) {
	db := newFakeDB()
	out := runCommands(t, db, "PUT k v\nDELETE k\nGET k\nEXIT\n")

	if !strings.Contains(out, "(not found)") {
		t.Errorf("output = %q, want key absent after DELETE", out)
	}
}

func TestHandler_Merge(t *testing.T) {
	db := newFakeDB()
	runCommands(t, db, "MERGE\nEXIT\n")

	if db.mergeCalls != 1 {
		t.Errorf("mergeCalls = %d, want 1", db.mergeCalls)
	}
}

func TestHandler_UnknownCommand(t *testing.T) {
	db := newFakeDB()
	out := runCommands(t, db, "FROBNICATE\nEXIT\n")

	if !strings.Contains(out, "Unknown command") {
		t.Errorf("output = %q, want unknown-command message", out)
	}
}

func TestHandler_PutMissingArgs(t *testing.T) {
	db := newFakeDB()
	out := runCommands(t, db, "PUT onlykey\nEXIT\n")

	if !strings.Contains(out, "Usage: PUT") {
		t.Errorf("output = %q, want usage message", out)
	}
}
