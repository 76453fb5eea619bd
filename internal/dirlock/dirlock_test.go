package dirlock

import (
	"testing"

	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

func TestAcquire_Release(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}

func TestAcquire_SecondHolderFails(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	_, err = Acquire(dir)
	if err == nil {
		t.Fatal("Acquire() error = nil on second holder, want AlreadyOpen")
	}
	if !bcerrors.Is(err, bcerrors.CodeAlreadyOpen) {
		t.Errorf("Acquire() error code = %v, want %v", err, bcerrors.CodeAlreadyOpen)
	}
}

func TestAcquire_ReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	defer second.Release()
}
