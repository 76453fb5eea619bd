package logfile

import "testing"

func TestIsDataFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "bc0000000000000000.d", want: true},
		{name: "bc00000001fffffffe.d", want: true},
		{name: "bcFFFFFFFFFFFFFFFF.d", want: false}, // uppercase not allowed
		{name: "bc0000000000000000.h", want: false}, // wrong suffix
		{name: "aa0000000000000000.d", want: false}, // wrong prefix
		{name: "bc000000000000000.d", want: false},  // too short
		{name: "bc00000000000000000.d", want: false}, // too long
		{name: "bc000000000000000g.d", want: false},  // non-hex digit
		{name: "lock", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDataFilename(tt.name); got != tt.want {
				t.Errorf("IsDataFilename(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseFileID_MakeFilename_RoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0xFFFFFFFF, 0x100000000, 0xFFFFFFFFFFFFFFFF}

	for _, id := range tests {
		name := MakeFilename(id)
		if !IsDataFilename(name) {
			t.Fatalf("MakeFilename(%d) = %q, not recognized by IsDataFilename", id, name)
		}
		got, err := ParseFileID(name)
		if err != nil {
			t.Fatalf("ParseFileID(%q) error = %v", name, err)
		}
		if got != id {
			t.Errorf("ParseFileID(%q) = %d, want %d", name, got, id)
		}
	}
}

func TestParseFileID_Invalid(t *testing.T) {
	if _, err := ParseFileID("not-a-data-file"); err == nil {
		t.Error("ParseFileID() error = nil, want error for invalid name")
	}
}

func TestHintFilename(t *testing.T) {
	got := HintFilename("/data/bc0000000000000000.d")
	want := "/data/bc0000000000000000.d.h"
	if got != want {
		t.Errorf("HintFilename() = %q, want %q", got, want)
	}
}
