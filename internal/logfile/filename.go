package logfile

import (
	"fmt"
	"path/filepath"

	"github.com/jassi-singh/aether-kv/pkg/bcerrors"
)

// DataFilenamePrefix and DataFilenameSuffix bracket the 16 lowercase hex
// digits of a file id in a data filename: "bc0000000000000000.d".
const (
	DataFilenamePrefix = "bc"
	DataFilenameSuffix = ".d"
	HintFilenameSuffix = ".h"

	fileIDNibbles = 16 // hex digits needed to print a uint64 file id
)

// IsDataFilename reports whether name (a bare filename, no directory
// component) matches the data file naming convention. Deliberately a
// manual prefix/suffix/hex check rather than a compiled regexp — the
// format is fixed-width and simple enough that a regexp buys nothing.
func IsDataFilename(name string) bool {
	if len(name) != len(DataFilenamePrefix)+fileIDNibbles+len(DataFilenameSuffix) {
		return false
	}
	if name[:len(DataFilenamePrefix)] != DataFilenamePrefix {
		return false
	}
	if name[len(name)-len(DataFilenameSuffix):] != DataFilenameSuffix {
		return false
	}
	hex := name[len(DataFilenamePrefix) : len(name)-len(DataFilenameSuffix)]
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// ParseFileID extracts the file id encoded in a data filename. name must
// have already passed IsDataFilename.
func ParseFileID(name string) (uint64, error) {
	if !IsDataFilename(name) {
		return 0, bcerrors.BadFilename(name)
	}
	hex := name[len(DataFilenamePrefix) : len(name)-len(DataFilenameSuffix)]
	var id uint64
	for i := 0; i < len(hex); i++ {
		c := hex[i]
		var v uint64
		switch {
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		default:
			v = uint64(c-'a') + 10
		}
		id = id<<4 | v
	}
	return id, nil
}

// MakeFilename formats id as a data filename: "bc" + 16 lowercase hex
// digits + ".d".
func MakeFilename(id uint64) string {
	return fmt.Sprintf("%s%0*x%s", DataFilenamePrefix, fileIDNibbles, id, DataFilenameSuffix)
}

// HintFilename returns the hint file path that accompanies a data file.
func HintFilename(dataPath string) string {
	return dataPath + HintFilenameSuffix
}

// JoinData returns the full path of the data file with the given id
// inside dir.
func JoinData(dir string, id uint64) string {
	return filepath.Join(dir, MakeFilename(id))
}
