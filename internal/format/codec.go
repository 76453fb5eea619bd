// Package format encodes and decodes the two on-disk record layouts used
// by the store: data records (key + optional value, or a tombstone) and
// hint records (a data record's location without its value bytes). Both
// layouts are big-endian and CRC32-protected, per spec.md §4.1.
package format

import (
	"encoding/binary"
	"hash/crc32"
)

// Tombstone is the sentinel value-size that marks a data record as a
// delete marker: the sentinel 2^32-1 can never be a real value length,
// since MaxValueSize is one less than it.
const Tombstone uint32 = 0xFFFFFFFF

// MaxKeySize and MaxValueSize bound what the 32-bit size fields can frame.
const (
	MaxKeySize   = uint64(0xFFFFFFFF)
	MaxValueSize = uint64(Tombstone - 1)
)

// DataHeaderSize is the fixed byte length of a data record's header,
// preceding the key and value bytes: crc, version, ksz, vsz.
const DataHeaderSize = 4 + 8 + 4 + 4

// HintHeaderSize is the fixed byte length of a hint record's header,
// preceding the key bytes: crc, version, ksz, vsz, value_pos.
const HintHeaderSize = 4 + 8 + 4 + 4 + 8

// DataHeader is the decoded fixed-size prefix of a data record.
type DataHeader struct {
	CRC     uint32
	Version uint64
	Ksz     uint32
	Vsz     uint32
}

// IsTombstone reports whether the header frames a delete marker.
func (h DataHeader) IsTombstone() bool { return h.Vsz == Tombstone }

// EncodePut serializes a live data record for key/value at the given
// version. The CRC covers the header (version..vsz), then key, then value.
func EncodePut(key, value []byte, version uint64) []byte {
	buf := make([]byte, DataHeaderSize+len(key)+len(value))
	writeDataHeaderBody(buf, version, uint32(len(key)), uint32(len(value)))
	copy(buf[DataHeaderSize:], key)
	copy(buf[DataHeaderSize+len(key):], value)
	binary.BigEndian.PutUint32(buf[0:4], dataCRCOf(buf))
	return buf
}

// EncodeDelete serializes a tombstone record for key at the given version.
// A tombstone carries no value bytes; vsz is the Tombstone sentinel.
func EncodeDelete(key []byte, version uint64) []byte {
	buf := make([]byte, DataHeaderSize+len(key))
	writeDataHeaderBody(buf, version, uint32(len(key)), Tombstone)
	copy(buf[DataHeaderSize:], key)
	binary.BigEndian.PutUint32(buf[0:4], dataCRCOf(buf))
	return buf
}

func writeDataHeaderBody(buf []byte, version uint64, ksz, vsz uint32) {
	binary.BigEndian.PutUint64(buf[4:12], version)
	binary.BigEndian.PutUint32(buf[12:16], ksz)
	binary.BigEndian.PutUint32(buf[16:20], vsz)
}

// dataCRCOf computes the CRC32 of an encoded buffer's header (from byte 4
// onward) plus key and value, i.e. everything except the CRC field itself.
func dataCRCOf(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf[4:])
}

// DecodeDataHeader parses the fixed-size header of a data record. buf must
// be exactly DataHeaderSize bytes.
func DecodeDataHeader(buf []byte) DataHeader {
	return DataHeader{
		CRC:     binary.BigEndian.Uint32(buf[0:4]),
		Version: binary.BigEndian.Uint64(buf[4:12]),
		Ksz:     binary.BigEndian.Uint32(buf[12:16]),
		Vsz:     binary.BigEndian.Uint32(buf[16:20]),
	}
}

// DataCRC recomputes the CRC32 of a data record from its header fields
// (re-encoded in header order), key and value, for comparison against
// DataHeader.CRC after an independent read of key/value off disk.
func DataCRC(h DataHeader, key, value []byte) uint32 {
	var hdr [DataHeaderSize - 4]byte
	binary.BigEndian.PutUint64(hdr[0:8], h.Version)
	binary.BigEndian.PutUint32(hdr[8:12], h.Ksz)
	binary.BigEndian.PutUint32(hdr[12:16], h.Vsz)
	crc := crc32.ChecksumIEEE(hdr[:])
	crc = crc32.Update(crc, crc32.IEEETable, key)
	crc = crc32.Update(crc, crc32.IEEETable, value)
	return crc
}

// HintHeader is the decoded fixed-size prefix of a hint record.
type HintHeader struct {
	CRC      uint32
	Version  uint64
	Ksz      uint32
	Vsz      uint32
	ValuePos int64
}

// EncodeHint serializes a hint record pointing at an already-written data
// record's value. Hint files record only live keys; tombstones are never
// hinted (spec.md §4.1).
func EncodeHint(key []byte, version uint64, vsz uint32, valuePos int64) []byte {
	buf := make([]byte, HintHeaderSize+len(key))
	binary.BigEndian.PutUint64(buf[4:12], version)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(key)))
	binary.BigEndian.PutUint32(buf[16:20], vsz)
	binary.BigEndian.PutUint64(buf[20:28], uint64(valuePos))
	copy(buf[HintHeaderSize:], key)
	binary.BigEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

// DecodeHintHeader parses the fixed-size header of a hint record. buf must
// be exactly HintHeaderSize bytes.
func DecodeHintHeader(buf []byte) HintHeader {
	return HintHeader{
		CRC:      binary.BigEndian.Uint32(buf[0:4]),
		Version:  binary.BigEndian.Uint64(buf[4:12]),
		Ksz:      binary.BigEndian.Uint32(buf[12:16]),
		Vsz:      binary.BigEndian.Uint32(buf[16:20]),
		ValuePos: int64(binary.BigEndian.Uint64(buf[20:28])),
	}
}

// HintCRC recomputes the CRC32 of a hint record from its header fields and
// key, for comparison against HintHeader.CRC.
func HintCRC(h HintHeader, key []byte) uint32 {
	var hdr [HintHeaderSize - 4]byte
	binary.BigEndian.PutUint64(hdr[0:8], h.Version)
	binary.BigEndian.PutUint32(hdr[8:12], h.Ksz)
	binary.BigEndian.PutUint32(hdr[12:16], h.Vsz)
	binary.BigEndian.PutUint64(hdr[16:24], uint64(h.ValuePos))
	crc := crc32.ChecksumIEEE(hdr[:])
	crc = crc32.Update(crc, crc32.IEEETable, key)
	return crc
}
