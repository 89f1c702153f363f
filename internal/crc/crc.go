// Package crc computes the CRC-32C (Castagnoli) checksum used to frame
// chunk headers, following the same crc.New(data).Value() idiom pebble uses
// in record/record.go (there backed by pebble's own internal/crc package,
// not included in this retrieval pack; hash/crc32's Castagnoli table is the
// same algorithm and is what the standard library provides for it, so no
// third-party checksum dependency is introduced for this piece).
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// CRC is an accumulated CRC-32C checksum.
type CRC uint32

// New returns the CRC-32C checksum of b.
func New(b []byte) CRC {
	return CRC(crc32.Checksum(b, table))
}

// Update extends c with additional bytes.
func (c CRC) Update(b []byte) CRC {
	return CRC(crc32.Update(uint32(c), table, b))
}

// Value returns the checksum as a uint32, ready to be stored little-endian
// in a chunk header.
func (c CRC) Value() uint32 {
	return uint32(c)
}
