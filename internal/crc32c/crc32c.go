// Package crc32c computes the masked CRC32C checksums used to guard
// every on-disk block (spec.md §3, §4.3). CRC32C is treated as a
// fixed-contract primitive: the standard library's Castagnoli table
// is the idiomatic implementation and no example repo in the source
// pack ships a third-party alternative (see DESIGN.md).
package crc32c

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is the LevelDB masking constant: it rotates the raw CRC by
// 15 bits and adds a constant, which keeps CRCs of CRC-containing data
// from looking like the data they protect.
const maskDelta = 0xa282ead8

// Value returns the unmasked CRC32C of b.
func Value(b []byte) uint32 {
	return crc32.Checksum(b, table)
}

// Extend returns the unmasked CRC32C of base extended with b.
func Extend(base uint32, b []byte) uint32 {
	return crc32.Update(base, table, b)
}

// Mask transforms a raw CRC so it can be stored next to data it covers.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask reverses Mask.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot >> 17) | (rot << 15)
}
