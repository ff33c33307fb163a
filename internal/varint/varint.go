// Package varint implements the length-prefixed varint codec the rest
// of plfsio treats as a fixed-contract primitive (spec.md §1).
package varint

import "encoding/binary"

// MaxLen64 is the largest number of bytes a uvarint-encoded uint64 can occupy.
const MaxLen64 = binary.MaxVarintLen64

// Put appends the varint encoding of v to dst and returns the result.
func Put(dst []byte, v uint64) []byte {
	var tmp [MaxLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}

// Get decodes a uvarint from the front of src, returning the value and
// the remaining bytes. ok is false if src does not contain a complete
// varint.
func Get(src []byte) (v uint64, rest []byte, ok bool) {
	v, n := binary.Uvarint(src)
	if n <= 0 {
		return 0, src, false
	}
	return v, src[n:], true
}

// Len returns the number of bytes the uvarint encoding of v occupies.
func Len(v uint64) int {
	var tmp [MaxLen64]byte
	return binary.PutUvarint(tmp[:], v)
}

// PutLengthPrefixed appends a varint length followed by b to dst.
func PutLengthPrefixed(dst []byte, b []byte) []byte {
	dst = Put(dst, uint64(len(b)))
	return append(dst, b...)
}

// GetLengthPrefixed decodes a varint length followed by that many bytes
// from the front of src.
func GetLengthPrefixed(src []byte) (b []byte, rest []byte, ok bool) {
	n, rest, ok := Get(src)
	if !ok || uint64(len(rest)) < n {
		return nil, src, false
	}
	return rest[:n], rest[n:], true
}
