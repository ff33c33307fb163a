package block

import "github.com/AmrMurad1/plfsio/internal/varint"

// Handle locates a byte range within one of the on-disk logs
// (spec.md §3, §6): varint(offset) || varint(size). Size never
// includes the 5-byte trailer appended by Finalize.
type Handle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the varint encoding of h to dst.
func (h Handle) EncodeTo(dst []byte) []byte {
	dst = varint.Put(dst, h.Offset)
	dst = varint.Put(dst, h.Size)
	return dst
}

// DecodeHandle decodes a Handle from the front of src.
func DecodeHandle(src []byte) (Handle, []byte, bool) {
	off, rest, ok := varint.Get(src)
	if !ok {
		return Handle{}, src, false
	}
	sz, rest2, ok := varint.Get(rest)
	if !ok {
		return Handle{}, src, false
	}
	return Handle{Offset: off, Size: sz}, rest2, true
}
