// Package table implements the TableEncoder (spec.md §4.4): the
// epoch/table-aware state machine that turns sorted key/value streams
// into on-disk data blocks, per-table index and filter blocks, a
// single cross-epoch meta block, and a tail footer. It generalizes
// sstable/writer.go's single-table BlockWriter into that hierarchy
// (see DESIGN.md).
package table

import (
	"github.com/AmrMurad1/plfsio/internal/block"
	"github.com/AmrMurad1/plfsio/internal/varint"
)

// Handle locates a byte range in one of the on-disk logs.
type Handle = block.Handle

// Handle re-encodes/decodes via internal/block; TableHandle adds the
// filter location and key range spec.md §3 specifies.
type TableHandle struct {
	Index        Handle
	FilterOffset uint64
	FilterSize   uint64
	SmallestKey  []byte
	LargestKey   []byte
}

// HasFilter reports whether this table has an associated filter block.
func (h TableHandle) HasFilter() bool {
	return h.FilterSize > 0
}

// EncodeTo appends the encoding of h to dst: BlockHandle for index ||
// varint(filter_offset) || varint(filter_size) ||
// length-prefixed(smallest_key) || length-prefixed(largest_key),
// per spec.md §6.
func (h TableHandle) EncodeTo(dst []byte) []byte {
	dst = h.Index.EncodeTo(dst)
	dst = varint.Put(dst, h.FilterOffset)
	dst = varint.Put(dst, h.FilterSize)
	dst = varint.PutLengthPrefixed(dst, h.SmallestKey)
	dst = varint.PutLengthPrefixed(dst, h.LargestKey)
	return dst
}

// DecodeTableHandle decodes a TableHandle from the front of src.
func DecodeTableHandle(src []byte) (TableHandle, []byte, bool) {
	idx, rest, ok := block.DecodeHandle(src)
	if !ok {
		return TableHandle{}, src, false
	}
	fo, rest, ok := varint.Get(rest)
	if !ok {
		return TableHandle{}, src, false
	}
	fs, rest, ok := varint.Get(rest)
	if !ok {
		return TableHandle{}, src, false
	}
	smallest, rest, ok := varint.GetLengthPrefixed(rest)
	if !ok {
		return TableHandle{}, src, false
	}
	largest, rest, ok := varint.GetLengthPrefixed(rest)
	if !ok {
		return TableHandle{}, src, false
	}
	return TableHandle{
		Index:        idx,
		FilterOffset: fo,
		FilterSize:   fs,
		SmallestKey:  append([]byte(nil), smallest...),
		LargestKey:   append([]byte(nil), largest...),
	}, rest, true
}
