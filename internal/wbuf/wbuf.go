// Package wbuf implements the WriteBuffer spec.md §4.1 describes: an
// unordered append-only arena of (key, value) pairs with an offset
// index, sortable in place once sealed. It deliberately does not use
// the teacher's ordered skiplist (memtable/skiplist.go) — spec.md's
// WriteBuffer is unordered until Finish, and sorts exactly once
// rather than maintaining order on every insert (see DESIGN.md).
package wbuf

import (
	"fmt"
	"sort"
)

// entry records where one record begins in the arena and how long its
// key and value are, for later sort/iteration without copying. The
// arena holds each key immediately followed by its value, with no
// length prefix; the lengths are kept only here.
type entry struct {
	off     int
	keyLen  int
	valLen  int
}

// Buffer is a WriteBuffer.
type Buffer struct {
	arena   []byte
	entries []entry
	sealed  bool
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Reserve pre-allocates capacity for n entries totaling approximately
// bytes bytes, per spec.md §4.1.
func (b *Buffer) Reserve(n int, bytes int) {
	if cap(b.entries) < n {
		grown := make([]entry, len(b.entries), n)
		copy(grown, b.entries)
		b.entries = grown
	}
	if cap(b.arena) < bytes {
		grown := make([]byte, len(b.arena), bytes)
		copy(grown, b.arena)
		b.arena = grown
	}
}

// Add appends a (key, value) record. It is an error to call Add after
// Finish or with an empty key (spec.md §4.1's error model).
func (b *Buffer) Add(key, value []byte) error {
	if b.sealed {
		return fmt.Errorf("wbuf: Add after Finish")
	}
	if len(key) == 0 {
		return fmt.Errorf("wbuf: empty key")
	}
	off := len(b.arena)
	b.arena = append(b.arena, key...)
	b.arena = append(b.arena, value...)
	b.entries = append(b.entries, entry{off: off, keyLen: len(key), valLen: len(value)})
	return nil
}

// CurrentBufferSize returns the arena's current size in bytes, used
// for the write-pressure decision in DirLogger.Prepare.
func (b *Buffer) CurrentBufferSize() int {
	return len(b.arena)
}

// Len returns the number of records added.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Finish seals the buffer and sorts its entries by key. No further
// mutation is permitted afterward.
func (b *Buffer) Finish() {
	if b.sealed {
		return
	}
	sort.SliceStable(b.entries, func(i, j int) bool {
		return compare(b.keyAt(i), b.keyAt(j)) < 0
	})
	b.sealed = true
}

// Reset clears the buffer for reuse, per spec.md §4.1.
func (b *Buffer) Reset() {
	b.arena = b.arena[:0]
	b.entries = b.entries[:0]
	b.sealed = false
}

func (b *Buffer) keyAt(i int) []byte {
	e := b.entries[i]
	return b.arena[e.off : e.off+e.keyLen]
}

func (b *Buffer) valueAt(i int) []byte {
	e := b.entries[i]
	return b.arena[e.off+e.keyLen : e.off+e.keyLen+e.valLen]
}

// Iterator walks a sealed Buffer's entries in sorted order, forward or
// backward by index; no Seek is exposed, per spec.md §4.1/§9.
type Iterator struct {
	buf *Buffer
	i   int
}

// NewIterator returns an Iterator over a sealed Buffer, positioned
// before the first entry.
func (b *Buffer) NewIterator() (*Iterator, error) {
	if !b.sealed {
		return nil, fmt.Errorf("wbuf: NewIterator before Finish")
	}
	return &Iterator{buf: b, i: -1}, nil
}

// Next advances to the next entry and reports whether one exists.
func (it *Iterator) Next() bool {
	if it.i+1 >= len(it.buf.entries) {
		it.i = len(it.buf.entries)
		return false
	}
	it.i++
	return true
}

// Prev moves to the previous entry and reports whether one exists.
func (it *Iterator) Prev() bool {
	if it.i <= 0 {
		it.i = -1
		return false
	}
	it.i--
	return true
}

// Key returns the current entry's key.
func (it *Iterator) Key() []byte { return it.buf.keyAt(it.i) }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.buf.valueAt(it.i) }

func compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
