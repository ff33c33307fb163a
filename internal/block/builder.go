// Package block implements the restart-array block builder/reader
// spec.md §4.3 describes as a generic primitive: data blocks use a
// restart interval of 16, index and meta blocks use 1. It also
// implements the block I/O primitive (spec.md §4.7) that finalizes a
// block with a compression-type byte and a masked CRC32C trailer, plus
// a separate zero-pad helper for aligning the on-disk log.
//
// This generalizes the per-entry length-prefixed encoding in
// sstable/writer.go and sstable/reader.go (the teacher) together with
// the restart-section/delta-key idiom in bsm-sntable/writer.go into
// one reusable builder/reader pair (see DESIGN.md).
package block

import (
	"bytes"
	"encoding/binary"

	"github.com/AmrMurad1/plfsio/internal/crc32c"
)

// NoCompression is the only compression-type byte this module emits
// or accepts; spec.md's Non-goals exclude data-block compression and
// ReadBlock only supports this codec (spec.md §4.7).
const NoCompression byte = 0

const trailerLen = 5 // 1 compression-type byte + 4-byte masked CRC32C

// Builder accumulates restart-array-encoded (key, value) pairs into a
// shared backing buffer (spec.md §4.3's "buffer_store"), so a flush
// can later checksum that same buffer in place before it is written.
type Builder struct {
	restartInterval int
	buf             bytes.Buffer
	restarts        []uint32
	counter         int
	lastKey         []byte
	finished        bool
}

// NewBuilder returns a Builder that emits a full key every
// restartInterval entries (restartInterval must be >= 1).
func NewBuilder(restartInterval int) *Builder {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &Builder{restartInterval: restartInterval, restarts: []uint32{0}}
}

// Reset clears the builder for reuse, per spec.md §4.1's Reset
// contract applied to block builders.
func (b *Builder) Reset() {
	b.buf.Reset()
	b.restarts = b.restarts[:0]
	b.restarts = append(b.restarts, 0)
	b.counter = 0
	b.lastKey = nil
	b.finished = false
}

// Empty reports whether no entry has been added since New/Reset.
func (b *Builder) Empty() bool {
	return b.buf.Len() == 0
}

// EstimatedSize estimates the encoded size including the not-yet-written
// restart-point trailer, used for the block_size flush decision
// (spec.md §4.4).
func (b *Builder) EstimatedSize() int {
	return b.buf.Len() + len(b.restarts)*4 + 4
}

// LastKey returns the most recently added key (nil if none yet).
func (b *Builder) LastKey() []byte {
	return b.lastKey
}

// Add appends a (key, value) pair. Keys must be added in non-decreasing
// order; the caller (TableEncoder) is responsible for that invariant.
func (b *Builder) Add(key, value []byte) {
	var shared int
	if b.counter < b.restartInterval {
		shared = commonPrefixLen(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(b.buf.Len()))
		b.counter = 0
	}
	nonShared := len(key) - shared

	var tmp [binary.MaxVarintLen64 * 3]byte
	n := binary.PutUvarint(tmp[0:], uint64(shared))
	n += binary.PutUvarint(tmp[n:], uint64(nonShared))
	n += binary.PutUvarint(tmp[n:], uint64(len(value)))
	b.buf.Write(tmp[:n])
	b.buf.Write(key[shared:])
	b.buf.Write(value)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

// Finish appends the restart-point trailer (spec.md §4.3) to the
// shared buffer and returns it. The returned buffer is still mutable:
// Finalize appends the compression byte and checksum to it.
func (b *Builder) Finish() *bytes.Buffer {
	if !b.finished {
		var tmp [4]byte
		for _, r := range b.restarts {
			binary.LittleEndian.PutUint32(tmp[:], r)
			b.buf.Write(tmp[:])
		}
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(b.restarts)))
		b.buf.Write(tmp[:])
		b.finished = true
	}
	return &b.buf
}

// Finalize appends the NoCompression byte and the masked CRC32C
// covering the payload plus that byte (spec.md §3/§4.7), and returns
// the finalized block image: payload || compression_byte ||
// masked_crc32c. It does not pad: block_padding (spec.md §6) rounds
// the on-disk log up to block_size with filler bytes written *after*
// this trailer so the BlockHandle recorded in the index always spans
// exactly the real payload, never the filler (see DESIGN.md/SPEC_FULL
// §9(b)).
func Finalize(buf *bytes.Buffer) []byte {
	payload := crc32c.Value(buf.Bytes())
	buf.WriteByte(NoCompression)
	sum := crc32c.Mask(crc32c.Extend(payload, buf.Bytes()[buf.Len()-1:]))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], sum)
	buf.Write(tmp[:])
	return buf.Bytes()
}

// WriteZeroPad appends n zero bytes to buf, used to align the on-disk
// log to a configured modulus (block_size filler or the index log's
// tail_padding, spec.md §6).
func WriteZeroPad(buf *bytes.Buffer, n int) {
	var zeros [256]byte
	for n > 0 {
		k := n
		if k > len(zeros) {
			k = len(zeros)
		}
		buf.Write(zeros[:k])
		n -= k
	}
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
