// Package filter implements the per-table bloom filter block spec.md
// §4.2 describes: double hashing with a rotate-right-17 delta, k
// clamped to [1, 30], and a trailing k byte. It replaces the teacher's
// k-independent-hash.Hash32 design (sstable/filter/filter.go) with the
// single-seed scheme the spec requires, while keeping the teacher's
// own github.com/spaolacci/murmur3 dependency as BloomHash (see
// DESIGN.md).
package filter

import (
	"math"

	"github.com/spaolacci/murmur3"
)

const seed = 0xbc9f1d34

// BloomHash hashes a key the same way for both construction and
// probing, using the teacher's own murmur3 dependency (see DESIGN.md).
func BloomHash(key []byte) uint32 {
	h := murmur3.New32WithSeed(seed)
	_, _ = h.Write(key)
	return h.Sum32()
}

// minBits is the minimum bit-array size configured per spec.md §4.5
// ("minimum filter size 64 bits when any filter is configured").
const minBits = 64

// Builder accumulates keys for one table's bloom filter.
type Builder struct {
	bitsPerKey int
	k          int
	bits       []byte // packed bit array
	nbits      int
}

// NewBuilder returns a Builder sized for n expected keys at
// bitsPerKey bits per key. A bitsPerKey <= 0 disables filtering
// (callers should simply not create a Builder in that case).
func NewBuilder(n int, bitsPerKey int) *Builder {
	k := int(math.Round(float64(bitsPerKey) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	nbits := n * bitsPerKey
	if nbits < minBits {
		nbits = minBits
	}
	nbytes := (nbits + 7) / 8
	return &Builder{
		bitsPerKey: bitsPerKey,
		k:          k,
		bits:       make([]byte, nbytes),
		nbits:      nbytes * 8,
	}
}

// AddKey sets the k probe bits for key.
func (b *Builder) AddKey(key []byte) {
	h := BloomHash(key)
	delta := rotateRight17(h)
	for i := 0; i < b.k; i++ {
		bitpos := h % uint32(b.nbits)
		b.bits[bitpos/8] |= 1 << (bitpos % 8)
		h += delta
	}
}

// Finish appends the trailing k byte and returns the encoded filter
// image.
func (b *Builder) Finish() []byte {
	out := make([]byte, len(b.bits)+1)
	copy(out, b.bits)
	out[len(b.bits)] = byte(b.k)
	return out
}

func rotateRight17(h uint32) uint32 {
	return (h >> 17) | (h << 15)
}

// MayMatch reports whether encoded (a Finish()-produced image) may
// contain key. A malformed/too-short image, or a k > 30 trailing
// byte, is treated as a match for forward compatibility per spec.md
// §4.2.
func MayMatch(key []byte, encoded []byte) bool {
	if len(encoded) < 2 {
		return true
	}
	bits := encoded[:len(encoded)-1]
	k := int(encoded[len(encoded)-1])
	if k > 30 {
		return true
	}
	nbits := len(bits) * 8
	if nbits == 0 {
		return true
	}
	h := BloomHash(key)
	delta := rotateRight17(h)
	for i := 0; i < k; i++ {
		bitpos := h % uint32(nbits)
		if bits[bitpos/8]&(1<<(bitpos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}
