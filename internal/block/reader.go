package block

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/AmrMurad1/plfsio/internal/crc32c"
)

// Contents holds a decoded, checksum-verified block payload (trailer
// stripped), per spec.md §4.7's BlockContents.
type Contents struct {
	Data []byte
}

// Source is the minimal positional-read capability ReadBlock needs;
// dirstore.LogSource satisfies it.
type Source interface {
	Read(offset uint64, n uint64, scratch []byte) ([]byte, error)
}

// ErrCorruption is returned by ReadBlock and the Reader when a block
// fails its integrity check, per spec.md §7's Corruption kind.
var ErrCorruption = fmt.Errorf("block: corruption")

// ReadBlock reads the block located by handle from src, optionally
// verifying its checksum, and returns the decoded payload (spec.md
// §4.7). Only NoCompression is understood.
func ReadBlock(src Source, h Handle, verify bool) (Contents, error) {
	n := h.Size + uint64(trailerLen)
	raw, err := src.Read(h.Offset, n, make([]byte, n))
	if err != nil {
		return Contents{}, fmt.Errorf("block: read handle %+v: %w", h, err)
	}
	if uint64(len(raw)) != n {
		return Contents{}, fmt.Errorf("%w: short block read: got %d want %d", ErrCorruption, len(raw), n)
	}

	payload := raw[:h.Size]
	compressionType := raw[h.Size]
	storedCRC := binary.LittleEndian.Uint32(raw[h.Size+1:])

	if verify {
		got := crc32c.Value(raw[:h.Size+1])
		if crc32c.Unmask(storedCRC) != got {
			return Contents{}, fmt.Errorf("%w: crc mismatch at offset %d", ErrCorruption, h.Offset)
		}
	}
	if compressionType != NoCompression {
		return Contents{}, fmt.Errorf("%w: unsupported compression type %d", ErrCorruption, compressionType)
	}
	return Contents{Data: payload}, nil
}

// Iter walks the entries of a decoded block in sorted order, with a
// Seek that binary-searches restart points then scans linearly, per
// the leveldb-style restart-array convention spec.md §4.3 describes.
type Iter struct {
	data     []byte
	restarts []uint32
	numRes   int

	offset int // byte offset of the current entry's encoding
	key    []byte
	value  []byte
	valid  bool
	err    error
}

// NewIter decodes contents' restart-point trailer and returns an Iter
// positioned before the first entry.
func NewIter(contents []byte) (*Iter, error) {
	if len(contents) < 4 {
		return nil, fmt.Errorf("%w: block too short", ErrCorruption)
	}
	numRes := int(binary.LittleEndian.Uint32(contents[len(contents)-4:]))
	restartsStart := len(contents) - 4 - numRes*4
	if numRes < 0 || restartsStart < 0 {
		return nil, fmt.Errorf("%w: bad restart count %d", ErrCorruption, numRes)
	}
	restarts := make([]uint32, numRes)
	for i := 0; i < numRes; i++ {
		restarts[i] = binary.LittleEndian.Uint32(contents[restartsStart+i*4:])
	}
	return &Iter{data: contents[:restartsStart], restarts: restarts, numRes: numRes}, nil
}

func (it *Iter) Valid() bool  { return it.valid }
func (it *Iter) Key() []byte  { return it.key }
func (it *Iter) Value() []byte { return it.value }
func (it *Iter) Err() error   { return it.err }

// SeekToFirst positions the iterator at the first entry.
func (it *Iter) SeekToFirst() {
	it.offset = 0
	it.key = nil
	it.decodeAt(0)
}

// decodeAt decodes the entry starting at byte offset off, applying
// prefix-sharing against the iterator's current key. It leaves the
// iterator positioned at that entry.
func (it *Iter) decodeAt(off int) {
	if off >= len(it.data) {
		it.valid = false
		return
	}
	shared, n1 := binary.Uvarint(it.data[off:])
	nonShared, n2 := binary.Uvarint(it.data[off+n1:])
	valLen, n3 := binary.Uvarint(it.data[off+n1+n2:])
	if n1 <= 0 || n2 <= 0 || n3 <= 0 {
		it.valid = false
		it.err = fmt.Errorf("%w: bad entry header at %d", ErrCorruption, off)
		return
	}
	start := off + n1 + n2 + n3
	keyEnd := start + int(nonShared)
	valEnd := keyEnd + int(valLen)
	if keyEnd > len(it.data) || valEnd > len(it.data) || uint64(len(it.key)) < shared {
		it.valid = false
		it.err = fmt.Errorf("%w: truncated entry at %d", ErrCorruption, off)
		return
	}
	newKey := make([]byte, int(shared)+int(nonShared))
	copy(newKey, it.key[:shared])
	copy(newKey[shared:], it.data[start:keyEnd])

	it.key = newKey
	it.value = it.data[keyEnd:valEnd]
	it.offset = valEnd
	it.valid = true
}

// Next advances to the next entry.
func (it *Iter) Next() {
	if !it.valid {
		return
	}
	it.decodeAt(it.offset)
}

// Seek positions the iterator at the first entry whose key is >= key,
// using a binary search over restart points followed by a linear scan
// within the matched restart section.
func (it *Iter) Seek(key []byte) {
	idx := sort.Search(it.numRes, func(i int) bool {
		it.jumpToRestart(i)
		return compare(it.key, key) >= 0
	})
	if idx == 0 {
		it.jumpToRestart(0)
	} else {
		it.jumpToRestart(idx - 1)
	}
	for it.valid && compare(it.key, key) < 0 {
		it.Next()
	}
}

func (it *Iter) jumpToRestart(i int) {
	it.key = nil
	it.decodeAt(int(it.restarts[i]))
}

func compare(a, b []byte) int {
	la, lb := len(a), len(b)
	n := la
	if lb < n {
		n = lb
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
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}
