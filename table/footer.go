package table

import (
	"encoding/binary"
	"fmt"

	"github.com/AmrMurad1/plfsio/internal/block"
)

// Magic is the fixed 8-byte tail marker every directory's footer
// carries, per spec.md §3/§6.
var Magic = [8]byte{0x50, 0x4c, 0x46, 0x53, 0x49, 0x4f, 0xfe, 0xed}

const handleEnvelope = 2 * binary.MaxVarintLen64

// FooterSize is the fixed length of an encoded Footer: a padded
// BlockHandle envelope, a fixed32 epoch count, and the 8-byte magic.
const FooterSize = handleEnvelope + 4 + 8

// Footer is the fixed-length tail record of the index log (spec.md
// §3/§6): the epoch-index block's handle, the number of epochs
// written, and the magic marker.
type Footer struct {
	EpochIndexHandle block.Handle
	NumEpochs        uint32
}

// Encode returns the fixed-length on-disk encoding of f.
func (f Footer) Encode() []byte {
	out := make([]byte, FooterSize)
	enc := f.EpochIndexHandle.EncodeTo(nil)
	copy(out[:handleEnvelope], enc) // remaining bytes stay zero-padded
	binary.LittleEndian.PutUint32(out[handleEnvelope:handleEnvelope+4], f.NumEpochs)
	copy(out[handleEnvelope+4:], Magic[:])
	return out
}

// DecodeFooter decodes a Footer from exactly FooterSize bytes,
// rejecting a bad magic (spec.md §4.6/§7 Corruption).
func DecodeFooter(b []byte) (Footer, error) {
	if len(b) != FooterSize {
		return Footer{}, fmt.Errorf("table: footer must be %d bytes, got %d", FooterSize, len(b))
	}
	var magic [8]byte
	copy(magic[:], b[handleEnvelope+4:])
	if magic != Magic {
		return Footer{}, fmt.Errorf("table: bad footer magic")
	}
	h, _, ok := block.DecodeHandle(b[:handleEnvelope])
	if !ok {
		return Footer{}, fmt.Errorf("table: cannot decode epoch index handle")
	}
	numEpochs := binary.LittleEndian.Uint32(b[handleEnvelope : handleEnvelope+4])
	return Footer{EpochIndexHandle: h, NumEpochs: numEpochs}, nil
}
