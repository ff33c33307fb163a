package table

import "encoding/binary"

// EpochKeyLen is the fixed width of an encoded EpochKey.
const EpochKeyLen = 8

// EncodeEpochKey returns the fixed-width big-endian concatenation
// BE32(epoch) || BE32(table), chosen (per spec.md §9 Open Question
// (a)/§6) because it sorts lexicographically by (epoch, table), which
// is exactly the order the meta block's restart-array needs.
func EncodeEpochKey(epoch, tbl uint32) []byte {
	out := make([]byte, EpochKeyLen)
	binary.BigEndian.PutUint32(out[0:4], epoch)
	binary.BigEndian.PutUint32(out[4:8], tbl)
	return out
}

// DecodeEpochKey reverses EncodeEpochKey.
func DecodeEpochKey(b []byte) (epoch, tbl uint32, ok bool) {
	if len(b) != EpochKeyLen {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(b[0:4]), binary.BigEndian.Uint32(b[4:8]), true
}
