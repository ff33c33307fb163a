package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AmrMurad1/plfsio/internal/block"
)

type memSource struct{ data []byte }

func (m memSource) Read(offset, n uint64, scratch []byte) ([]byte, error) {
	return m.data[offset : offset+n], nil
}

func TestBuilderRoundTrip(t *testing.T) {
	b := block.NewBuilder(2)
	entries := [][2]string{
		{"apple", "1"},
		{"banana", "2"},
		{"cherry", "3"},
		{"date", "4"},
		{"elderberry", "5"},
	}
	for _, e := range entries {
		b.Add([]byte(e[0]), []byte(e[1]))
	}

	buf := b.Finish()
	finalized := append([]byte(nil), block.Finalize(buf)...)

	src := memSource{data: finalized}
	contents, err := block.ReadBlock(src, block.Handle{Offset: 0, Size: uint64(len(finalized) - 5)}, true)
	require.NoError(t, err)

	it, err := block.NewIter(contents.Data)
	require.NoError(t, err)

	it.SeekToFirst()
	for _, e := range entries {
		require.True(t, it.Valid())
		require.Equal(t, e[0], string(it.Key()))
		require.Equal(t, e[1], string(it.Value()))
		it.Next()
	}
	require.False(t, it.Valid())
}

func TestBuilderSeek(t *testing.T) {
	b := block.NewBuilder(16)
	keys := []string{"a", "c", "e", "g", "i"}
	for _, k := range keys {
		b.Add([]byte(k), []byte("v-"+k))
	}
	buf := b.Finish()
	finalized := block.Finalize(buf)

	it, err := block.NewIter(finalized[:len(finalized)-5])
	require.NoError(t, err)

	it.Seek([]byte("d"))
	require.True(t, it.Valid())
	require.Equal(t, "e", string(it.Key()))

	it.Seek([]byte("z"))
	require.False(t, it.Valid())
}

func TestReadBlockDetectsCorruption(t *testing.T) {
	b := block.NewBuilder(16)
	b.Add([]byte("k"), []byte("v"))
	buf := b.Finish()
	finalized := append([]byte(nil), block.Finalize(buf)...)
	finalized[0] ^= 0xff // flip a payload byte

	src := memSource{data: finalized}
	_, err := block.ReadBlock(src, block.Handle{Offset: 0, Size: uint64(len(finalized) - 5)}, true)
	require.ErrorIs(t, err, block.ErrCorruption)
}

func TestHandleEncodeDecode(t *testing.T) {
	h := block.Handle{Offset: 12345, Size: 678}
	enc := h.EncodeTo(nil)
	got, rest, ok := block.DecodeHandle(enc)
	require.True(t, ok)
	require.Empty(t, rest)
	require.Equal(t, h, got)
}
