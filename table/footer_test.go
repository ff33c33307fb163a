package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AmrMurad1/plfsio/internal/block"
	"github.com/AmrMurad1/plfsio/table"
)

func TestFooterEncodeDecode(t *testing.T) {
	f := table.Footer{
		EpochIndexHandle: block.Handle{Offset: 4096, Size: 128},
		NumEpochs:        3,
	}
	enc := f.Encode()
	require.Len(t, enc, table.FooterSize)

	got, err := table.DecodeFooter(enc)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestDecodeFooterRejectsBadMagic(t *testing.T) {
	f := table.Footer{EpochIndexHandle: block.Handle{Offset: 1, Size: 2}, NumEpochs: 1}
	enc := f.Encode()
	enc[len(enc)-1] ^= 0xff

	_, err := table.DecodeFooter(enc)
	require.Error(t, err)
}

func TestDecodeFooterRejectsWrongLength(t *testing.T) {
	_, err := table.DecodeFooter(make([]byte, table.FooterSize-1))
	require.Error(t, err)
}

func TestEpochKeyRoundTrip(t *testing.T) {
	enc := table.EncodeEpochKey(7, 42)
	epoch, tbl, ok := table.DecodeEpochKey(enc)
	require.True(t, ok)
	require.EqualValues(t, 7, epoch)
	require.EqualValues(t, 42, tbl)
}

func TestEpochKeyOrdering(t *testing.T) {
	a := table.EncodeEpochKey(0, 5)
	b := table.EncodeEpochKey(1, 0)
	require.True(t, string(a) < string(b))
}
