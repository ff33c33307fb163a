package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AmrMurad1/plfsio/table"
)

func TestFindShortestSeparator(t *testing.T) {
	require.Equal(t, []byte("b"), table.FindShortestSeparator([]byte("abc"), []byte("cde")))
	require.Equal(t, []byte("abc"), table.FindShortestSeparator([]byte("abc"), []byte("abd")))
	require.Equal(t, []byte("abc"), table.FindShortestSeparator([]byte("abc"), []byte("abc")))
	require.Equal(t, []byte("ab"), table.FindShortestSeparator([]byte("ab"), []byte("abcd")))
}

func TestFindShortSuccessor(t *testing.T) {
	require.Equal(t, []byte("b"), table.FindShortSuccessor([]byte("aaa")))
	require.Equal(t, []byte{0xff, 0xff}, table.FindShortSuccessor([]byte{0xff, 0xff}))
}
