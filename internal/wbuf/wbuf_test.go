package wbuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AmrMurad1/plfsio/internal/wbuf"
)

func TestAddFinishSortsByKey(t *testing.T) {
	b := wbuf.New()
	require.NoError(t, b.Add([]byte("c"), []byte("3")))
	require.NoError(t, b.Add([]byte("a"), []byte("1")))
	require.NoError(t, b.Add([]byte("b"), []byte("2")))

	b.Finish()
	it, err := b.NewIterator()
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestAddAfterFinishFails(t *testing.T) {
	b := wbuf.New()
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	b.Finish()
	require.Error(t, b.Add([]byte("k2"), []byte("v2")))
}

func TestAddEmptyKeyFails(t *testing.T) {
	b := wbuf.New()
	require.Error(t, b.Add(nil, []byte("v")))
}

func TestIteratorPrevNext(t *testing.T) {
	b := wbuf.New()
	require.NoError(t, b.Add([]byte("a"), []byte("1")))
	require.NoError(t, b.Add([]byte("b"), []byte("2")))
	b.Finish()

	it, err := b.NewIterator()
	require.NoError(t, err)
	require.True(t, it.Next())
	require.Equal(t, "a", string(it.Key()))
	require.True(t, it.Next())
	require.Equal(t, "b", string(it.Key()))
	require.False(t, it.Next())

	require.True(t, it.Prev())
	require.Equal(t, "b", string(it.Key()))
}

func TestResetClearsBuffer(t *testing.T) {
	b := wbuf.New()
	require.NoError(t, b.Add([]byte("a"), []byte("1")))
	b.Finish()
	b.Reset()
	require.Equal(t, 0, b.Len())
	require.NoError(t, b.Add([]byte("z"), []byte("9")))
}
