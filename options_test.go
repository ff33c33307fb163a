package dirstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dirstore "github.com/AmrMurad1/plfsio"
)

func TestLoadOptionsAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bf_bits_per_key: 10\nunique_keys: true\n"), 0644))

	opts, err := dirstore.LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, 10, opts.BFBitsPerKey)
	require.True(t, opts.UniqueKeys)
	require.Equal(t, 4096, opts.BlockSize)
	require.NotNil(t, opts.CompactionPool)
}

func TestLoadOptionsRejectsInvalidBlockUtil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_util: 5\n"), 0644))

	_, err := dirstore.LoadOptions(path)
	require.Error(t, err)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := dirstore.LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
