package dirstore_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dirstore "github.com/AmrMurad1/plfsio"
	"github.com/AmrMurad1/plfsio/internal/block"
	"github.com/AmrMurad1/plfsio/internal/filter"
	"github.com/AmrMurad1/plfsio/internal/logio"
	"github.com/AmrMurad1/plfsio/table"
)

// stallingExecutor never runs submitted work on its own; the test
// drives it manually via run(), so buffer-pressure behavior doesn't
// race against how fast a real compaction drains.
type stallingExecutor struct {
	fn func()
}

func (s *stallingExecutor) Submit(fn func()) { s.fn = fn }

func (s *stallingExecutor) run() {
	if s.fn != nil {
		fn := s.fn
		s.fn = nil
		fn()
	}
}

func baseOptions() *dirstore.DirOptions {
	return &dirstore.DirOptions{
		MemtableBuffer:  1 << 20,
		BlockSize:       4096,
		BlockUtil:       0.996,
		BlockBuffer:     1 << 16,
		IndexBuffer:     4096,
		VerifyChecksums: true,
	}
}

func collect(t *testing.T, r *dirstore.DirReader, key string) []string {
	t.Helper()
	var got []string
	require.NoError(t, r.Gets([]byte(key), func(k, v []byte) {
		got = append(got, string(v))
	}))
	return got
}

func finishAndOpen(t *testing.T, opts *dirstore.DirOptions, logger *dirstore.DirLogger, dataSink, indexSink *logio.MemSink) *dirstore.DirReader {
	t.Helper()
	require.NoError(t, logger.Finish(false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, logger.Wait(ctx))
	require.NoError(t, logger.Close())

	dataSrc := logio.NewMemSource(dataSink.Bytes())
	indexSrc := logio.NewMemSource(indexSink.Bytes())
	reader, err := dirstore.Open(opts, dataSrc, indexSrc)
	require.NoError(t, err)
	return reader
}

// Scenario 1 (spec.md §8): three records, unique_keys=true, one epoch.
func TestThreeRecordRoundTrip(t *testing.T) {
	opts := baseOptions()
	opts.UniqueKeys = true
	dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
	logger := dirstore.NewDirLogger(opts, dataSink, indexSink)

	require.NoError(t, logger.Add([]byte("a"), []byte("1")))
	require.NoError(t, logger.Add([]byte("c"), []byte("3")))
	require.NoError(t, logger.Add([]byte("b"), []byte("2")))
	require.NoError(t, logger.MakeEpoch(false))

	reader := finishAndOpen(t, opts, logger, dataSink, indexSink)
	defer reader.Close()

	require.Equal(t, []string{"1"}, collect(t, reader, "a"))
	require.Equal(t, []string{"2"}, collect(t, reader, "b"))
	require.Equal(t, []string{"3"}, collect(t, reader, "c"))
	require.Empty(t, collect(t, reader, "d"))
}

// Scenario 2 (spec.md §8): two epochs, duplicate key across epochs.
func TestTwoEpochsDuplicateKeyAcrossEpochs(t *testing.T) {
	run := func(unique bool, want []string) {
		opts := baseOptions()
		opts.UniqueKeys = unique
		dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
		logger := dirstore.NewDirLogger(opts, dataSink, indexSink)

		require.NoError(t, logger.Add([]byte("k"), []byte("v0")))
		require.NoError(t, logger.MakeEpoch(false))
		require.NoError(t, logger.Add([]byte("k"), []byte("v1")))

		reader := finishAndOpen(t, opts, logger, dataSink, indexSink)
		defer reader.Close()

		require.Equal(t, want, collect(t, reader, "k"))
	}

	t.Run("unique_keys=false concatenates", func(t *testing.T) {
		run(false, []string{"v0", "v1"})
	})
	t.Run("unique_keys=true first epoch wins", func(t *testing.T) {
		run(true, []string{"v0"})
	})
}

// Scenario 3 (spec.md §8): bloom false-positive rate within tolerance
// across multiple tables in one epoch.
func TestBloomFilterFalsePositiveRate(t *testing.T) {
	opts := baseOptions()
	opts.BFBitsPerKey = 10
	opts.BlockBuffer = 1 << 12     // several data-log commits per table
	opts.MemtableBuffer = 16 << 10 // force several tables in the epoch
	opts.ValueSize = 1             // size each table's filter for the 1-byte values below
	opts.UniqueKeys = true
	dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
	logger := dirstore.NewDirLogger(opts, dataSink, indexSink)

	const n = 2000
	rng := rand.New(rand.NewSource(7))
	present := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		k := make([]byte, 16)
		_, _ = rng.Read(k)
		present[string(k)] = true
		require.NoError(t, logger.Add(k, []byte("v")))
	}
	require.NoError(t, logger.MakeEpoch(false))

	reader := finishAndOpen(t, opts, logger, dataSink, indexSink)
	defer reader.Close()

	for k := range present {
		require.NotEmpty(t, collect(t, reader, k))
	}

	indexBytes := indexSink.Bytes()
	footer, err := table.DecodeFooter(indexBytes[len(indexBytes)-table.FooterSize:])
	require.NoError(t, err)
	epochContents, err := block.ReadBlock(logio.NewMemSource(indexBytes), footer.EpochIndexHandle, true)
	require.NoError(t, err)
	epochIt, err := block.NewIter(epochContents.Data)
	require.NoError(t, err)
	var filters [][]byte
	for epochIt.SeekToFirst(); epochIt.Valid(); epochIt.Next() {
		th, _, ok := table.DecodeTableHandle(epochIt.Value())
		require.True(t, ok)
		require.True(t, th.HasFilter())
		filters = append(filters, indexBytes[th.FilterOffset:th.FilterOffset+th.FilterSize])
	}
	require.GreaterOrEqual(t, len(filters), 2)

	const probes = 20000
	fp, total := 0, 0
	for i := 0; i < probes; i++ {
		k := make([]byte, 16)
		_, _ = rng.Read(k)
		if present[string(k)] {
			continue
		}
		require.Empty(t, collect(t, reader, string(k)))
		for _, f := range filters {
			total++
			if filter.MayMatch(k, f) {
				fp++
			}
		}
	}
	rate := float64(fp) / float64(total)
	require.Less(t, rate, 0.05, "false-positive rate too high: %f", rate)
}

// Scenario 4 (spec.md §8): filling memtable_buffer mid-epoch triggers a
// flush, producing >=2 tables in a single epoch with every key still
// retrievable.
func TestMidEpochFlushProducesMultipleTables(t *testing.T) {
	opts := baseOptions()
	opts.MemtableBuffer = 4096 // small enough to force >=2 tables
	opts.UniqueKeys = true
	dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
	logger := dirstore.NewDirLogger(opts, dataSink, indexSink)

	const n = 500
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key-%05d", i)
		require.NoError(t, logger.Add([]byte(keys[i]), []byte(fmt.Sprintf("val-%05d", i))))
	}
	require.NoError(t, logger.MakeEpoch(false))

	reader := finishAndOpen(t, opts, logger, dataSink, indexSink)
	defer reader.Close()

	require.GreaterOrEqual(t, logger.Stats().TablesWritten, uint64(2))
	for i, k := range keys {
		require.Equal(t, []string{fmt.Sprintf("val-%05d", i)}, collect(t, reader, k))
	}
}

// Scenario 5 (spec.md §8): a truncated index log is rejected as
// Corruption on Open.
func TestTruncatedIndexLogIsCorruption(t *testing.T) {
	opts := baseOptions()
	dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
	logger := dirstore.NewDirLogger(opts, dataSink, indexSink)
	require.NoError(t, logger.Add([]byte("a"), []byte("1")))

	require.NoError(t, logger.Finish(false))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, logger.Wait(ctx))
	require.NoError(t, logger.Close())

	indexBytes := indexSink.Bytes()
	truncated := indexBytes[:len(indexBytes)-1]

	dataSrc := logio.NewMemSource(dataSink.Bytes())
	indexSrc := logio.NewMemSource(truncated)
	_, err := dirstore.Open(opts, dataSrc, indexSrc)
	require.Error(t, err)
	kind, ok := dirstore.KindOf(err)
	require.True(t, ok)
	require.Equal(t, dirstore.KindCorruption, kind)
}

// Scenario 6 (spec.md §8): non_blocking mode returns BufferFull once
// both buffers are occupied, and Add succeeds again after Wait.
func TestNonBlockingBufferFull(t *testing.T) {
	stall := &stallingExecutor{}
	opts := baseOptions()
	opts.NonBlocking = true
	opts.MemtableBuffer = 64 // tiny, so a handful of Adds fill a buffer
	opts.CompactionPool = stall
	dataSink, indexSink := logio.NewMemSink(), logio.NewMemSink()
	logger := dirstore.NewDirLogger(opts, dataSink, indexSink)
	defer logger.Close()

	var sawBufferFull bool
	for i := 0; i < 1000; i++ {
		err := logger.Add([]byte(fmt.Sprintf("k%04d", i)), []byte("v"))
		if err == dirstore.ErrBufferFull {
			sawBufferFull = true
			break
		}
		require.NoError(t, err)
	}
	require.True(t, sawBufferFull, "expected BufferFull once both buffers filled")

	// Let the stalled compaction actually run, draining the
	// immutable buffer and making room again.
	stall.run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, logger.Wait(ctx))

	require.NoError(t, logger.Add([]byte("after-wait"), []byte("v")))
}
