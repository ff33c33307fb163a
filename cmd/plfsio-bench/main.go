// Command plfsio-bench drives a bulk write followed by a point-lookup
// pass against a plfsio directory, reporting basic throughput numbers.
// It replaces the teacher's fixed Set/Get/Delete script (main.go) with
// a flag-driven benchmark, the kind of driver spec.md §1 calls out as
// an external collaborator but still worth shipping as a runnable
// demonstration.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	plfsio "github.com/AmrMurad1/plfsio"
	"github.com/AmrMurad1/plfsio/internal/logio"
)

func main() {
	var (
		dir        = flag.String("dir", "", "directory to write the store into (default: a fresh temp dir)")
		numRecords = flag.Int("records", 100000, "number of records to bulk load")
		numEpochs  = flag.Int("epochs", 1, "number of MakeEpoch barriers to insert")
		keySize    = flag.Int("key-size", 16, "key size in bytes")
		valueSize  = flag.Int("value-size", 32, "value size in bytes")
		bitsPerKey = flag.Int("bf-bits-per-key", 10, "bloom filter bits per key (0 disables)")
		uniqueKeys = flag.Bool("unique-keys", true, "enforce/assume unique keys")
	)
	flag.Parse()

	if *dir == "" {
		*dir = filepath.Join(os.TempDir(), "plfsio-bench-"+uuid.NewString())
		if err := os.MkdirAll(*dir, 0755); err != nil {
			fmt.Fprintln(os.Stderr, "mkdir:", err)
			os.Exit(1)
		}
	}

	opts := &plfsio.DirOptions{
		MemtableBuffer: int64(*numRecords) * int64(*keySize+*valueSize) / 4,
		BlockSize:      4096,
		BlockUtil:      0.996,
		BlockBuffer:    1 << 20,
		BFBitsPerKey:   *bitsPerKey,
		KeySize:        *keySize,
		ValueSize:      *valueSize,
		UniqueKeys:     *uniqueKeys,
		VerifyChecksums: true,
	}

	dataPath := filepath.Join(*dir, "data.log")
	indexPath := filepath.Join(*dir, "index.log")

	dataSink, err := logio.CreateFileSink(dataPath)
	must(err)
	indexSink, err := logio.CreateFileSink(indexPath)
	must(err)

	logger := plfsio.NewDirLogger(opts, dataSink, indexSink)

	rng := rand.New(rand.NewSource(1))
	start := time.Now()
	perEpoch := *numRecords / *numEpochs
	if perEpoch < 1 {
		perEpoch = 1
	}
	for i := 0; i < *numRecords; i++ {
		key := randomBytes(rng, *keySize)
		val := randomBytes(rng, *valueSize)
		if err := retryAdd(logger, key, val); err != nil {
			fmt.Fprintln(os.Stderr, "add:", err)
			os.Exit(1)
		}
		if perEpoch > 0 && (i+1)%perEpoch == 0 {
			if err := logger.MakeEpoch(false); err != nil {
				fmt.Fprintln(os.Stderr, "make epoch:", err)
				os.Exit(1)
			}
		}
	}
	must(logger.Finish(false))
	writeElapsed := time.Since(start)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	must(logger.Wait(ctx))
	must(logger.Close())
	must(dataSink.Unref())
	must(indexSink.Unref())

	stats := logger.Stats()
	fmt.Printf("wrote %d records, %d tables, %d epochs, %d data bytes in %s\n",
		stats.RecordsWritten, stats.TablesWritten, stats.EpochsWritten, stats.DataBytesWritten, writeElapsed)

	dataSrc, err := logio.OpenFileSource(dataPath)
	must(err)
	indexSrc, err := logio.OpenFileSource(indexPath)
	must(err)

	reader, err := plfsio.Open(opts, dataSrc, indexSrc)
	must(err)
	defer reader.Close()
	defer dataSrc.Unref()
	defer indexSrc.Unref()

	fmt.Printf("directory at %s has %d epochs\n", *dir, reader.NumEpochs())

	rng = rand.New(rand.NewSource(1))
	found := 0
	start = time.Now()
	for i := 0; i < *numRecords; i++ {
		key := randomBytes(rng, *keySize)
		_ = randomBytes(rng, *valueSize)
		hit := false
		must(reader.Gets(key, func(k, v []byte) { hit = true }))
		if hit {
			found++
		}
	}
	fmt.Printf("looked up %d records, %d found in %s\n", *numRecords, found, time.Since(start))
}

func retryAdd(l *plfsio.DirLogger, key, value []byte) error {
	for {
		err := l.Add(key, value)
		if err == nil {
			return nil
		}
		if err == plfsio.ErrBufferFull {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			waitErr := l.Wait(ctx)
			cancel()
			if waitErr != nil && waitErr != context.DeadlineExceeded {
				return waitErr
			}
			continue
		}
		return err
	}
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	_, _ = rng.Read(b)
	return b
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
