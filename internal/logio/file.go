// Package logio provides concrete, reference-counted implementations
// of the LogSink/LogSource contract (spec.md §6): a file-backed pair
// for real directories, and an in-memory pair for tests. They are the
// "specified only by the interface the core consumes" collaborators
// spec.md §1 calls out, given a minimal runnable shape so the rest of
// the module is end-to-end usable without an external log library.
package logio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/AmrMurad1/plfsio/internal/ref"
)

// FileSink is a LogSink backed by an append-only *os.File, wrapped in
// a bufio.Writer the way memtable/wal.go wraps its WAL handle.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	bw     *bufio.Writer
	tell   uint64
	rc     *ref.Counted
	closed bool
}

// CreateFileSink creates (truncating) path and returns a FileSink.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logio: cannot create sink %q: %w", path, err)
	}
	s := &FileSink{file: f, bw: bufio.NewWriter(f)}
	s.rc = ref.New(s.closeNow)
	return s, nil
}

func (s *FileSink) Lwrite(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("logio: sink is closed")
	}
	n, err := s.bw.Write(b)
	s.tell += uint64(n)
	return err
}

func (s *FileSink) Ltell() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tell, nil
}

func (s *FileSink) Lclose(sync bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	if sync {
		if err := s.file.Sync(); err != nil {
			return err
		}
	}
	s.closed = true
	return s.file.Close()
}

func (s *FileSink) closeNow() error {
	return s.Lclose(false)
}

func (s *FileSink) Ref()          { s.rc.Ref() }
func (s *FileSink) Unref() error  { return s.rc.Unref() }

// FileSource is a LogSource backed by positional reads on an *os.File,
// grounded on sstable/reader.go's file.ReadAt usage.
type FileSource struct {
	mu   sync.Mutex
	file *os.File
	rc   *ref.Counted
}

// OpenFileSource opens path for reading.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logio: cannot open source %q: %w", path, err)
	}
	src := &FileSource{file: f}
	src.rc = ref.New(src.closeNow)
	return src, nil
}

func (s *FileSource) Read(offset uint64, n uint64, scratch []byte) ([]byte, error) {
	if uint64(cap(scratch)) < n {
		scratch = make([]byte, n)
	}
	scratch = scratch[:n]
	s.mu.Lock()
	_, err := s.file.ReadAt(scratch, int64(offset))
	s.mu.Unlock()
	if err != nil && err != io.EOF {
		return nil, err
	}
	return scratch, nil
}

func (s *FileSource) Size() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

func (s *FileSource) closeNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *FileSource) Ref()         { s.rc.Ref() }
func (s *FileSource) Unref() error { return s.rc.Unref() }
