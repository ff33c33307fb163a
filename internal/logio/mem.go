package logio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/AmrMurad1/plfsio/internal/ref"
)

// MemSink is an in-memory LogSink, grounded on sstable/reader.go's use
// of bytes.NewReader over loaded byte slices — here used the other
// direction, as a growable bytes.Buffer, for tests that should not
// touch the filesystem.
type MemSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	rc     *ref.Counted
	closed bool
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink() *MemSink {
	s := &MemSink{}
	s.rc = ref.New(func() error { s.closed = true; return nil })
	return s
}

func (s *MemSink) Lwrite(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("logio: sink is closed")
	}
	_, err := s.buf.Write(b)
	return err
}

func (s *MemSink) Ltell() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.buf.Len()), nil
}

func (s *MemSink) Lclose(sync bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemSink) Ref()         { s.rc.Ref() }
func (s *MemSink) Unref() error { return s.rc.Unref() }

// Bytes returns a snapshot of the sink's contents, used to hand data to
// a MemSource for the matching read path.
func (s *MemSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}

// MemSource is an in-memory LogSource backed by a fixed byte slice.
type MemSource struct {
	mu   sync.Mutex
	data []byte
	rc   *ref.Counted
}

// NewMemSource wraps data (not copied) as a LogSource.
func NewMemSource(data []byte) *MemSource {
	src := &MemSource{data: data}
	src.rc = ref.New(func() error { return nil })
	return src
}

func (s *MemSource) Read(offset uint64, n uint64, scratch []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset+n > uint64(len(s.data)) {
		return nil, fmt.Errorf("logio: short read at offset %d len %d (size %d)", offset, n, len(s.data))
	}
	return s.data[offset : offset+n], nil
}

func (s *MemSource) Size() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.data)), nil
}

func (s *MemSource) Ref()         { s.rc.Ref() }
func (s *MemSource) Unref() error { return s.rc.Unref() }
