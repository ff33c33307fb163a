package dirstore

// LogSink is the append-only byte-level log writer spec.md §6 treats as
// an external collaborator. Implementations must guarantee that writes
// are appended in order and that Ltell reflects the number of bytes
// successfully written so far.
type LogSink interface {
	// Lwrite appends b to the log.
	Lwrite(b []byte) error
	// Ltell returns the current length of the log, in bytes.
	Ltell() (uint64, error)
	// Lclose closes the log. If sync is true the implementation should
	// fsync before returning.
	Lclose(sync bool) error
	// Ref adds a reference to the underlying resource.
	Ref()
	// Unref releases a reference, closing the resource once the last
	// reference is released.
	Unref() error
}

// LogSource is the positional byte-level log reader spec.md §6 treats
// as an external collaborator.
type LogSource interface {
	// Read reads n bytes starting at offset. Implementations may return
	// a zero-copy slice into internal storage or fill scratch and
	// return it; callers must not assume either.
	Read(offset uint64, n uint64, scratch []byte) ([]byte, error)
	// Size returns the total size of the log, in bytes.
	Size() (uint64, error)
	// Ref adds a reference to the underlying resource.
	Ref()
	// Unref releases a reference, closing the resource once the last
	// reference is released.
	Unref() error
}
