package dirstore

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the taxonomy buckets spec.md §7
// enumerates. It exists as a value, not just a set of sentinel errors,
// so callers can branch on category without an errors.Is chain per
// sentinel.
type Kind int

const (
	// KindCorruption covers truncated reads, CRC mismatches, bad
	// footer magic, and handle decoding failures.
	KindCorruption Kind = iota
	// KindAssertionFailed covers encoder limits exceeded
	// (TooManyEpochs, TooManyTables).
	KindAssertionFailed
	// KindBufferFull covers write-path backpressure in non-blocking
	// mode.
	KindBufferFull
	// KindIOError covers failures propagated from a sink or source.
	KindIOError
	// KindInvalidArgument covers an empty key on write, or a
	// duplicate key under unique_keys.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindCorruption:
		return "corruption"
	case KindAssertionFailed:
		return "assertion_failed"
	case KindBufferFull:
		return "buffer_full"
	case KindIOError:
		return "io_error"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the Kind spec.md §7 assigns it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns an *Error of the given kind wrapping err, or nil if err
// is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Sentinel errors surfaced by DirLogger/DirReader per spec.md §7.
var (
	// ErrBufferFull is returned by Add/MakeEpoch/Finish in
	// non-blocking mode when both write buffers are occupied.
	ErrBufferFull = &Error{Kind: KindBufferFull, Err: errors.New("dirstore: buffer full")}
	// ErrTooManyEpochs is returned when num_epochs would exceed the
	// configured cap.
	ErrTooManyEpochs = &Error{Kind: KindAssertionFailed, Err: errors.New("dirstore: too many epochs")}
	// ErrTooManyTables is returned when a single epoch's table count
	// would exceed the configured cap.
	ErrTooManyTables = &Error{Kind: KindAssertionFailed, Err: errors.New("dirstore: too many tables")}
	// ErrClosed is returned by Add, MakeEpoch and Finish when issued
	// after Close.
	ErrClosed = &Error{Kind: KindInvalidArgument, Err: errors.New("dirstore: logger closed")}
	// ErrEmptyKey is returned by Add when the key is empty.
	ErrEmptyKey = &Error{Kind: KindInvalidArgument, Err: errors.New("dirstore: empty key")}
	// ErrBadMagic is returned by Open when the footer magic does not
	// match.
	ErrBadMagic = &Error{Kind: KindCorruption, Err: errors.New("dirstore: bad footer magic")}
	// ErrCorruption is returned on CRC mismatch or a truncated read.
	ErrCorruption = &Error{Kind: KindCorruption, Err: errors.New("dirstore: corruption")}
)
