// Package ref implements the reference-counted lifetime spec.md §5/§6
// requires of LogSink/LogSource implementations: the logger and the
// reader may each hold a reference to the same underlying sink or
// source, and the last Unref triggers the real close.
package ref

import "sync/atomic"

// Counted tracks outstanding references to a closer. It is safe for
// concurrent use.
type Counted struct {
	n      int64
	closer func() error
}

// New returns a Counted with one initial reference, invoking closer
// when the last reference is released.
func New(closer func() error) *Counted {
	return &Counted{n: 1, closer: closer}
}

// Ref adds one reference.
func (c *Counted) Ref() {
	atomic.AddInt64(&c.n, 1)
}

// Unref releases one reference, closing the underlying resource once
// the count reaches zero.
func (c *Counted) Unref() error {
	if atomic.AddInt64(&c.n, -1) == 0 {
		return c.closer()
	}
	return nil
}
