package linkbus

import "time"

// Link is the minimal Transport Adapter interface spec.md §4.3 names: a
// non-blocking-friendly byte pipe the receiver loop polls on a short
// timeout, plus a write and a close. Concrete bindings (can.Socket,
// xbee.Serial) implement this; the core never depends on sockets, serial
// devices, or any OS-specific type.
type Link interface {
	// Available blocks for at most timeout waiting for readable data, and
	// reports whether any is ready. It must never block past timeout; the
	// receiver loop relies on that bound to observe cancellation promptly
	// (spec.md §4.4, §5).
	Available(timeout time.Duration) (bool, error)

	// ReadInto reads whatever is currently available into buf and returns
	// the number of bytes read. It must not block once Available has
	// reported readiness.
	ReadInto(buf []byte) (int, error)

	// Write sends b in full or returns an error; partial writes are not a
	// success the caller can recover from, since byte-level framing is not
	// self-resynchronizing mid-write.
	Write(b []byte) error

	// Close releases the underlying device. Closing twice must not panic.
	Close() error
}
