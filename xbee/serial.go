package xbee

import (
	"sync"
	"time"

	"github.com/pkg/term"
	"github.com/robocorp-link/linkbus"
)

// Serial is a Link over a 9600-8N1 serial device, the XBee external
// collaborator of spec.md §6. Grounded on
// doismellburning-samoyed/src/serial_port.go's use of github.com/pkg/term,
// which is the same UART-binding library this repo's pack uses elsewhere.
type Serial struct {
	t *term.Term

	mu        sync.Mutex
	lookahead []byte
}

// baud/parity/data/stop bits are fixed per spec.md §4.3/§6.
const (
	baudRate = 9600
)

// OpenSerial opens device, configuring it to the fixed 9600 8N1 parameters
// the XBee binding requires, in raw mode.
func OpenSerial(device string) (*Serial, error) {
	t, err := term.Open(device, term.Speed(baudRate), term.RawMode)
	if err != nil {
		return nil, linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	// A short per-Read timeout lets Available poll without blocking past
	// the receiver loop's ~10ms bound (spec.md §4.4); ReadInto below drains
	// whatever arrived within that window.
	if err := t.SetReadTimeout(5 * time.Millisecond); err != nil {
		t.Close()
		return nil, linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	return &Serial{t: t}, nil
}

// Available performs a bounded read (waiting at most timeout total across
// retries of the underlying short read timeout) and stashes any bytes
// found in a lookahead buffer for the next ReadInto, since pkg/term has no
// separate peek primitive.
func (s *Serial) Available(timeout time.Duration) (bool, error) {
	s.mu.Lock()
	if len(s.lookahead) > 0 {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 256)
	for {
		n, err := s.t.Read(buf)
		if err != nil && n == 0 {
			if time.Now().After(deadline) {
				return false, nil
			}
			continue
		}
		if n > 0 {
			s.mu.Lock()
			s.lookahead = append(s.lookahead, buf[:n]...)
			s.mu.Unlock()
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
	}
}

// ReadInto drains the lookahead buffer filled by Available.
func (s *Serial) ReadInto(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(buf, s.lookahead)
	s.lookahead = s.lookahead[n:]
	return n, nil
}

// Write writes b in full.
func (s *Serial) Write(b []byte) error {
	_, err := s.t.Write(b)
	if err != nil {
		return linkbus.WrapErr(linkbus.ErrWriteFailed, err)
	}
	return nil
}

// WriteString writes literal ASCII, used by the AT handshake.
func (s *Serial) WriteString(str string) error {
	return s.Write([]byte(str))
}

// Flush discards any buffered input, used at the end of the AT handshake
// (spec.md §4.6 step 6).
func (s *Serial) Flush() {
	s.mu.Lock()
	s.lookahead = nil
	s.mu.Unlock()
	buf := make([]byte, 256)
	for {
		n, _ := s.t.Read(buf)
		if n == 0 {
			return
		}
	}
}

// Close closes the underlying device.
func (s *Serial) Close() error {
	return s.t.Close()
}
