package linkbus

import (
	"errors"
	"sync"
	"time"
)

// LoopbackMedium is an in-memory byte medium for tests: any bytes written
// by one endpoint are delivered to every other endpoint open on the same
// medium, the way every board on a real CAN bus or an XBee broadcast
// channel observes every transmission. Adapted from the teacher's
// LoopbackBus (a Frame-level broadcast bus) down to the byte-pipe level
// Link expects, since the FrameCodec now owns all framing.
type LoopbackMedium struct {
	mu        sync.Mutex
	closed    bool
	endpoints map[*LoopbackLink]struct{}

	// writeMu serializes fan-out so concurrent writers never interleave
	// bytes in a receiver's queue.
	writeMu sync.Mutex
}

// NewLoopbackMedium creates an empty medium.
func NewLoopbackMedium() *LoopbackMedium {
	return &LoopbackMedium{endpoints: make(map[*LoopbackLink]struct{})}
}

// Open attaches a new Link endpoint to the medium.
func (m *LoopbackMedium) Open() *LoopbackLink {
	ep := &LoopbackLink{
		medium: m,
		queue:  make(chan byte, 4096),
		closed: make(chan struct{}),
	}
	m.mu.Lock()
	if !m.closed {
		m.endpoints[ep] = struct{}{}
	} else {
		close(ep.closed)
	}
	m.mu.Unlock()
	return ep
}

// Close detaches and closes every endpoint on the medium.
func (m *LoopbackMedium) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for ep := range m.endpoints {
		ep.closeNoLock()
	}
	m.endpoints = nil
}

// LoopbackLink is one endpoint of a LoopbackMedium, implementing Link.
type LoopbackLink struct {
	medium *LoopbackMedium
	queue  chan byte

	mu        sync.Mutex
	dead      bool
	closed    chan struct{}
	lookahead []byte
}

func (l *LoopbackLink) Available(timeout time.Duration) (bool, error) {
	select {
	case b := <-l.queue:
		// Peek by pushing back; loopback has no true peek so we stash the
		// byte in a 1-slot lookahead to preserve ReadInto's ordering.
		l.mu.Lock()
		l.lookahead = append(l.lookahead, b)
		l.mu.Unlock()
		return true, nil
	case <-l.closed:
		return false, WrapErr(ErrReadFailed, errLoopbackClosed)
	case <-time.After(timeout):
		l.mu.Lock()
		has := len(l.lookahead) > 0
		l.mu.Unlock()
		return has, nil
	}
}

func (l *LoopbackLink) ReadInto(buf []byte) (int, error) {
	l.mu.Lock()
	n := copy(buf, l.lookahead)
	l.lookahead = l.lookahead[n:]
	l.mu.Unlock()
	for n < len(buf) {
		select {
		case b := <-l.queue:
			buf[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (l *LoopbackLink) Write(b []byte) error {
	l.mu.Lock()
	if l.dead {
		l.mu.Unlock()
		return WrapErr(ErrWriteFailed, errLoopbackClosed)
	}
	l.mu.Unlock()

	l.medium.mu.Lock()
	if l.medium.closed {
		l.medium.mu.Unlock()
		return WrapErr(ErrWriteFailed, errLoopbackClosed)
	}
	targets := make([]*LoopbackLink, 0, len(l.medium.endpoints))
	for ep := range l.medium.endpoints {
		if ep != l {
			targets = append(targets, ep)
		}
	}
	l.medium.mu.Unlock()

	l.medium.writeMu.Lock()
	defer l.medium.writeMu.Unlock()
	for _, t := range targets {
		for _, by := range b {
			select {
			case t.queue <- by:
			case <-t.closed:
			}
		}
	}
	return nil
}

func (l *LoopbackLink) Close() error {
	l.medium.mu.Lock()
	l.closeNoLock()
	delete(l.medium.endpoints, l)
	l.medium.mu.Unlock()
	return nil
}

func (l *LoopbackLink) closeNoLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dead {
		return
	}
	l.dead = true
	close(l.closed)
}

var errLoopbackClosed = errors.New("linkbus: loopback endpoint closed")
