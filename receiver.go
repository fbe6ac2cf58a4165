package linkbus

import (
	"errors"
	"io"
)

// receiveLoop is the Receiver Loop of spec.md §4.4: poll the link on a
// bounded timeout, accumulate bytes, decode zero or more complete frames
// per iteration, and dispatch each. It exits promptly once stopCh closes,
// never blocking past pollEvery, and signals exit via doneCh.
func (b *Bus) receiveLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	var buf []byte
	readBuf := make([]byte, 4096)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		ready, err := b.link.Available(b.pollEvery)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			b.logger.Error("link availability check failed", "error", err)
			continue
		}
		if !ready {
			continue
		}

		n, err := b.link.ReadInto(readBuf)
		if err != nil {
			b.logger.Error("link read failed", "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		buf = append(buf, readBuf[:n]...)
		buf = b.drainFrames(buf)
	}
}

// drainFrames decodes as many complete frames as buf holds, dispatching
// each, and returns the unconsumed remainder (a partial trailing frame, or
// nothing).
func (b *Bus) drainFrames(buf []byte) []byte {
	for len(buf) > 0 {
		msg, consumed, err := b.codec.Decode(buf, b.own, b.broadcast)
		switch {
		case err == nil:
			buf = buf[consumed:]
			b.dispatch(msg)
		case errors.Is(err, ErrShortBuffer):
			return buf
		case errors.Is(err, ErrAddressMismatch):
			b.logger.Debug("dropping frame addressed to another peer", "receiver", msg.Receiver)
			buf = buf[consumed:]
		default:
			b.logger.Warn("dropping malformed frame", "error", err)
			if consumed <= 0 {
				consumed = 1
			}
			buf = buf[consumed:]
		}
	}
	return buf
}
