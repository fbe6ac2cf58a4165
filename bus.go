package linkbus

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// HandlerFunc processes an unsolicited (non-response) LogicalMessage
// delivered to a registered function code.
type HandlerFunc func(b *Bus, msg LogicalMessage)

// Bus is the Receiver Loop and Dispatcher & Correlator of spec.md §4.4-4.5,
// bound to one Link and one FrameCodec. It owns message-id allocation,
// the function-code handler table, and the pending-response map used to
// satisfy Send's optional bounded wait.
type Bus struct {
	own       Address
	broadcast Address
	link      Link
	codec     FrameCodec
	logger    *log.Logger
	pollEvery time.Duration

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu       sync.Mutex
	handlers map[FunctionCode]HandlerFunc
	pending  map[MessageID]LogicalMessage

	nextID atomic.Uint32
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithLogger overrides the default discard logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithPollInterval overrides the default ~10ms receiver poll bound
// (spec.md §4.4).
func WithPollInterval(d time.Duration) Option {
	return func(b *Bus) { b.pollEvery = d }
}

// NewBus builds a Bus over link using codec, with own as this board's
// address and broadcast as the binding's broadcast address. Handlers may be
// registered with Handle before or after Start; both are always taken
// under the same lock that guards the pending-response map (spec.md §9,
// design note on handler-registration races).
func NewBus(own, broadcast Address, link Link, codec FrameCodec, opts ...Option) *Bus {
	b := &Bus{
		own:       own,
		broadcast: broadcast,
		link:      link,
		codec:     codec,
		logger:    log.New(io.Discard),
		pollEvery: 10 * time.Millisecond,
		handlers:  make(map[FunctionCode]HandlerFunc),
		pending:   make(map[MessageID]LogicalMessage),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle registers h for messages with function code fc. A later call for
// the same fc replaces the previous handler.
func (b *Bus) Handle(fc FunctionCode, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[fc] = h
}

// Own returns this board's own address.
func (b *Bus) Own() Address { return b.own }

// Start spawns the receiver loop goroutine. It returns ErrAlreadyListening
// if the bus is already running.
func (b *Bus) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.receiveLoop(b.stopCh, b.doneCh)
	return nil
}

// Stop signals the receiver loop to exit and joins it. It is idempotent:
// calling Stop on an already-stopped Bus is a no-op.
func (b *Bus) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	close(b.stopCh)
	<-b.doneCh
}

// Close stops the receiver loop (if running) and closes the underlying
// Link.
func (b *Bus) Close() error {
	b.Stop()
	return b.link.Close()
}

// allocID returns the next message id, wrapping at the codec's wire width.
func (b *Bus) allocID() MessageID {
	width := b.codec.MessageIDBits()
	mod := uint32(1) << width
	v := b.nextID.Add(1) % mod
	return MessageID(v)
}

// Send encodes and writes a message to dst. If wait > 0, Send blocks (by
// short polling, per spec.md §5) for a response carrying the same message
// id, returning it, ErrTimeout if wait elapses first, or ErrCancelled if
// the bus is stopped while waiting. If wait == 0, Send returns immediately
// after the write with a zero LogicalMessage.
func (b *Bus) Send(dst Address, fc FunctionCode, payload []byte, wait time.Duration) (LogicalMessage, error) {
	return b.send(dst, fc, payload, 0, 0, false, nil, wait)
}

// Reply sends a response to req, copying its message id so the original
// sender's Send can correlate it.
func (b *Bus) Reply(req LogicalMessage, payload []byte) error {
	id := req.MessageID
	_, err := b.send(req.Sender, req.Function, payload, req.FunctionMode, req.Priority, true, &id, 0)
	return err
}

func (b *Bus) send(dst Address, fc FunctionCode, payload []byte, mode FunctionMode, prio Priority, isResponse bool, fixedID *MessageID, wait time.Duration) (LogicalMessage, error) {
	id := b.allocID()
	if fixedID != nil {
		id = *fixedID
	}
	msg := LogicalMessage{
		Receiver:     dst,
		Sender:       b.own,
		Function:     fc,
		FunctionMode: mode,
		Priority:     prio,
		MessageID:    id,
		IsResponse:   isResponse,
		Payload:      payload,
	}
	wire, err := b.codec.Encode(msg)
	if err != nil {
		return LogicalMessage{}, err
	}
	if err := b.link.Write(wire); err != nil {
		return LogicalMessage{}, WrapErr(ErrWriteFailed, err)
	}
	if wait <= 0 {
		return LogicalMessage{}, nil
	}
	deadline := time.Now().Add(wait)
	for {
		b.mu.Lock()
		if resp, ok := b.pending[id]; ok {
			delete(b.pending, id)
			b.mu.Unlock()
			return resp, nil
		}
		b.mu.Unlock()
		if !b.running.Load() {
			return LogicalMessage{}, ErrCancelled
		}
		if time.Now().After(deadline) {
			return LogicalMessage{}, ErrTimeout
		}
		time.Sleep(b.pollEvery)
	}
}

// dispatch routes a decoded message: responses are stashed in the pending
// map for a waiting Send; unsolicited messages go to the handler
// registered for their function code, if any.
func (b *Bus) dispatch(msg LogicalMessage) {
	if msg.IsResponse {
		b.mu.Lock()
		b.pending[msg.MessageID] = msg
		b.mu.Unlock()
		return
	}
	b.mu.Lock()
	h := b.handlers[msg.Function]
	b.mu.Unlock()
	if h == nil {
		b.logger.Warn("no handler registered", "function", msg.Function, "sender", msg.Sender)
		return
	}
	h(b, msg)
}
