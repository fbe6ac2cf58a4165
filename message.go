package linkbus

import "fmt"

// Address identifies a peer board on the bus. Its valid range and its
// broadcast value are binding-specific (see can.Layout and xbee's fixed
// 8-bit address space) and are supplied to NewBus, not hard-coded here.
type Address uint8

// FunctionCode identifies the logical message kind. CAN layout A packs this
// in 8 bits, CAN layout B in 10, XBee in 8; the core only ever compares and
// routes on it, never interprets its value.
type FunctionCode uint16

// FunctionMode is the CAN layout B 4-bit function-mode field. Unused (zero)
// under layout A and under the XBee binding.
type FunctionMode uint8

// Priority is the CAN layout B 2-bit priority field. Unused (zero) under
// layout A and under the XBee binding.
type Priority uint8

// MessageID correlates a response to the request that produced it. Its
// wrap width is binding-specific (4 bits on CAN, 8 bits on XBee); Bus
// allocates and wraps it per the codec's MessageIDBits.
type MessageID uint8

// LogicalMessage is the binding-independent message the dispatcher and a
// handler see: the wire-level framing (CAN identifier bit-packing, XBee
// SOH/EOT delimiting and checksums) has already been stripped away by the
// FrameCodec by the time a LogicalMessage exists.
type LogicalMessage struct {
	Receiver     Address
	Sender       Address
	Function     FunctionCode
	FunctionMode FunctionMode
	Priority     Priority
	MessageID    MessageID
	IsResponse   bool
	Payload      []byte
}

func (m LogicalMessage) String() string {
	dir := "req"
	if m.IsResponse {
		dir = "resp"
	}
	return fmt.Sprintf("linkbus.Message{%s->%s fn=%d mode=%d prio=%d id=%d %s payload=%d bytes}",
		m.Sender, m.Receiver, m.Function, m.FunctionMode, m.Priority, m.MessageID, dir, len(m.Payload))
}
