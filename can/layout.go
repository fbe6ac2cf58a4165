// Package can implements the CAN binding of linkbus: bit-packing a
// LogicalMessage into a 29-bit extended CAN identifier under one of two
// historical layouts, and driving a raw CAN_RAW socket as the Transport
// Adapter.
package can

import "github.com/robocorp-link/linkbus"

// Layout selects one of the two identifier bit-packings spec.md §4.1
// names. The two were two generations of the same robot's CAN bus, never
// mixed at runtime (original_source/CAN/include/can_vars.h vs.
// original_source/CAN/Raspberry/include/define_can.h) — Layout is a
// constructor parameter, not a per-message choice.
type Layout int

const (
	// LayoutA packs 8-bit addresses and an 8-bit function code.
	LayoutA Layout = iota
	// LayoutB packs a 2-bit priority, 4-bit addresses, a 4-bit function
	// mode, and a 10-bit function code.
	LayoutB
)

func (l Layout) String() string {
	if l == LayoutB {
		return "B"
	}
	return "A"
}

// field describes one bit-packed identifier field: its width in bits and
// its LSB-relative shift.
type field struct {
	width uint
	shift uint
}

func (f field) max() uint32 { return (uint32(1) << f.width) - 1 }

func (f field) fits(v uint32) bool { return v <= f.max() }

func (f field) pack(v uint32) uint32 { return (v & f.max()) << f.shift }

func (f field) unpack(id uint32) uint32 { return (id >> f.shift) & f.max() }

// Layout A fields (spec.md §4.1).
var (
	aEmit     = field{width: 8, shift: 21}
	aReceiver = field{width: 8, shift: 13}
	aFunction = field{width: 8, shift: 5}
	aMsgID    = field{width: 4, shift: 1}
	aResponse = field{width: 1, shift: 0}
)

// Layout B fields (spec.md §4.1).
var (
	bPriority = field{width: 2, shift: 27}
	bEmit     = field{width: 4, shift: 23}
	bReceiver = field{width: 4, shift: 19}
	bMode     = field{width: 4, shift: 15}
	bFunction = field{width: 10, shift: 5}
	bMsgID    = field{width: 4, shift: 1}
	bResponse = field{width: 1, shift: 0}
)

// MessageIDBits returns 4: both CAN layouts give the message id 4 bits.
func (l Layout) MessageIDBits() uint { return 4 }

// Pack builds the 29-bit extended identifier for msg under layout l. It
// returns ErrFieldOverflow if any field's value exceeds the layout's bit
// width.
func (l Layout) Pack(msg linkbus.LogicalMessage) (uint32, error) {
	resp := uint32(0)
	if msg.IsResponse {
		resp = 1
	}
	switch l {
	case LayoutA:
		if !aEmit.fits(uint32(msg.Sender)) || !aReceiver.fits(uint32(msg.Receiver)) ||
			!aFunction.fits(uint32(msg.Function)) || !aMsgID.fits(uint32(msg.MessageID)) {
			return 0, linkbus.ErrFieldOverflow
		}
		return aEmit.pack(uint32(msg.Sender)) |
			aReceiver.pack(uint32(msg.Receiver)) |
			aFunction.pack(uint32(msg.Function)) |
			aMsgID.pack(uint32(msg.MessageID)) |
			aResponse.pack(resp), nil
	case LayoutB:
		if !bPriority.fits(uint32(msg.Priority)) || !bEmit.fits(uint32(msg.Sender)) ||
			!bReceiver.fits(uint32(msg.Receiver)) || !bMode.fits(uint32(msg.FunctionMode)) ||
			!bFunction.fits(uint32(msg.Function)) || !bMsgID.fits(uint32(msg.MessageID)) {
			return 0, linkbus.ErrFieldOverflow
		}
		return bPriority.pack(uint32(msg.Priority)) |
			bEmit.pack(uint32(msg.Sender)) |
			bReceiver.pack(uint32(msg.Receiver)) |
			bMode.pack(uint32(msg.FunctionMode)) |
			bFunction.pack(uint32(msg.Function)) |
			bMsgID.pack(uint32(msg.MessageID)) |
			bResponse.pack(resp), nil
	default:
		return 0, linkbus.ErrFieldOverflow
	}
}

// Unpack decomposes a 29-bit extended identifier into a partially-filled
// LogicalMessage (payload is not part of the identifier and is left
// empty). Unpack never errors: every bit pattern is a valid decomposition
// under mask-then-shift.
func (l Layout) Unpack(id uint32) linkbus.LogicalMessage {
	var m linkbus.LogicalMessage
	switch l {
	case LayoutA:
		m.Sender = linkbus.Address(aEmit.unpack(id))
		m.Receiver = linkbus.Address(aReceiver.unpack(id))
		m.Function = linkbus.FunctionCode(aFunction.unpack(id))
		m.MessageID = linkbus.MessageID(aMsgID.unpack(id))
		m.IsResponse = aResponse.unpack(id) != 0
	case LayoutB:
		m.Priority = linkbus.Priority(bPriority.unpack(id))
		m.Sender = linkbus.Address(bEmit.unpack(id))
		m.Receiver = linkbus.Address(bReceiver.unpack(id))
		m.FunctionMode = linkbus.FunctionMode(bMode.unpack(id))
		m.Function = linkbus.FunctionCode(bFunction.unpack(id))
		m.MessageID = linkbus.MessageID(bMsgID.unpack(id))
		m.IsResponse = bResponse.unpack(id) != 0
	}
	return m
}
