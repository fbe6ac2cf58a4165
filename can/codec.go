package can

import (
	"encoding/binary"

	"github.com/robocorp-link/linkbus"
)

const (
	canEFFFlag = 0x80000000
	canEFFMask = 0x1FFFFFFF
	frameSize  = 16 // Linux SocketCAN struct can_frame
	maxPayload = 8
)

// Codec implements linkbus.FrameCodec for one of the two CAN identifier
// layouts, encoding/decoding the Linux SocketCAN can_frame wire layout
// (adapted from the teacher's canbus/frame.go MarshalBinary/UnmarshalBinary,
// generalized from the CAN-only Frame type to LogicalMessage via Layout).
type Codec struct {
	Layout Layout
}

// NewCodec returns a FrameCodec for the given layout.
func NewCodec(layout Layout) *Codec {
	return &Codec{Layout: layout}
}

func (c *Codec) MaxPayload() int { return maxPayload }

func (c *Codec) MessageIDBits() uint { return c.Layout.MessageIDBits() }

// Encode packs msg's identifier per the layout and renders the 16-byte
// can_frame: extended-frame flag always set (spec.md §6: "always DATA
// frames", always extended), DLC = payload length, data copied verbatim.
func (c *Codec) Encode(msg linkbus.LogicalMessage) ([]byte, error) {
	if len(msg.Payload) > maxPayload {
		return nil, linkbus.ErrPayloadTooLong
	}
	id, err := c.Layout.Pack(msg)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, frameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id|canEFFFlag)
	buf[4] = uint8(len(msg.Payload))
	copy(buf[8:8+len(msg.Payload)], msg.Payload)
	return buf, nil
}

// Decode reads exactly one can_frame (16 bytes) from the front of buf.
// Since each SocketCAN read() returns exactly one frame, Decode never
// needs to resynchronize mid-buffer.
func (c *Codec) Decode(buf []byte, self, broadcast linkbus.Address) (linkbus.LogicalMessage, int, error) {
	if len(buf) < frameSize {
		return linkbus.LogicalMessage{}, 0, linkbus.ErrShortBuffer
	}
	id := binary.LittleEndian.Uint32(buf[0:4]) & canEFFMask
	dlc := int(buf[4])
	if dlc > maxPayload {
		return linkbus.LogicalMessage{}, frameSize, linkbus.ErrPayloadTooLong
	}
	msg := c.Layout.Unpack(id)
	msg.Payload = append([]byte(nil), buf[8:8+dlc]...)

	if msg.Receiver != self && msg.Receiver != broadcast {
		return msg, frameSize, linkbus.ErrAddressMismatch
	}
	return msg, frameSize, nil
}
