package can

import (
	"testing"

	"github.com/robocorp-link/linkbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCodecPayloadTooLong(t *testing.T) {
	codec := NewCodec(LayoutA)
	_, err := codec.Encode(linkbus.LogicalMessage{Payload: make([]byte, 9)})
	assert.ErrorIs(t, err, linkbus.ErrPayloadTooLong)
}

func TestCodecPayloadBoundary(t *testing.T) {
	codec := NewCodec(LayoutA)

	_, err := codec.Encode(linkbus.LogicalMessage{Payload: nil})
	require.NoError(t, err)

	_, err = codec.Encode(linkbus.LogicalMessage{Payload: make([]byte, 8)})
	require.NoError(t, err)

	_, err = codec.Encode(linkbus.LogicalMessage{Payload: make([]byte, 9)})
	assert.ErrorIs(t, err, linkbus.ErrPayloadTooLong)
}

func TestCodecShortBuffer(t *testing.T) {
	codec := NewCodec(LayoutA)
	_, consumed, err := codec.Decode(make([]byte, 10), 0, 0xFF)
	assert.ErrorIs(t, err, linkbus.ErrShortBuffer)
	assert.Equal(t, 0, consumed)
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec(LayoutA)
	rapid.Check(t, func(rt *rapid.T) {
		msg := linkbus.LogicalMessage{
			Sender:     linkbus.Address(rapid.IntRange(0, 255).Draw(rt, "sender")),
			Receiver:   linkbus.Address(rapid.IntRange(0, 255).Draw(rt, "receiver")),
			Function:   linkbus.FunctionCode(rapid.IntRange(0, 255).Draw(rt, "function")),
			MessageID:  linkbus.MessageID(rapid.IntRange(0, 15).Draw(rt, "msg_id")),
			IsResponse: rapid.Bool().Draw(rt, "is_response"),
			Payload:    rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(rt, "payload"),
		}
		wire, err := codec.Encode(msg)
		require.NoError(rt, err)

		decoded, consumed, err := codec.Decode(wire, msg.Receiver, 0xFF)
		require.NoError(rt, err)
		assert.Equal(rt, len(wire), consumed)
		assert.Equal(rt, msg.Sender, decoded.Sender)
		assert.Equal(rt, msg.Receiver, decoded.Receiver)
		assert.Equal(rt, msg.Function, decoded.Function)
		assert.Equal(rt, msg.MessageID, decoded.MessageID)
		assert.Equal(rt, msg.IsResponse, decoded.IsResponse)
		assert.Equal(rt, msg.Payload, decoded.Payload)
	})
}
