package linkbus

// ErrShortBuffer is returned by FrameCodec.Decode when buf does not yet
// hold one complete frame. It is not a framing error: the receiver loop
// keeps buf and appends the next read to it. Compare with errors.Is.
var ErrShortBuffer = &Error{Kind: KindFrameTooShort, Step: "short_buffer"}

// FrameCodec is the Frame Codec component of spec.md §4.2: it turns a
// LogicalMessage into wire bytes and back, one binding's way (CAN
// identifier bit-packing, or XBee SOH/EOT framing with dual checksums).
//
// Decode scans from the start of buf for one complete frame. It returns:
//   - a decoded message, the number of bytes consumed, and nil, on success;
//   - a zero message, 0 consumed, and ErrShortBuffer, if buf has no
//     complete frame yet (the caller must retain buf and read more);
//   - a zero message, consumed>0, and a framing error (ErrFrameTooShort
//     beyond recovery, ErrFrameCorrupted, ErrHeaderChecksumBad,
//     ErrPayloadChecksumBad) when a malformed frame was found and should be
//     skipped;
//   - a partially-populated message, consumed>0, and ErrAddressMismatch,
//     when the frame decoded cleanly but addresses another peer and should
//     be silently dropped rather than dispatched.
//
// Implementations must be resynchronizing: on a corrupt frame they should
// consume at least one byte so the receiver loop always makes progress.
type FrameCodec interface {
	// MaxPayload is the largest payload this binding's wire format can
	// carry; Encode rejects longer payloads with ErrPayloadTooLong.
	MaxPayload() int

	// MessageIDBits is the width of the wire message-id field, used by Bus
	// to wrap its allocation counter (4 for CAN, 8 for XBee).
	MessageIDBits() uint

	// Encode renders msg as wire bytes ready for Link.Write, or an error
	// (ErrPayloadTooLong, ErrFieldOverflow) if msg cannot be represented.
	Encode(msg LogicalMessage) ([]byte, error)

	// Decode extracts one frame from the front of buf. self and broadcast
	// are used to decide ErrAddressMismatch; the binding still fully
	// decodes the frame's fields before checking the address so consumed
	// is accurate either way.
	Decode(buf []byte, self, broadcast Address) (msg LogicalMessage, consumed int, err error)
}
