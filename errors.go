package linkbus

import "fmt"

// Kind is the closed set of error categories a binding or the core engine
// can raise. Callers should compare with errors.Is against the matching
// sentinel, not against Kind directly.
type Kind int

const (
	KindOpenFailed Kind = iota
	KindBindFailed
	KindWriteFailed
	KindReadFailed
	KindPayloadTooLong
	KindFieldOverflow
	KindAddressMismatch
	KindFrameTooShort
	KindFrameCorrupted
	KindHeaderChecksumBad
	KindPayloadChecksumBad
	KindTimeout
	KindCancelled
	KindAlreadyListening
	KindATHandshake
)

func (k Kind) String() string {
	switch k {
	case KindOpenFailed:
		return "open_failed"
	case KindBindFailed:
		return "bind_failed"
	case KindWriteFailed:
		return "write_failed"
	case KindReadFailed:
		return "read_failed"
	case KindPayloadTooLong:
		return "payload_too_long"
	case KindFieldOverflow:
		return "field_overflow"
	case KindAddressMismatch:
		return "address_mismatch"
	case KindFrameTooShort:
		return "frame_too_short"
	case KindFrameCorrupted:
		return "frame_corrupted"
	case KindHeaderChecksumBad:
		return "header_checksum_bad"
	case KindPayloadChecksumBad:
		return "payload_checksum_bad"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindAlreadyListening:
		return "already_listening"
	case KindATHandshake:
		return "at_handshake"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by linkbus and its bindings. Step
// is only meaningful for KindATHandshake, naming the AT parameter that
// failed (e.g. "baudrate", "pan_id", "dest_addr_high").
type Error struct {
	Kind Kind
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Step != "" {
		if e.Err != nil {
			return fmt.Sprintf("linkbus: %s[%s]: %v", e.Kind, e.Step, e.Err)
		}
		return fmt.Sprintf("linkbus: %s[%s]", e.Kind, e.Step)
	}
	if e.Err != nil {
		return fmt.Sprintf("linkbus: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("linkbus: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, linkbus.ErrTimeout) style checks work against sentinels
// below without callers needing to type-assert.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Step != "" {
		return e.Kind == t.Kind && e.Step == t.Step
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons. Wrap with WrapErr to attach an
// underlying cause or an AT handshake step name.
var (
	ErrOpenFailed        = &Error{Kind: KindOpenFailed}
	ErrBindFailed        = &Error{Kind: KindBindFailed}
	ErrWriteFailed       = &Error{Kind: KindWriteFailed}
	ErrReadFailed        = &Error{Kind: KindReadFailed}
	ErrPayloadTooLong    = &Error{Kind: KindPayloadTooLong}
	ErrFieldOverflow     = &Error{Kind: KindFieldOverflow}
	ErrAddressMismatch   = &Error{Kind: KindAddressMismatch}
	ErrFrameTooShort     = &Error{Kind: KindFrameTooShort}
	ErrFrameCorrupted    = &Error{Kind: KindFrameCorrupted}
	ErrHeaderChecksumBad = &Error{Kind: KindHeaderChecksumBad}
	ErrPayloadChecksumBad = &Error{Kind: KindPayloadChecksumBad}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrCancelled         = &Error{Kind: KindCancelled}
	ErrAlreadyListening  = &Error{Kind: KindAlreadyListening}
)

// WrapErr attaches cause to a copy of sentinel, preserving its Kind (and
// Step, if any) for errors.Is while giving the message a concrete cause.
func WrapErr(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Step: sentinel.Step, Err: cause}
}

// ATHandshakeErr builds an Error for a failed AT handshake step.
func ATHandshakeErr(step string, cause error) *Error {
	return &Error{Kind: KindATHandshake, Step: step, Err: cause}
}
