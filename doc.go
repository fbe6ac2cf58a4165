// Package linkbus is the framing, codec, and dispatch engine shared by the
// CAN and XBee bindings of an inter-board robotics message bus.
//
// It provides the bit-packed/bit-exact frame codec contract (FrameCodec), a
// minimal link abstraction for the underlying transport (Link), a
// non-blocking receiver loop, a function-code dispatch table, and a
// request/response correlator with bounded-wait semantics. The concrete
// wire layouts live in the can and xbee subpackages; this package never
// interprets a function code beyond routing it to a registered handler.
package linkbus
