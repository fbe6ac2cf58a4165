package linkbus

// MessageFilter is a composable predicate over a LogicalMessage, useful for
// diagnostics and for tests that observe traffic through LoopbackLink
// without going through the dispatcher's handler table (adapted from the
// teacher's FrameFilter, generalized from CAN identifiers to the binding-
// independent LogicalMessage).
type MessageFilter func(LogicalMessage) bool

// BySender matches messages from the given address.
func BySender(addr Address) MessageFilter {
	return func(m LogicalMessage) bool { return m.Sender == addr }
}

// ByReceiver matches messages addressed to addr (not accounting for
// broadcast).
func ByReceiver(addr Address) MessageFilter {
	return func(m LogicalMessage) bool { return m.Receiver == addr }
}

// ByFunction matches messages with the exact function code.
func ByFunction(fc FunctionCode) MessageFilter {
	return func(m LogicalMessage) bool { return m.Function == fc }
}

// ByFunctions matches any of the provided function codes.
func ByFunctions(fcs ...FunctionCode) MessageFilter {
	set := make(map[FunctionCode]struct{}, len(fcs))
	for _, fc := range fcs {
		set[fc] = struct{}{}
	}
	return func(m LogicalMessage) bool {
		_, ok := set[m.Function]
		return ok
	}
}

// ByMessageID matches the exact correlation id, useful for waiting on one
// specific response outside of Bus.Send's own wait.
func ByMessageID(id MessageID) MessageFilter {
	return func(m LogicalMessage) bool { return m.MessageID == id }
}

// ResponsesOnly matches messages with the response flag set.
func ResponsesOnly() MessageFilter {
	return func(m LogicalMessage) bool { return m.IsResponse }
}

// RequestsOnly matches messages without the response flag set.
func RequestsOnly() MessageFilter {
	return func(m LogicalMessage) bool { return !m.IsResponse }
}

// PayloadAtMost matches messages with payload length <= n.
func PayloadAtMost(n int) MessageFilter {
	return func(m LogicalMessage) bool { return len(m.Payload) <= n }
}

// And composes two filters; the result matches when both match.
func And(a, b MessageFilter) MessageFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(m LogicalMessage) bool { return a(m) && b(m) }
	}
}

// Or composes two filters; the result matches when either matches.
func Or(a, b MessageFilter) MessageFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(m LogicalMessage) bool { return a(m) || b(m) }
	}
}

// Not inverts a filter.
func Not(a MessageFilter) MessageFilter {
	if a == nil {
		return func(LogicalMessage) bool { return true }
	}
	return func(m LogicalMessage) bool { return !a(m) }
}
