package kernel

// Handle is the cancellation token returned by scheduling primitives.
type Handle struct {
	event        *Event
	time         Tick
	homeTimeline *Timeline
}

// Cancel marks the target event cancelled and reports whether it did
// so. It returns false, with no state change, if the target time is no
// longer strictly greater than the home timeline's clock (the event
// may already have fired or be in the middle of firing). Calling
// Cancel twice is idempotent: the second call always returns false.
func (h Handle) Cancel() bool {
	if h.event == nil || h.homeTimeline == nil {
		return false
	}
	if h.time <= h.homeTimeline.Clock() {
		return false
	}
	return h.event.cancel()
}
