package kernel

import "sync/atomic"

// EventKind tags what an Event does when it is dispatched.
type EventKind int32

const (
	EventTimeout EventKind = iota
	EventActivate
	EventExecActivate
	EventWaitAppt
	EventMakeAppt
	EventBind
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventTimeout:
		return "Timeout"
	case EventActivate:
		return "Activate"
	case EventExecActivate:
		return "ExecActivate"
	case EventWaitAppt:
		return "WaitAppt"
	case EventMakeAppt:
		return "MakeAppt"
	case EventBind:
		return "Bind"
	case EventCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// priorityBand partitions the tie-break key space into three bands so
// that kernel-internal bookkeeping events have a deterministic order
// relative to user-scheduled events at the same simulated time. Each
// band occupies the high bits of the tie-break key; within
// a band, the low 24 bits order events relative to each other.
type priorityBand int64

const (
	bandSystemBefore priorityBand = 0
	bandUser         priorityBand = 1
	bandSystemAfter  priorityBand = 2

	bandShift = 24
	bandMask  = 0xFFFFFF
)

func tieBreak(band priorityBand, val int64) int64 {
	return int64(band)<<bandShift | (val & bandMask)
}

// userTieBreak maps a user priority p in [0, 2^16-1] into the user band
// using ((p+1)<<8) & 0xFFFFFF. Smaller
// fires earlier, so a smaller p fires earlier too, with one exception:
// the mask wraps p = 2^16-1 to 0, so that priority sorts ahead of p = 0.
func userTieBreak(p uint16) int64 {
	return tieBreak(bandUser, (int64(p)+1)<<8)
}

// minSchedPriority is the base priority appointment events (MakeAppt,
// WaitAppt) are scheduled at within the system-after-user band.
// MakeAppt uses tie-break minSchedPriority-1, WaitAppt uses
// minSchedPriority, so a WaitAppt always yields to a MakeAppt at the
// same instant.
const minSchedPriority = 1 << 16

func makeApptTieBreak() int64 { return tieBreak(bandSystemAfter, minSchedPriority-1) }
func waitApptTieBreak() int64 { return tieBreak(bandSystemAfter, minSchedPriority) }

// activateTieBreak is the system-reserved priority an Activate event
// itself runs at: "the priority that precedes all user-priority events
// at the same time, so fan-outs interleave correctly".
func activateTieBreak() int64 { return tieBreak(bandSystemBefore, 0) }

// bindTieBreak is used for a deferred Bind event scheduled by the
// self-rebind guard: it must run after every event already enqueued
// at the current instant, so it sits at the top of the last band,
// after the appointment events.
func bindTieBreak() int64 { return tieBreak(bandSystemAfter, bandMask) }

// Event is an immutable scheduled work item, except for its Kind which
// may be overwritten exactly once, from its original value to
// EventCancelled, by Handle.Cancel.
type Event struct {
	Time         Tick
	TieBreak     int64
	Seq          uint64
	HomeTimeline TimelineID

	kind atomic.Int32

	Process      ProcessID   // Timeout, ExecActivate
	InChannel    InChannelID // Activate, Bind
	Activation   Activation  // Timeout, Activate, ExecActivate
	ApptPeer     TimelineID  // MakeAppt, WaitAppt
	UserPriority int
	bindEntry    waitEntry // Bind: the deferred entry to insert
}

func newEvent(kind EventKind) *Event {
	e := &Event{}
	e.kind.Store(int32(kind))
	return e
}

// Kind returns the event's current kind. It may observe EventCancelled
// even if the event was created with a different kind.
func (e *Event) Kind() EventKind { return EventKind(e.kind.Load()) }

func (e *Event) cancel() bool {
	for {
		cur := e.kind.Load()
		if cur == int32(EventCancelled) {
			return false
		}
		if e.kind.CompareAndSwap(cur, int32(EventCancelled)) {
			return true
		}
	}
}

// eventLess implements the total order: time ASC, tie_break ASC, seq
// ASC.
func eventLess(a, b *Event) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.TieBreak != b.TieBreak {
		return a.TieBreak < b.TieBreak
	}
	return a.Seq < b.Seq
}
