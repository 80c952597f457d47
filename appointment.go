package kernel

import "sync"

// apptSlot is a single directed appointment between an ordered timeline
// pair (A, B): A's promise to B that it will not produce cross-timeline
// events for B earlier than Appointment, plus the buffer of
// sub-window events A has queued for B while that promise holds. The
// same *apptSlot is shared: it is A.outAppt[B] and B.inAppt[A] at
// once, so both sides see the same mutex and condition variable.
type apptSlot struct {
	mu          sync.Mutex
	cond        *sync.Cond
	appointment Tick
	waiting     bool
	events      []*Event
	lookahead   Tick
}

func newApptSlot(lookahead Tick) *apptSlot {
	s := &apptSlot{appointment: NoTime, lookahead: lookahead}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// hasApptSlot reports whether an appointment has been set up from this
// timeline to peer.
func (tl *Timeline) hasApptSlot(peer TimelineID) bool {
	_, ok := tl.outAppt[peer]
	return ok
}

func (tl *Timeline) outApptSlot(peer TimelineID) *apptSlot { return tl.outAppt[peer] }

// scheduleMakeAppt enqueues the next MakeAppt for peer, at now()+L.
func (tl *Timeline) scheduleMakeAppt(peer TimelineID, lookahead Tick) {
	ev := newEvent(EventMakeAppt)
	ev.Time = tl.Clock() + lookahead
	ev.TieBreak = makeApptTieBreak()
	ev.ApptPeer = peer
	ev.HomeTimeline = tl.id
	ev.Seq = tl.nextSeq()
	tl.queue.Push(ev)
}

// scheduleWaitAppt enqueues the next WaitAppt for peer, firing at local
// time == the just-learned appointment.
func (tl *Timeline) scheduleWaitAppt(peer TimelineID, at Tick) {
	ev := newEvent(EventWaitAppt)
	ev.Time = at
	ev.TieBreak = waitApptTieBreak()
	ev.ApptPeer = peer
	ev.HomeTimeline = tl.id
	ev.Seq = tl.nextSeq()
	tl.queue.Push(ev)
}

// handleMakeAppt runs on the A side: publish a new appointment to peer
// B and schedule the next one.
func (tl *Timeline) handleMakeAppt(peer TimelineID) {
	slot := tl.outAppt[peer]
	lookahead := slot.lookahead
	appt := tl.Clock() + lookahead
	slot.mu.Lock()
	slot.appointment = appt
	slot.cond.Signal()
	slot.mu.Unlock()
	tl.scheduleMakeAppt(peer, lookahead)
}

// handleWaitAppt runs on the B side: wait until A's appointment has
// advanced past the local clock, splice A's buffered sub-window events
// into the local heap, then schedule the next WaitAppt.
func (tl *Timeline) handleWaitAppt(peer TimelineID) {
	slot := tl.inAppt[peer]
	slot.mu.Lock()
	for slot.appointment <= tl.Clock() {
		slot.waiting = true
		slot.cond.Wait()
	}
	appt := slot.appointment
	pending := slot.events
	slot.events = nil
	slot.waiting = false
	slot.mu.Unlock()

	for _, e := range pending {
		tl.queue.Push(e)
	}
	tl.scheduleWaitAppt(peer, appt)
}
