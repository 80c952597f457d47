package kernel

import (
	"context"
	"sync"
	"sync/atomic"
)

// TimelineState is a timeline worker's current phase.
type TimelineState int32

const (
	StateInitializing TimelineState = iota
	StateBlocked
	StateRunning
	StateWaiting
)

func (s TimelineState) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateBlocked:
		return "Blocked"
	case StateRunning:
		return "Running"
	case StateWaiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

type pendingDelayChange struct {
	apply func()
}

// Timeline is one simulation worker goroutine: it owns a local event
// queue, a monotone clock, the entities aligned to it, and the
// bookkeeping needed for composite synchronization and dynamic channel
// graph reconfiguration.
type Timeline struct {
	id TimelineID
	w  *world

	clock     atomic.Int64
	windowEnd atomic.Int64
	state     atomic.Int32
	seq       atomic.Uint64

	queue *EventQueue

	entities []*Entity

	currentActiveChannel      InChannelID
	currentActiveChannelValid bool

	graphMu           sync.Mutex
	minCrossDelay     Tick
	channelsAtMinimum int
	recomputeMinDelay bool
	channelsToMap     []func()
	delaysToChange    []pendingDelayChange

	outAppt map[TimelineID]*apptSlot
	inAppt  map[TimelineID]*apptSlot

	windowBarrier Barrier
	bottomBarrier Barrier
	topBarrier    Barrier
}

// ID returns the timeline's arena index.
func (tl *Timeline) ID() TimelineID { return tl.id }

// Clock returns the timeline's current virtual time.
func (tl *Timeline) Clock() Tick { return Tick(tl.clock.Load()) }

// WindowEnd returns the exclusive upper bound of the timeline's current
// synchronization window.
func (tl *Timeline) WindowEnd() Tick { return Tick(tl.windowEnd.Load()) }

// State returns the timeline's current lifecycle state.
func (tl *Timeline) State() TimelineState { return TimelineState(tl.state.Load()) }

func (tl *Timeline) setState(s TimelineState) { tl.state.Store(int32(s)) }

func (tl *Timeline) nextSeq() uint64 { return tl.seq.Add(1) - 1 }

func (tl *Timeline) ctx() context.Context { return context.Background() }

// newTimeline allocates a timeline with id. Its barriers are assigned
// separately by the Interface once every timeline in the pack exists,
// since all of them share the same three Barrier instances.
func newTimeline(id TimelineID, w *world) *Timeline {
	tl := &Timeline{
		id:            id,
		w:             w,
		queue:         NewEventQueue(),
		minCrossDelay: NoTime,
		outAppt:       map[TimelineID]*apptSlot{},
		inAppt:        map[TimelineID]*apptSlot{},
	}
	tl.currentActiveChannel = noInChannel
	tl.setState(StateInitializing)
	return tl
}

func (tl *Timeline) deferMapChange(apply func()) {
	tl.graphMu.Lock()
	tl.channelsToMap = append(tl.channelsToMap, apply)
	tl.graphMu.Unlock()
}

// applyDelayChange implements the immediate-vs-deferred rule for a
// delay decrease/increase: increases always apply now;
// decreases apply now only if they don't undercut the timeline's
// current min_cross_delay, or the timeline isn't Running, or the
// change can't retro-invalidate the current window.
func (tl *Timeline) applyDelayChange(oldTotal, newTotal Tick, apply func()) Tick {
	increase := newTotal >= oldTotal
	if increase {
		apply()
		return tl.Clock()
	}

	tl.graphMu.Lock()
	safeVsMinimum := tl.minCrossDelay < 0 || newTotal >= tl.minCrossDelay
	tl.graphMu.Unlock()

	notRunning := tl.State() != StateRunning
	safeVsWindow := tl.Clock()+newTotal >= tl.WindowEnd()

	if safeVsMinimum || notRunning || safeVsWindow {
		apply()
		return tl.Clock()
	}

	tl.graphMu.Lock()
	tl.recomputeMinDelay = true
	tl.delaysToChange = append(tl.delaysToChange, pendingDelayChange{apply: apply})
	tl.graphMu.Unlock()
	return tl.WindowEnd()
}

// noteMappingAdded updates min_cross_delay bookkeeping for a newly
// added cross-timeline mapping.
func (tl *Timeline) noteMappingAdded(_ TimelineID, total Tick) {
	tl.graphMu.Lock()
	defer tl.graphMu.Unlock()
	switch {
	case tl.minCrossDelay < 0 || total < tl.minCrossDelay:
		tl.minCrossDelay = total
		tl.channelsAtMinimum = 1
	case total == tl.minCrossDelay:
		tl.channelsAtMinimum++
	}
}

// noteMappingRemoved updates min_cross_delay bookkeeping for a removed
// cross-timeline mapping.
func (tl *Timeline) noteMappingRemoved(total Tick) {
	tl.graphMu.Lock()
	defer tl.graphMu.Unlock()
	if tl.minCrossDelay >= 0 && total == tl.minCrossDelay {
		tl.channelsAtMinimum--
		if tl.channelsAtMinimum <= 0 {
			tl.recomputeMinDelay = true
		}
	}
}

// recomputeMinCrossDelay walks every out-channel owned by this
// timeline's entities and re-derives min_cross_delay and
// channels_at_minimum from scratch.
func (tl *Timeline) recomputeMinCrossDelay() {
	var min Tick = NoTime
	count := 0
	for _, e := range tl.entities {
		for _, oc := range e.outChannels {
			for _, m := range oc.mappingsSnapshot() {
				if m.in.entity.timeline == tl {
					continue
				}
				total := m.totalCrossDelay(oc.minWriteDelay)
				switch {
				case min < 0 || total < min:
					min = total
					count = 1
				case total == min:
					count++
				}
			}
		}
	}
	tl.graphMu.Lock()
	tl.minCrossDelay = min
	tl.channelsAtMinimum = count
	tl.recomputeMinDelay = false
	tl.graphMu.Unlock()
}

func (tl *Timeline) applyDeferredMapChanges() {
	tl.graphMu.Lock()
	pending := tl.channelsToMap
	tl.channelsToMap = nil
	tl.graphMu.Unlock()
	for _, apply := range pending {
		apply()
	}
}

func (tl *Timeline) applyDeferredDelayChanges() {
	tl.graphMu.Lock()
	pending := tl.delaysToChange
	tl.delaysToChange = nil
	tl.graphMu.Unlock()
	for _, p := range pending {
		p.apply()
	}
}

// invoke runs a process body, enforcing the wrong-timeline invariant
// and tracking which in-channel, if any, triggered it
// for the self-rebind guard.
func (tl *Timeline) invoke(proc *Process, act Activation, activeChannel InChannelID) {
	if proc.entity.timeline != tl {
		invariantViolation("process %q scheduled on timeline %d but owned by timeline %d", proc.name, tl.id, proc.entity.timeline.id)
	}
	prevChan, prevValid := tl.currentActiveChannel, tl.currentActiveChannelValid
	tl.currentActiveChannel = activeChannel
	tl.currentActiveChannelValid = activeChannel != noInChannel
	proc.fn(act, activeChannel)
	tl.currentActiveChannel, tl.currentActiveChannelValid = prevChan, prevValid
}

// dispatch executes a single dequeued event.
func (tl *Timeline) dispatch(e *Event) {
	switch e.Kind() {
	case EventTimeout:
		tl.invoke(tl.w.process(e.Process), e.Activation, noInChannel)
		tl.w.metrics.recordWork()
	case EventActivate:
		ch := tl.w.inChannel(e.InChannel)
		for _, entry := range ch.snapshotFanout() {
			ev := newEvent(EventExecActivate)
			ev.Time = e.Time
			ev.TieBreak = userTieBreak(entry.priority)
			ev.Process = entry.process
			ev.InChannel = e.InChannel
			ev.Activation = e.Activation
			ev.HomeTimeline = tl.id
			ev.UserPriority = int(entry.priority)
			ev.Seq = tl.nextSeq()
			tl.queue.Push(ev)
		}
		tl.w.metrics.recordSync()
	case EventExecActivate:
		tl.invoke(tl.w.process(e.Process), e.Activation, e.InChannel)
		tl.w.metrics.recordWork()
	case EventBind:
		tl.w.inChannel(e.InChannel).applyDeferredBind(e.bindEntry)
		tl.w.metrics.recordSync()
	case EventMakeAppt:
		tl.handleMakeAppt(e.ApptPeer)
		tl.w.metrics.recordSync()
	case EventWaitAppt:
		tl.handleWaitAppt(e.ApptPeer)
		tl.w.metrics.recordSync()
	case EventCancelled:
		// no-op
	}
}

// syncWindow executes every event with time < window_end, then applies
// deferred channel-graph mutations.
func (tl *Timeline) syncWindow() {
	windowEnd := tl.WindowEnd()
	for {
		e := tl.queue.Peek()
		if e == nil || e.Time >= windowEnd {
			break
		}
		tl.queue.Pop()
		if e.Kind() == EventCancelled {
			continue
		}
		tl.clock.Store(int64(e.Time))
		tl.dispatch(e)
	}

	tl.applyDeferredMapChanges()
	tl.applyDeferredDelayChanges()

	tl.graphMu.Lock()
	needRecompute := tl.recomputeMinDelay
	tl.graphMu.Unlock()
	if needRecompute {
		tl.recomputeMinCrossDelay()
	}

	if windowEnd > 0 {
		tl.clock.Store(int64(windowEnd - 1))
	}
}

// offerNext computes this timeline's offer to the bottom barrier's
// min-reduction: the time of its earliest event plus its minimum
// outgoing cross-timeline delay. A timeline poses no risk of handing a
// straggler event to another timeline unless it both has a pending
// event and has at least one outbound cross-timeline mapping, so
// either condition failing means "no constraint" (-1, excluded from
// the reduction) rather than a finite stand-in value: a local event
// with no outbound mapping can never race a cross-timeline delivery,
// and offering its own time anyway would pin window_end at that time
// forever once the timeline's clock catches up to it.
func (tl *Timeline) offerNext() int64 {
	peek := tl.queue.Peek()
	tl.graphMu.Lock()
	minCross := tl.minCrossDelay
	tl.graphMu.Unlock()
	if peek != nil && minCross >= 0 {
		return int64(peek.Time + minCross)
	}
	return -1
}

// run is the per-timeline worker loop: wait for an epoch, repeatedly
// offer the next event time to the bottom barrier, execute everything
// up to the resulting window end, then rendezvous again.
func (tl *Timeline) run() {
	for {
		tl.windowBarrier.Wait(-1)
		epochStop, action, stopFn := tl.w.readEpoch()

		for {
			tl.queue.DrainInbox()
			tl.setState(StateBlocked)

			offer := tl.offerNext()
			tl.bottomBarrier.Wait(offer)
			globalMin := tl.bottomBarrier.Min()

			var windowEnd Tick
			if globalMin < 0 {
				windowEnd = epochStop
			} else if Tick(globalMin) < epochStop {
				windowEnd = Tick(globalMin)
			} else {
				windowEnd = epochStop
			}

			if windowEnd <= tl.Clock() {
				// EmptyHorizon recovery: if this timeline
				// itself is caught up and idle, promote straight to
				// epoch_stop rather than spinning on a zero-length
				// window; a timeline that still has pending work at a
				// non-advancing horizon is a genuine invariant
				// violation.
				if tl.queue.Empty() {
					windowEnd = epochStop
				} else if windowEnd <= tl.Clock() {
					invariantViolation("timeline %d: non-positive window reduction with pending events", tl.id)
				}
			}

			tl.windowEnd.Store(int64(windowEnd))
			tl.setState(StateRunning)
			tl.syncWindow()
			tl.setState(StateBlocked)

			stop := windowEnd >= epochStop
			if action == actionStopFunction && stopFn != nil && stopFn() {
				stop = true
			}

			if stop {
				tl.windowBarrier.Wait(int64(tl.Clock()))
				break
			}
			tl.topBarrier.Wait(-1)
		}
	}
}
