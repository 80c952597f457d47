package kernel

import (
	"context"
	"time"

	"github.com/s3fkernel/kernel/internal/kernellog"
)

// Option configures an Interface at construction time.
type Option func(*world)

// WithBarrierFlavor selects the barrier implementation. Default is
// FlavorCondvar.
func WithBarrierFlavor(f BarrierFlavor) Option { return func(w *world) { w.barrierFlavor = f } }

// WithSyncMode selects pure global-barrier or composite synchronization.
// Default is SyncGlobal.
func WithSyncMode(m SyncMode) Option { return func(w *world) { w.syncMode = m } }

// WithRefCountPayloads selects whether multi-recipient writes share a
// single Activation (true) or give every recipient after the first a
// clone when the Activation implements Cloner (false); an Activation
// without Cloner is shared either way. Default is true.
func WithRefCountPayloads(on bool) Option { return func(w *world) { w.refCountPayloads = on } }

// WithWindowSize overrides the computed window size rather than
// deriving it from timeline count and minimum cross delay.
func WithWindowSize(size Tick) Option { return func(w *world) { w.windowSizeOverride = size } }

// WithLogger sets the kernel's structured logger. Default is a no-op.
func WithLogger(l kernellog.Logger) Option { return func(w *world) { w.logger = l } }

// WithEventEmitter installs an optional observer of kernel lifecycle
// milestones.
func WithEventEmitter(e EventEmitter) Option { return func(w *world) { w.emitter = e } }

// Interface is the kernel's control handle: it owns every timeline and
// drives the simulation forward in epochs.
type Interface struct {
	w *world
}

// NewInterface constructs a kernel with numTimelines worker timelines
// ticking at 10^logTicksPerSec ticks per second.
func NewInterface(numTimelines int, logTicksPerSec uint, opts ...Option) *Interface {
	w := newWorld(numTimelines, Scale{LogTicksPerSecond: logTicksPerSec})
	w.windowSizeOverride = -1
	for _, opt := range opts {
		opt(w)
	}
	w.metrics.startWall = time.Now()

	for i := 0; i < numTimelines; i++ {
		tl := newTimeline(TimelineID(i), w)
		w.timelines = append(w.timelines, tl)
	}

	w.windowBarrier = newBarrier(w.barrierFlavor, numTimelines+1)
	w.bottomBarrier = newBarrier(w.barrierFlavor, numTimelines)
	w.topBarrier = newBarrier(w.barrierFlavor, numTimelines)
	for _, tl := range w.timelines {
		tl.windowBarrier = w.windowBarrier
		tl.bottomBarrier = w.bottomBarrier
		tl.topBarrier = w.topBarrier
	}

	return &Interface{w: w}
}

// GetTimeline returns the i'th timeline.
func (i *Interface) GetTimeline(idx int) *Timeline { return i.w.timelines[idx] }

// NumTimelines returns the number of worker timelines.
func (i *Interface) NumTimelines() int { return len(i.w.timelines) }

// SetLogger replaces the kernel's logger. Must be called before InitModel.
func (i *Interface) SetLogger(l kernellog.Logger) { i.w.logger = l }

// SetEventEmitter installs an optional observer of kernel lifecycle
// milestones. Must be called before InitModel.
func (i *Interface) SetEventEmitter(e EventEmitter) { i.w.emitter = e }

// setupAppointments discovers, for each ordered timeline pair with a
// cross-timeline mapping whose total delay is smaller than window_size,
// the minimum such lookahead, and installs a shared apptSlot plus the
// initial MakeAppt/WaitAppt events for that pair.
func (w *world) setupAppointments() {
	if w.syncMode != SyncComposite || w.windowSize <= 0 {
		return
	}
	type pairKey struct{ a, b TimelineID }
	lookaheads := map[pairKey]Tick{}

	for _, e := range w.entities {
		for _, oc := range e.outChannels {
			for _, m := range oc.mappingsSnapshot() {
				a := oc.entity.timeline.id
				b := m.in.entity.timeline.id
				if a == b {
					continue
				}
				total := m.totalCrossDelay(oc.minWriteDelay)
				if total >= w.windowSize {
					continue
				}
				k := pairKey{a, b}
				if cur, ok := lookaheads[k]; !ok || total < cur {
					lookaheads[k] = total
				}
			}
		}
	}

	for k, lookahead := range lookaheads {
		a := w.timeline(k.a)
		b := w.timeline(k.b)
		slot := newApptSlot(lookahead)
		a.outAppt[b.id] = slot
		b.inAppt[a.id] = slot
		a.scheduleMakeAppt(b.id, lookahead)
		b.scheduleWaitAppt(a.id, lookahead)
	}
}

// discoverMinCrossDelay walks every entity's out-channel mappings once
// at init to seed each timeline's min_cross_delay and the pack-wide
// minimum used to size window_size under composite synchronization.
func (w *world) discoverMinCrossDelay() Tick {
	for _, tl := range w.timelines {
		tl.recomputeMinCrossDelay()
	}
	var packMin Tick = NoTime
	for _, tl := range w.timelines {
		tl.graphMu.Lock()
		m := tl.minCrossDelay
		tl.graphMu.Unlock()
		if m >= 0 && (packMin < 0 || m < packMin) {
			packMin = m
		}
	}
	return packMin
}

// InitModel runs the initialization phase: it calls every
// supplied entity-init function, discovers each timeline's minimum
// cross delay, chooses window_size, sets up appointments under
// composite synchronization, and starts the worker goroutines.
func (i *Interface) InitModel(entityInits ...func()) {
	w := i.w
	w.mu.Lock()
	alreadyStarted := w.started
	w.mu.Unlock()
	if alreadyStarted {
		invariantViolation("InitModel called more than once")
	}

	for _, fn := range entityInits {
		fn()
	}

	packMin := w.discoverMinCrossDelay()
	switch {
	case w.windowSizeOverride >= 0:
		w.windowSize = w.windowSizeOverride
	case w.syncMode == SyncComposite && packMin > 0:
		w.windowSize = Tick(len(w.timelines)) * packMin
	default:
		w.windowSize = 0
	}

	w.setupAppointments()

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	for _, tl := range w.timelines {
		tl.setState(StateBlocked)
		go tl.run()
	}
}

// Advance runs one epoch up to stopBefore (virtual time) and returns
// the simulated time reached.
func (i *Interface) Advance(stopBefore Tick) Tick {
	return i.advance(stopBefore, actionStopBeforeTime, nil)
}

// AdvanceUntil runs one epoch, calling stopCondition at the end of
// every window, and stops as soon as it returns true.
func (i *Interface) AdvanceUntil(stopCondition func() bool) Tick {
	return i.advance(MaxTick, actionStopFunction, stopCondition)
}

func (i *Interface) advance(epochStop Tick, action nextAction, stopFn func() bool) Tick {
	w := i.w
	w.mu.Lock()
	w.epochStop = epochStop
	w.action = action
	w.stopFn = stopFn
	w.mu.Unlock()

	w.windowBarrier.Wait(-1)
	w.windowBarrier.Wait(-1)

	reached := w.windowBarrier.Max()
	result := Tick(0)
	if reached >= 0 {
		result = Tick(reached)
	}
	i.emitEpochCompleted(context.Background(), result)
	return result
}

// RuntimeMeasurements returns a snapshot of kernel runtime counters.
func (i *Interface) RuntimeMeasurements() Measurements {
	w := i.w
	var simTime Tick
	for _, tl := range w.timelines {
		if c := tl.Clock(); c > simTime {
			simTime = c
		}
	}
	return Measurements{
		EventsExecuted: w.metrics.eventsExecuted.Load(),
		WorkEvents:     w.metrics.workEvents.Load(),
		SyncEvents:     w.metrics.syncEvents.Load(),
		WallTime:       time.Since(w.metrics.startWall),
		SimTime:        simTime,
	}
}

// emitEpochCompleted notifies the optional event emitter, if any, that
// an epoch finished at reached.
func (i *Interface) emitEpochCompleted(ctx context.Context, reached Tick) {
	if i.w.emitter == nil {
		return
	}
	_ = i.w.emitter.EmitEpochCompleted(ctx, len(i.w.timelines), int64(reached))
}
