package kernel

import (
	"context"
	"sync"

	"github.com/s3fkernel/kernel/internal/directory"
	"github.com/s3fkernel/kernel/internal/kernellog"
)

// BarrierFlavor selects the implementation behind the Barrier interface.
type BarrierFlavor int

const (
	// FlavorCondvar is a mutex+condition-variable barrier.
	FlavorCondvar BarrierFlavor = iota
	// FlavorSpin is a sense-reversing spin barrier.
	FlavorSpin
)

// SyncMode selects pure global-barrier synchronization or composite
// synchronization with point-to-point appointments.
type SyncMode int

const (
	// SyncGlobal synchronizes every cross-timeline exchange through the
	// global window barrier; window_size is 0.
	SyncGlobal SyncMode = iota
	// SyncComposite additionally lets timeline pairs with lookahead
	// smaller than window_size synchronize pairwise via appointments.
	SyncComposite
)

type nextAction int

const (
	actionStopBeforeTime nextAction = iota
	actionStopFunction
)

// EventEmitter is an optional observer of kernel lifecycle milestones.
// Any type satisfying this method set can be passed to
// Interface.SetEventEmitter; internal/kevents provides a CloudEvents
// implementation.
type EventEmitter interface {
	EmitEpochCompleted(ctx context.Context, timelineCount int, reachedTime int64) error
	EmitDeliveryDropped(ctx context.Context, detail string) error
}

// world holds everything shared across timelines: the arenas, the
// barriers, and the epoch parameters the control thread publishes at
// the start of each Advance/AdvanceUntil call.
type world struct {
	scale             Scale
	barrierFlavor     BarrierFlavor
	syncMode          SyncMode
	refCountPayloads  bool
	windowSizeOverride Tick
	windowSize        Tick

	logger  kernellog.Logger
	emitter EventEmitter

	entities    []*Entity
	processes   []*Process
	inChannels  []*InChannel
	outChannels []*OutChannel
	timelines   []*Timeline

	entityNames     *directory.Registry[EntityID]
	processNames    *directory.Registry[ProcessID]
	inChannelNames  *directory.Registry[InChannelID]

	windowBarrier Barrier
	bottomBarrier Barrier
	topBarrier    Barrier

	mu         sync.Mutex
	epochStop  Tick
	action     nextAction
	stopFn     func() bool
	started    bool

	metrics measurementsState
}

func newWorld(numTimelines int, scale Scale) *world {
	return &world{
		scale:            scale,
		refCountPayloads: true,
		entityNames:      directory.New[EntityID](),
		processNames:     directory.New[ProcessID](),
		inChannelNames:   directory.New[InChannelID](),
		logger:           kernellog.NewNop(),
		timelines:        make([]*Timeline, 0, numTimelines),
	}
}

func (w *world) process(id ProcessID) *Process       { return w.processes[id] }
func (w *world) inChannel(id InChannelID) *InChannel  { return w.inChannels[id] }
func (w *world) outChannel(id OutChannelID) *OutChannel { return w.outChannels[id] }
func (w *world) entity(id EntityID) *Entity           { return w.entities[id] }
func (w *world) timeline(id TimelineID) *Timeline     { return w.timelines[id] }

func (w *world) readEpoch() (Tick, nextAction, func() bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epochStop, w.action, w.stopFn
}
