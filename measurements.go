package kernel

import (
	"sync/atomic"
	"time"
)

// measurementsState holds the atomic counters backing
// Interface.RuntimeMeasurements; safe to update concurrently from every
// timeline goroutine.
type measurementsState struct {
	eventsExecuted atomic.Uint64
	workEvents     atomic.Uint64
	syncEvents     atomic.Uint64
	startWall      time.Time
}

// Measurements is a point-in-time snapshot of kernel runtime counters
//.
type Measurements struct {
	EventsExecuted uint64
	WorkEvents     uint64
	SyncEvents     uint64
	WallTime       time.Duration
	SimTime        Tick
}

func (m *measurementsState) recordWork() {
	m.eventsExecuted.Add(1)
	m.workEvents.Add(1)
}

func (m *measurementsState) recordSync() {
	m.eventsExecuted.Add(1)
	m.syncEvents.Add(1)
}
