package kernel

import "sync"

// waitEntry is one entry on an InChannel's waiting list: a process bound
// (persistent) or waiting-once (one-shot) for an Activate fan-out, at a
// given priority.
type waitEntry struct {
	process  ProcessID
	bound    bool
	priority uint16
}

// InChannel holds the ordered waiting list that an Activate fan-out
// delivers to. Entries are only ever touched by process
// bodies belonging to the channel's own entity, which only ever run on
// that entity's timeline, so the waiting list itself needs no lock;
// the one exception is the self-rebind guard below, which defers to an
// event instead of mutating in place.
type InChannel struct {
	id     InChannelID
	name   string
	entity *Entity

	waiting []waitEntry
}

// ID returns the channel's arena index.
func (c *InChannel) ID() InChannelID { return c.id }

// NewInChannel creates an in-channel owned by entity and registers it
// under name (first registration wins on collision).
func NewInChannel(entity *Entity, name string) *InChannel {
	w := entity.w
	c := &InChannel{
		id:     InChannelID(len(w.inChannels)),
		name:   name,
		entity: entity,
	}
	w.inChannels = append(w.inChannels, c)
	entity.inChannels = append(entity.inChannels, c)
	if name != "" {
		if _, isNew := w.inChannelNames.Register(name, c.id, func(n string) {
			w.logger.Warn("duplicate in-channel name, keeping first binding", "name", n)
		}); !isNew {
			w.logger.Debug("in-channel registered under duplicate name", "name", name)
		}
	}
	return c
}

func insertOrdered(list []waitEntry, e waitEntry) []waitEntry {
	idx := len(list)
	for i, w := range list {
		if w.priority > e.priority {
			idx = i
			break
		}
	}
	list = append(list, waitEntry{})
	copy(list[idx+1:], list[idx:])
	list[idx] = e
	return list
}

// selfRebindGuard reports whether the calling process is currently
// executing because of this exact channel's own Activate fan-out; if
// so, bind/waitOn defer their insertion to a Bind event scheduled at
// the current instant, rather than mutating the waiting
// list mid-fan-out.
func (c *InChannel) selfRebindGuard(entry waitEntry) bool {
	tl := c.entity.timeline
	if !tl.currentActiveChannelValid || tl.currentActiveChannel != c.id {
		return false
	}
	ev := newEvent(EventBind)
	ev.Time = tl.Clock()
	ev.TieBreak = bindTieBreak()
	ev.InChannel = c.id
	ev.HomeTimeline = tl.id
	ev.bindEntry = entry
	ev.Seq = tl.nextSeq()
	tl.queue.Push(ev)
	return true
}

func (c *InChannel) applyDeferredBind(entry waitEntry) {
	c.waiting = insertOrdered(c.waiting, entry)
}

// Bind adds a persistent waiting-list entry for process at priority.
func (c *InChannel) Bind(process *Process, priority uint16) {
	entry := waitEntry{process: process.id, bound: true, priority: priority}
	if c.selfRebindGuard(entry) {
		return
	}
	c.waiting = insertOrdered(c.waiting, entry)
}

// WaitOn adds a one-shot waiting-list entry for process at priority; it
// is removed the next time it fires.
func (c *InChannel) WaitOn(process *Process, priority uint16) {
	entry := waitEntry{process: process.id, bound: false, priority: priority}
	if c.selfRebindGuard(entry) {
		return
	}
	c.waiting = insertOrdered(c.waiting, entry)
}

// Unbind removes a persistent (or one-shot) entry for process.
func (c *InChannel) Unbind(process *Process) {
	for i, w := range c.waiting {
		if w.process == process.id {
			c.waiting = append(c.waiting[:i], c.waiting[i+1:]...)
			return
		}
	}
}

// UnwaitOn is an alias for Unbind kept for symmetry with WaitOn.
func (c *InChannel) UnwaitOn(process *Process) { c.Unbind(process) }

// IsBound reports whether process has a persistent entry on this channel.
func (c *InChannel) IsBound(process *Process) bool {
	for _, w := range c.waiting {
		if w.process == process.id && w.bound {
			return true
		}
	}
	return false
}

// IsWaiting reports whether process has a one-shot entry on this channel.
func (c *InChannel) IsWaiting(process *Process) bool {
	for _, w := range c.waiting {
		if w.process == process.id && !w.bound {
			return true
		}
	}
	return false
}

// snapshotFanout returns the waiting-list entries to fan an Activate
// out to, removing one-shot entries from the list first, preserving stable
// insertion order.
func (c *InChannel) snapshotFanout() []waitEntry {
	out := make([]waitEntry, len(c.waiting))
	copy(out, c.waiting)
	kept := c.waiting[:0]
	for _, w := range c.waiting {
		if w.bound {
			kept = append(kept, w)
		}
	}
	c.waiting = kept
	return out
}

// channelMapping is one (in, transfer_delay) entry of an OutChannel's
// mapping table.
type channelMapping struct {
	in           *InChannel
	transferDelay Tick
	isAsync      bool
}

func (m channelMapping) totalCrossDelay(minWriteDelay Tick) Tick {
	return minWriteDelay + m.transferDelay
}

// OutChannel is the write side of a channel: a minimum per-write delay
// plus a table of mappings to in-channels, each with its own transfer
// delay.
type OutChannel struct {
	id     OutChannelID
	name   string
	entity *Entity

	mu            sync.Mutex
	minWriteDelay Tick
	mappings      []channelMapping
}

// ID returns the channel's arena index.
func (o *OutChannel) ID() OutChannelID { return o.id }

// NewOutChannel creates an out-channel owned by entity with the given
// minimum per-write delay.
func NewOutChannel(entity *Entity, minWriteDelay Tick) *OutChannel {
	w := entity.w
	o := &OutChannel{
		id:            OutChannelID(len(w.outChannels)),
		entity:        entity,
		minWriteDelay: minWriteDelay,
	}
	w.outChannels = append(w.outChannels, o)
	entity.outChannels = append(entity.outChannels, o)
	return o
}

func (o *OutChannel) mappingsSnapshot() []channelMapping {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]channelMapping, len(o.mappings))
	copy(out, o.mappings)
	return out
}

// Mapto connects this out-channel to in, with the given transfer delay.
// It returns the simulated time at which the mapping becomes effective:
// now() if the owning timeline is not Running, or the current window's
// end if the mapping must be deferred.
func (o *OutChannel) Mapto(in *InChannel, transferDelay Tick) (Tick, error) {
	crossTimeline := o.entity.timeline != in.entity.timeline
	if crossTimeline && o.minWriteDelay+transferDelay <= 0 {
		return 0, mappingRejected("zero-delay cross-timeline mapping")
	}

	o.mu.Lock()
	for _, m := range o.mappings {
		if m.in == in && m.transferDelay != transferDelay {
			o.mu.Unlock()
			return 0, mappingRejected("conflicting transfer delay to already-mapped in-channel")
		}
	}
	o.mu.Unlock()

	tl := o.entity.timeline
	apply := func() {
		o.mu.Lock()
		o.mappings = append(o.mappings, channelMapping{in: in, transferDelay: transferDelay})
		o.mu.Unlock()
		if crossTimeline {
			tl.noteMappingAdded(in.entity.timeline.id, o.minWriteDelay+transferDelay)
		}
	}

	if tl.State() != StateRunning {
		apply()
		return tl.Clock(), nil
	}
	tl.deferMapChange(func() { apply() })
	return tl.WindowEnd(), nil
}

// Unmap removes the mapping to in, if present, and reports whether one
// was removed.
func (o *OutChannel) Unmap(in *InChannel) bool {
	o.mu.Lock()
	idx := -1
	var removed channelMapping
	for i, m := range o.mappings {
		if m.in == in {
			idx = i
			removed = m
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return false
	}
	o.mappings = append(o.mappings[:idx], o.mappings[idx+1:]...)
	o.mu.Unlock()

	if o.entity.timeline != in.entity.timeline {
		o.entity.timeline.noteMappingRemoved(removed.totalCrossDelay(o.minWriteDelay))
	}
	return true
}

// NewTransferDelay changes the transfer delay of the mapping to in,
// following the immediate-vs-deferred rule of Timeline.applyDelayChange.
func (o *OutChannel) NewTransferDelay(in *InChannel, delay Tick) Tick {
	o.mu.Lock()
	idx := -1
	for i, m := range o.mappings {
		if m.in == in {
			idx = i
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return o.entity.timeline.Clock()
	}
	old := o.mappings[idx].totalCrossDelay(o.minWriteDelay)
	newTotal := o.minWriteDelay + delay
	o.mu.Unlock()

	apply := func() {
		o.mu.Lock()
		for i, m := range o.mappings {
			if m.in == in {
				o.mappings[i].transferDelay = delay
			}
		}
		o.mu.Unlock()
	}
	return o.entity.timeline.applyDelayChange(old, newTotal, apply)
}

// NewMinWriteDelay changes this out-channel's minimum per-write delay,
// following the same immediate-vs-deferred rule.
func (o *OutChannel) NewMinWriteDelay(delay Tick) Tick {
	o.mu.Lock()
	old := o.minWriteDelay
	var minNewTotal Tick = -1
	for _, m := range o.mappings {
		nt := delay + m.transferDelay
		if minNewTotal < 0 || nt < minNewTotal {
			minNewTotal = nt
		}
	}
	o.mu.Unlock()
	oldMin := old
	apply := func() {
		o.mu.Lock()
		o.minWriteDelay = delay
		o.mu.Unlock()
	}
	// Compare against the smallest affected total, which is the
	// binding constraint for whether a decrease can retro-invalidate
	// the window.
	var minOldTotal Tick = -1
	o.mu.Lock()
	for _, m := range o.mappings {
		t := oldMin + m.transferDelay
		if minOldTotal < 0 || t < minOldTotal {
			minOldTotal = t
		}
	}
	o.mu.Unlock()
	if minOldTotal < 0 {
		apply()
		return o.entity.timeline.Clock()
	}
	return o.entity.timeline.applyDelayChange(minOldTotal, minNewTotal, apply)
}

// Write delivers act to every mapped in-channel. It
// returns false if at least one delivery was dropped because it would
// have violated the current synchronization window's invariants.
func (o *OutChannel) Write(act Activation, extraDelay Tick, priority uint16) bool {
	tl := o.entity.timeline
	now := tl.Clock()
	mappings := o.mappingsSnapshot()
	allDelivered := true
	for i, m := range mappings {
		arrival := now + extraDelay + o.minWriteDelay + m.transferDelay
		destTl := m.in.entity.timeline
		intra := destTl == tl
		deliverable := intra || arrival >= destTl.WindowEnd() || m.isAsync
		if !deliverable {
			allDelivered = false
			tl.w.logger.Debug("delivery dropped", "out_channel", o.name, "in_channel", m.in.name)
			if tl.w.emitter != nil {
				_ = tl.w.emitter.EmitDeliveryDropped(tl.ctx(), "window invariant violation on "+m.in.name)
			}
			continue
		}
		payload := fanoutPayload(act, i, tl.w.refCountPayloads)
		ev := newEvent(EventActivate)
		ev.Time = arrival
		ev.TieBreak = activateTieBreak()
		ev.InChannel = m.in.id
		ev.Activation = payload
		ev.HomeTimeline = destTl.id
		ev.UserPriority = int(priority)

		if intra {
			ev.Seq = tl.nextSeq()
			tl.queue.Push(ev)
			continue
		}

		synchronous := tl.hasApptSlot(destTl.id)
		if arrival >= destTl.WindowEnd() || !synchronous {
			ev.Seq = tl.nextSeq()
			destTl.queue.PushCrossTimeline(ev)
		} else {
			ev.Seq = tl.nextSeq()
			slot := tl.outApptSlot(destTl.id)
			slot.mu.Lock()
			slot.events = append(slot.events, ev)
			slot.mu.Unlock()
		}
	}
	return allDelivered
}
