package kernel

// ProcessFunc is a process body. It receives the Activation that
// triggered it and, when the trigger was an InChannel fan-out, the id
// of that channel; activeChannel is noInChannel for a plain Timeout.
// The kernel calls ProcessFunc synchronously on the process owner's
// timeline and never concurrently with another process body on that
// same timeline.
type ProcessFunc func(act Activation, activeChannel InChannelID)

// Entity is a simulation actor aligned to exactly one timeline for its
// whole lifetime. It owns processes and channels created against it.
type Entity struct {
	id       EntityID
	name     string
	timeline *Timeline
	w        *world

	inChannels  []*InChannel
	outChannels []*OutChannel
	processes   []*Process
}

// ID returns the entity's arena index.
func (e *Entity) ID() EntityID { return e.id }

// Name returns the entity's registered name, if any.
func (e *Entity) Name() string { return e.name }

// Timeline returns the timeline this entity is aligned to.
func (e *Entity) Timeline() *Timeline { return e.timeline }

// WaitFor schedules process to run on this entity's own timeline after
// delay ticks, carrying act, at the given user priority. It is the
// kernel's self-scheduled-timeout primitive.
func (e *Entity) WaitFor(process *Process, act Activation, delay Tick, priority uint16) Handle {
	if process.entity != e {
		invariantViolation("waitFor: process %q does not belong to entity %q", process.name, e.name)
	}
	tl := e.timeline
	ev := newEvent(EventTimeout)
	ev.Time = tl.Clock() + delay
	ev.TieBreak = userTieBreak(priority)
	ev.Process = process.id
	ev.Activation = act
	ev.HomeTimeline = tl.id
	ev.UserPriority = int(priority)
	ev.Seq = tl.nextSeq()
	tl.queue.Push(ev)
	return Handle{event: ev, time: ev.Time, homeTimeline: tl}
}

// Process is a named callable owned by an entity; the kernel invokes it
// only on that entity's timeline.
type Process struct {
	id       ProcessID
	name     string
	entity   *Entity
	priority uint16
	fn       ProcessFunc
}

// ID returns the process's arena index.
func (p *Process) ID() ProcessID { return p.id }

// Name returns the process's registered name, if any.
func (p *Process) Name() string { return p.name }

// NewEntity creates an entity aligned to the given timeline index and
// registers it under name (first registration wins on collision).
func NewEntity(iface *Interface, timelineIndex int, name string) *Entity {
	w := iface.w
	tl := w.timelines[timelineIndex]
	e := &Entity{
		id:       EntityID(len(w.entities)),
		name:     name,
		timeline: tl,
		w:        w,
	}
	w.entities = append(w.entities, e)
	tl.entities = append(tl.entities, e)
	if name != "" {
		if _, isNew := w.entityNames.Register(name, e.id, func(n string) {
			w.logger.Warn("duplicate entity name, keeping first binding", "name", n)
		}); !isNew {
			w.logger.Debug("entity registered under duplicate name", "name", name)
		}
	}
	return e
}

// NewProcess creates a process owned by entity, callable only on
// entity's timeline.
func NewProcess(entity *Entity, fn ProcessFunc, name string, priority uint16) *Process {
	w := entity.w
	p := &Process{
		id:       ProcessID(len(w.processes)),
		name:     name,
		entity:   entity,
		priority: priority,
		fn:       fn,
	}
	w.processes = append(w.processes, p)
	entity.processes = append(entity.processes, p)
	if name != "" {
		if _, isNew := w.processNames.Register(name, p.id, func(n string) {
			w.logger.Warn("duplicate process name, keeping first binding", "name", n)
		}); !isNew {
			w.logger.Debug("process registered under duplicate name", "name", name)
		}
	}
	return p
}
