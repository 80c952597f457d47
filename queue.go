package kernel

import (
	"container/heap"
	"sync"
)

// eventHeap is the container/heap backing store, ordered by eventLess.
// Grounded on the idiomatic Go priority-queue pattern the pack examples
// use (container/heap over a typed slice) rather than a hand-rolled
// binary heap.
type eventHeap []*Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return eventLess(h[i], h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*Event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// EventQueue is a timeline's local event heap plus its mutex-guarded
// cross-timeline inbox. The heap itself is touched only by
// the owning timeline's goroutine and needs no lock; the inbox may be
// pushed to by any other timeline's goroutine under the queue's mutex,
// and is drained into the heap by the owner at the top of every window.
type EventQueue struct {
	heap eventHeap

	mu    sync.Mutex
	inbox []*Event
}

// NewEventQueue returns an empty event queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.heap)
	return q
}

// Push enqueues an event directly into the local heap. Callable only by
// the owning timeline.
func (q *EventQueue) Push(e *Event) { heap.Push(&q.heap, e) }

// Pop removes and returns the earliest event, or nil if empty. Callable
// only by the owning timeline.
func (q *EventQueue) Pop() *Event {
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Event)
}

// Peek returns the earliest event without removing it, or nil if empty.
func (q *EventQueue) Peek() *Event {
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0]
}

// Empty reports whether the local heap holds no events. It does not
// consider the inbox, which is drained before this is ever checked in
// the window loop.
func (q *EventQueue) Empty() bool { return len(q.heap) == 0 }

// Size returns the number of events in the local heap.
func (q *EventQueue) Size() int { return len(q.heap) }

// PushCrossTimeline enqueues an event produced by another timeline into
// this queue's inbox, to be drained into the heap at the next window
// start. Safe to call from any goroutine.
func (q *EventQueue) PushCrossTimeline(e *Event) {
	q.mu.Lock()
	q.inbox = append(q.inbox, e)
	q.mu.Unlock()
}

// DrainInbox moves every pending cross-timeline event into the local
// heap. Callable only by the owning timeline, at the top of a window.
func (q *EventQueue) DrainInbox() {
	q.mu.Lock()
	pending := q.inbox
	q.inbox = nil
	q.mu.Unlock()
	for _, e := range pending {
		heap.Push(&q.heap, e)
	}
}
