package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLessOrdersByTimeThenTieBreakThenSeq(t *testing.T) {
	a := &Event{Time: 5, TieBreak: 1, Seq: 9}
	b := &Event{Time: 5, TieBreak: 1, Seq: 10}
	c := &Event{Time: 5, TieBreak: 2, Seq: 0}
	d := &Event{Time: 6, TieBreak: 0, Seq: 0}

	assert.True(t, eventLess(a, b))
	assert.False(t, eventLess(b, a))
	assert.True(t, eventLess(a, c))
	assert.True(t, eventLess(c, d))
}

func TestUserTieBreakOrdersSmallerPriorityFirst(t *testing.T) {
	assert.Less(t, userTieBreak(0), userTieBreak(1))
	assert.Less(t, userTieBreak(1), userTieBreak(2))
}

func TestActivateRunsBeforeUserAndAppointmentEventsAtSameTime(t *testing.T) {
	assert.Less(t, activateTieBreak(), userTieBreak(0))
	assert.Less(t, userTieBreak(^uint16(0)), makeApptTieBreak())
	assert.Less(t, makeApptTieBreak(), waitApptTieBreak())
}

func TestEventCancelIsIdempotent(t *testing.T) {
	e := newEvent(EventTimeout)
	assert.True(t, e.cancel())
	assert.Equal(t, EventCancelled, e.Kind())
	assert.False(t, e.cancel())
}

func TestEventKindSurvivesConcurrentCancelRace(t *testing.T) {
	e := newEvent(EventTimeout)
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- e.cancel() }()
	}
	first, second := <-results, <-results
	assert.True(t, first != second, "exactly one cancel call should win")
	assert.Equal(t, EventCancelled, e.Kind())
}
