package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterface(numTimelines int) *Interface {
	return NewInterface(numTimelines, 0)
}

func TestInChannelBindOrdersByPriority(t *testing.T) {
	iface := newTestInterface(1)
	e := NewEntity(iface, 0, "e")
	ch := NewInChannel(e, "ch")

	var fired []string
	mk := func(name string) *Process {
		return NewProcess(e, func(Activation, InChannelID) { fired = append(fired, name) }, name, 0)
	}
	low := mk("low")
	high := mk("high")
	mid := mk("mid")

	ch.Bind(low, 10)
	ch.Bind(high, 0)
	ch.Bind(mid, 5)

	entries := ch.snapshotFanout()
	require.Len(t, entries, 3)
	assert.Equal(t, high.id, entries[0].process)
	assert.Equal(t, mid.id, entries[1].process)
	assert.Equal(t, low.id, entries[2].process)
}

func TestInChannelWaitOnIsRemovedAfterFiring(t *testing.T) {
	iface := newTestInterface(1)
	e := NewEntity(iface, 0, "e")
	ch := NewInChannel(e, "ch")
	p := NewProcess(e, func(Activation, InChannelID) {}, "p", 0)

	ch.WaitOn(p, 0)
	assert.True(t, ch.IsWaiting(p))

	ch.snapshotFanout()
	assert.False(t, ch.IsWaiting(p))
}

func TestInChannelBoundEntrySurvivesFiring(t *testing.T) {
	iface := newTestInterface(1)
	e := NewEntity(iface, 0, "e")
	ch := NewInChannel(e, "ch")
	p := NewProcess(e, func(Activation, InChannelID) {}, "p", 0)

	ch.Bind(p, 0)
	ch.snapshotFanout()
	assert.True(t, ch.IsBound(p))
}

func TestOutChannelMaptoRejectsZeroDelayCrossTimeline(t *testing.T) {
	iface := newTestInterface(2)
	a := NewEntity(iface, 0, "a")
	b := NewEntity(iface, 1, "b")
	out := NewOutChannel(a, 0)
	in := NewInChannel(b, "in")

	_, err := out.Mapto(in, 0)
	assert.ErrorIs(t, err, ErrMappingRejected)
}

func TestOutChannelMaptoAllowsZeroDelayIntraTimeline(t *testing.T) {
	iface := newTestInterface(1)
	a := NewEntity(iface, 0, "a")
	b := NewEntity(iface, 0, "b")
	out := NewOutChannel(a, 0)
	in := NewInChannel(b, "in")

	_, err := out.Mapto(in, 0)
	assert.NoError(t, err)
}

func TestOutChannelMaptoRejectsConflictingDelay(t *testing.T) {
	iface := newTestInterface(1)
	a := NewEntity(iface, 0, "a")
	b := NewEntity(iface, 0, "b")
	out := NewOutChannel(a, 1)
	in := NewInChannel(b, "in")

	_, err := out.Mapto(in, 5)
	require.NoError(t, err)
	_, err = out.Mapto(in, 6)
	assert.ErrorIs(t, err, ErrMappingRejected)
}

func TestOutChannelUnmapRemovesMapping(t *testing.T) {
	iface := newTestInterface(1)
	a := NewEntity(iface, 0, "a")
	b := NewEntity(iface, 0, "b")
	out := NewOutChannel(a, 0)
	in := NewInChannel(b, "in")

	_, err := out.Mapto(in, 1)
	require.NoError(t, err)
	assert.True(t, out.Unmap(in))
	assert.False(t, out.Unmap(in))
}

func TestOutChannelWriteDeliversIntraTimeline(t *testing.T) {
	iface := newTestInterface(1)
	a := NewEntity(iface, 0, "a")
	b := NewEntity(iface, 0, "b")
	out := NewOutChannel(a, 1)
	in := NewInChannel(b, "in")
	_, err := out.Mapto(in, 2)
	require.NoError(t, err)

	ok := out.Write("payload", 0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, b.timeline.queue.Size())
}

func TestNameRegistryFirstRegistrationWins(t *testing.T) {
	iface := newTestInterface(1)
	first := NewEntity(iface, 0, "dup")
	second := NewEntity(iface, 0, "dup")
	id, ok := iface.w.entityNames.Lookup("dup")
	assert.True(t, ok)
	assert.Equal(t, first.id, id)
	assert.NotEqual(t, first.id, second.id)
}
