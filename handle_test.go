package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleCancelRejectsOncePastDeadline(t *testing.T) {
	iface := NewInterface(1, 0)
	var h Handle
	iface.InitModel(func() {
		e := NewEntity(iface, 0, "e")
		p := NewProcess(e, func(Activation, InChannelID) {}, "p", 0)
		h = e.WaitFor(p, nil, 5, 0)
	})

	iface.Advance(10)
	assert.False(t, h.Cancel(), "an event already past its deadline cannot be cancelled")
}

func TestHandleCancelIsIdempotent(t *testing.T) {
	iface := NewInterface(1, 0)
	var h Handle
	iface.InitModel(func() {
		e := NewEntity(iface, 0, "e")
		p := NewProcess(e, func(Activation, InChannelID) {}, "p", 0)
		h = e.WaitFor(p, nil, 100, 0)
	})

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())
}

func TestZeroValueHandleCancelIsSafe(t *testing.T) {
	var h Handle
	assert.False(t, h.Cancel())
}
