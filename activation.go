package kernel

// Activation is the opaque payload attached to a scheduled event and
// delivered to the process body that runs because of it. The kernel
// never inspects an Activation's contents.
type Activation interface{}

// Cloner may be implemented by an Activation that is not safe to share
// between multiple recipients of the same channel write. When a write
// fans out to more than one mapping and the Interface was built without
// reference-counted payloads, every recipient after the first receives
// the result of CloneActivation instead of the original value.
type Cloner interface {
	CloneActivation() Activation
}

// fanoutPayload returns the Activation a given recipient of a multi-way
// write should receive. The first recipient always gets the original
// value. Later recipients share it unchanged when payloads are
// reference-counted (refCounted == true); otherwise they get a clone
// when the payload supports it, or the same shared value as a
// best-effort fallback.
func fanoutPayload(act Activation, recipientIndex int, refCounted bool) Activation {
	if recipientIndex == 0 || act == nil || refCounted {
		return act
	}
	if c, ok := act.(Cloner); ok {
		return c.CloneActivation()
	}
	return act
}
