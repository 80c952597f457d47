// Package kevents wraps cloudevents/sdk-go/v2 into the EventEmitter
// shape the kernel's kernel.Interface accepts, grounded on the
// teacher's observer_cloudevents.go helper.
package kevents

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const source = "s3fkernel"

// Sink delivers a constructed CloudEvent somewhere: stdout, a broker, a
// test recorder. internal/kevents does not transport events itself.
type Sink interface {
	Send(ctx context.Context, event cloudevents.Event) error
}

// Emitter implements kernel.EventEmitter by wrapping every kernel
// milestone as a CloudEvents envelope and handing it to a Sink.
type Emitter struct {
	sink Sink
}

// NewEmitter returns an Emitter that publishes through sink.
func NewEmitter(sink Sink) *Emitter { return &Emitter{sink: sink} }

func newEvent(eventType string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// generateEventID mints a time-ordered CloudEvents id, falling back to
// UUIDv4 if UUIDv7 generation ever fails.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// EpochCompletedPayload is the data payload of a
// com.s3fkernel.epoch.completed event.
type EpochCompletedPayload struct {
	TimelineCount int   `json:"timeline_count"`
	ReachedTime   int64 `json:"reached_time"`
}

// EmitEpochCompleted publishes a com.s3fkernel.epoch.completed event
// after an Advance/AdvanceUntil call returns.
func (e *Emitter) EmitEpochCompleted(ctx context.Context, timelineCount int, reachedTime int64) error {
	ev := newEvent("com.s3fkernel.epoch.completed", EpochCompletedPayload{
		TimelineCount: timelineCount,
		ReachedTime:   reachedTime,
	})
	return e.sink.Send(ctx, ev)
}

// DeliveryDroppedPayload is the data payload of a
// com.s3fkernel.delivery.dropped event.
type DeliveryDroppedPayload struct {
	Detail string `json:"detail"`
}

// EmitDeliveryDropped publishes a com.s3fkernel.delivery.dropped event
// whenever OutChannel.Write fails to deliver to at least one mapping.
func (e *Emitter) EmitDeliveryDropped(ctx context.Context, detail string) error {
	ev := newEvent("com.s3fkernel.delivery.dropped", DeliveryDroppedPayload{Detail: detail})
	return e.sink.Send(ctx, ev)
}
