package kevents

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/s3fkernel/kernel/internal/kernellog"
)

// LogSink sends every CloudEvent to a structured logger. It is the
// default Sink for programs that just want epoch/drop milestones in
// their log stream without standing up a broker.
type LogSink struct {
	log kernellog.Logger
}

// NewLogSink returns a Sink that logs each event at Info level.
func NewLogSink(log kernellog.Logger) *LogSink { return &LogSink{log: log} }

// Send logs the event's type, id, and JSON data.
func (s *LogSink) Send(_ context.Context, event cloudevents.Event) error {
	s.log.Info("kernel event", "type", event.Type(), "id", event.ID(), "data", string(event.Data()))
	return nil
}
