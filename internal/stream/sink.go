package stream

// Progress statuses reported alongside step ids.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Sink receives lifecycle notifications from a running generation job.
// The streaming implementation forwards them to a client connection; the
// no-op implementation is used for fast synchronous paths (single-question
// regeneration) that do not stream.
type Sink interface {
	// Progress marks a stage transition with a machine-readable step id and
	// a human status string.
	Progress(step, status string)
	// Log reports an informational message about stage results.
	Log(message string)
	// Error reports the job's terminal failure detail.
	Error(detail string)
	// Final delivers the job's final result object.
	Final(result interface{})
	// End signals that no further events will follow. Producers must call it
	// exactly once per job, on every termination path.
	End()
}

// ChannelSink publishes every notification as an event on a Channel.
type ChannelSink struct {
	ch *Channel
}

// NewChannelSink wraps a Channel in the Sink interface.
func NewChannelSink(ch *Channel) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Progress(step, status string) {
	s.ch.Publish(EventProgress, map[string]string{"step": step, "status": status})
}

func (s *ChannelSink) Log(message string) {
	s.ch.Publish(EventLog, map[string]string{"message": message})
}

func (s *ChannelSink) Error(detail string) {
	s.ch.Publish(EventError, map[string]string{"detail": detail})
}

func (s *ChannelSink) Final(result interface{}) {
	s.ch.Publish(EventFinalResult, result)
}

func (s *ChannelSink) End() {
	s.ch.Publish(EventEndStream, map[string]string{"message": "Stream ended."})
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) Progress(step, status string) {}
func (NopSink) Log(message string)           {}
func (NopSink) Error(detail string)          {}
func (NopSink) Final(result interface{})     {}
func (NopSink) End()                         {}
