package telephony

import "time"

// EventKind is the canonical, provider-independent call event enumeration.
// Provider webhook payloads are normalized into these kinds at the boundary;
// anything that does not map stays EventUnknown and is acknowledged without
// entering the call state machine.
type EventKind string

const (
	EventCallInitiated  EventKind = "call.initiated"
	EventCallAnswered   EventKind = "call.answered"
	EventSpeechCaptured EventKind = "call.speech_captured"
	EventSpeakEnded     EventKind = "call.speak_ended"
	EventCallCompleted  EventKind = "call.completed"
	EventUnknown        EventKind = "unknown"
)

// Event is one inbound call-control event. Events are transient and never
// persisted.
type Event struct {
	Kind EventKind
	// RawType is the provider's own event type string, kept for logging.
	RawType string
	// CallID is the provider-assigned opaque call identifier.
	CallID string
	From   string
	To     string
	// RecordingURL addresses the captured utterance for speech events.
	RecordingURL string
	OccurredAt   time.Time
}
