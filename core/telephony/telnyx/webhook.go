package telnyx

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/receptionist/core/telephony"
)

// envelope covers both webhook shapes Telnyx emits: v2 events wrapped in a
// "data" object and the flattened shape some API versions deliver with
// event_type and payload at the top level.
type envelope struct {
	EventType  string  `json:"event_type"`
	OccurredAt string  `json:"occurred_at"`
	Payload    payload `json:"payload"`
	Data       *struct {
		EventType  string  `json:"event_type"`
		OccurredAt string  `json:"occurred_at"`
		Payload    payload `json:"payload"`
	} `json:"data"`
}

type payload struct {
	CallControlID string `json:"call_control_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	RecordingURLs struct {
		MP3 string `json:"mp3"`
		WAV string `json:"wav"`
	} `json:"recording_urls"`
	PublicRecordingURLs struct {
		MP3 string `json:"mp3"`
		WAV string `json:"wav"`
	} `json:"public_recording_urls"`
}

// ParseEvent normalizes a Telnyx webhook body into a canonical telephony
// event. Unrecognized event types parse successfully with kind EventUnknown;
// only bodies without an event type or call identifier fail.
func ParseEvent(body []byte) (*telephony.Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook body: %w", err)
	}

	eventType := env.EventType
	occurredAt := env.OccurredAt
	pl := env.Payload
	if env.Data != nil {
		eventType = env.Data.EventType
		occurredAt = env.Data.OccurredAt
		pl = env.Data.Payload
	}

	if eventType == "" {
		return nil, fmt.Errorf("webhook body missing event type")
	}
	if pl.CallControlID == "" {
		return nil, fmt.Errorf("webhook body missing call_control_id")
	}

	recordingURL := pl.RecordingURLs.MP3
	if recordingURL == "" {
		recordingURL = pl.PublicRecordingURLs.MP3
	}
	if recordingURL == "" {
		recordingURL = pl.RecordingURLs.WAV
	}

	event := &telephony.Event{
		Kind:         normalizeEventType(eventType),
		RawType:      eventType,
		CallID:       pl.CallControlID,
		From:         pl.From,
		To:           pl.To,
		RecordingURL: recordingURL,
		OccurredAt:   time.Now(),
	}
	if occurredAt != "" {
		if ts, err := time.Parse(time.RFC3339, occurredAt); err == nil {
			event.OccurredAt = ts
		}
	}

	return event, nil
}

// normalizeEventType collapses the snake_case and dotted event naming that
// different Telnyx API versions use into the canonical kinds.
func normalizeEventType(eventType string) telephony.EventKind {
	switch strings.ReplaceAll(eventType, "_", ".") {
	case "call.initiated":
		return telephony.EventCallInitiated
	case "call.answered":
		return telephony.EventCallAnswered
	case "call.recording.saved", "call.gather.ended":
		return telephony.EventSpeechCaptured
	case "call.speak.ended":
		return telephony.EventSpeakEnded
	case "call.hangup", "call.completed":
		return telephony.EventCallCompleted
	default:
		return telephony.EventUnknown
	}
}
