package sessions

import (
	"time"

	"github.com/koscakluka/receptionist/core/tenants"
)

// TurnRole describes who produced a turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleSystem    TurnRole = "system"
)

// Turn is one immutable utterance in a call's conversation. Turns are owned
// exclusively by their session and are only ever appended, never reordered
// or mutated in place.
type Turn struct {
	ID      string   `json:"id"`
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
	// AudioURL addresses the recording the turn was transcribed from, when
	// there is one.
	AudioURL  string    `json:"audio_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the lifecycle state of a call session.
type Status string

const (
	StatusActive       Status = "active"
	StatusTransferring Status = "transferring"
	StatusEnded        Status = "ended"
)

// Session is the per-call conversation state. Sessions are keyed by the
// provider-assigned call identifier and live only for the duration of the
// call; transcripts are not persisted beyond it.
type Session struct {
	CallID string `json:"call_id"`
	// Tenant is a read-only snapshot taken at session creation.
	Tenant tenants.Context `json:"tenant"`
	Turns  []Turn          `json:"turns"`
	// Language is the negotiated conversation language. It can drift turn to
	// turn when the caller switches languages.
	Language  string    `json:"language"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
