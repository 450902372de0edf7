package sessions

import (
	"context"

	"github.com/koscakluka/receptionist/core/tenants"
)

// Store keeps the active call sessions. It is the only cross-call shared
// state in the service, so every operation must be atomic and safe under
// concurrent access; operations on different call identifiers never block
// each other.
//
// All accessors return deep copies. Mutations go through the store so that a
// session's turn sequence is monotonically appended and never mutated in
// place by callers.
type Store interface {
	// Create registers a session for the call identifier with an empty turn
	// sequence. Returns ErrAlreadyExists if one is live.
	Create(ctx context.Context, callID string, tenant tenants.Context) (*Session, error)

	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, callID string) (*Session, error)

	// AppendTurn appends one turn to the session's sequence. Returns
	// ErrNotFound if the session is absent.
	AppendTurn(ctx context.Context, callID string, turn Turn) error

	// SetLanguage records language drift detected during transcription.
	SetLanguage(ctx context.Context, callID string, language string) error

	// SetStatus moves the session through its lifecycle.
	SetStatus(ctx context.Context, callID string, status Status) error

	// Remove destroys the session. Removing an absent session is not an
	// error.
	Remove(ctx context.Context, callID string) error

	// Close releases driver resources.
	Close() error
}
