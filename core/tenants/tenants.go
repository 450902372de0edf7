package tenants

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no organization answers the called number.
var ErrNotFound = errors.New("tenant not found")

// Context is the read-only organization snapshot that seeds a call session.
// It is resolved once at session creation and never refreshed mid-call.
type Context struct {
	OrganizationID string
	Name           string
	BusinessType   string
	// Persona is free-form text describing how the assistant should behave.
	Persona string
	// Greeting is the fully formed greeting spoken when the call is answered.
	Greeting string
	// TransferNumber is the human hand-off target for this organization.
	TransferNumber string
	// Language is the language the conversation starts in.
	Language string
}

// Resolver maps an inbound called number to the owning organization.
type Resolver interface {
	// Resolve returns ErrNotFound when the number is not registered to any
	// active organization.
	Resolve(ctx context.Context, calledNumber string) (*Context, error)
}
