package sessions

import "errors"

var (
	// ErrAlreadyExists is returned by Create when a session with the same
	// call identifier is live.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrNotFound is returned when no session is stored for a call
	// identifier.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidStoreType is returned by the factory for unknown driver
	// names.
	ErrInvalidStoreType = errors.New("invalid session store type")
	// ErrInvalidConfig is returned when a driver is missing required
	// configuration.
	ErrInvalidConfig = errors.New("invalid session store config")
)
