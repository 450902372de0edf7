package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/receptionist/core/tenants"
)

// inMemoryStore implements Store with a mutex-guarded map. Suitable for a
// single-instance deployment; multi-instance deployments need the redis
// driver (or call affinity).
type inMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

func newInMemoryStore(idleTimeout time.Duration) *inMemoryStore {
	store := &inMemoryStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go store.reapIdleSessions()
	}
	return store
}

// Create implements Store.
func (s *inMemoryStore) Create(ctx context.Context, callID string, tenant tenants.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[callID]; exists {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	session := &Session{
		CallID:    callID,
		Tenant:    tenant,
		Turns:     []Turn{},
		Language:  tenant.Language,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.Language == "" {
		session.Language = "en"
	}
	s.sessions[callID] = session

	return snapshot(session)
}

// Get implements Store.
func (s *inMemoryStore) Get(ctx context.Context, callID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[callID]
	if !exists {
		return nil, ErrNotFound
	}
	return snapshot(session)
}

// AppendTurn implements Store.
func (s *inMemoryStore) AppendTurn(ctx context.Context, callID string, turn Turn) error {
	return s.update(callID, func(session *Session) {
		session.Turns = append(session.Turns, turn)
	})
}

// SetLanguage implements Store.
func (s *inMemoryStore) SetLanguage(ctx context.Context, callID string, language string) error {
	return s.update(callID, func(session *Session) {
		session.Language = language
	})
}

// SetStatus implements Store.
func (s *inMemoryStore) SetStatus(ctx context.Context, callID string, status Status) error {
	return s.update(callID, func(session *Session) {
		session.Status = status
	})
}

// Remove implements Store.
func (s *inMemoryStore) Remove(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, callID)
	return nil
}

// Close implements Store.
func (s *inMemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	// Keep the map allocated so a straggling Create cannot panic on a nil
	// map write.
	clear(s.sessions)
	return nil
}

func (s *inMemoryStore) update(callID string, mutate func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[callID]
	if !exists {
		return ErrNotFound
	}

	mutate(session)
	session.UpdatedAt = time.Now()
	return nil
}

func (s *inMemoryStore) reapIdleSessions() {
	ticker := time.NewTicker(s.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.idleTimeout)
			s.mu.Lock()
			for callID, session := range s.sessions {
				if session.UpdatedAt.Before(cutoff) {
					delete(s.sessions, callID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// snapshot deep-copies a session so callers never share turn slices with the
// stored state.
func snapshot(session *Session) (*Session, error) {
	copied := &Session{}
	if err := copier.CopyWithOption(copied, session, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	return copied, nil
}
