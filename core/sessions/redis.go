package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/receptionist/core/tenants"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "call:"

// redisStore implements Store on a shared Redis instance so that multiple
// service instances can serve webhooks for the same call. Idle sessions
// expire through the key TTL, refreshed on every mutation.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Create implements Store.
func (s *redisStore) Create(ctx context.Context, callID string, tenant tenants.Context) (*Session, error) {
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

	val, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	created, err := s.client.SetNX(ctx, keyPrefix+callID, val, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	if !created {
		return nil, ErrAlreadyExists
	}

	return session, nil
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, callID string) (*Session, error) {
	val, err := s.client.Get(ctx, keyPrefix+callID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// AppendTurn implements Store.
func (s *redisStore) AppendTurn(ctx context.Context, callID string, turn Turn) error {
	return s.update(ctx, callID, func(session *Session) {
		session.Turns = append(session.Turns, turn)
	})
}

// SetLanguage implements Store.
func (s *redisStore) SetLanguage(ctx context.Context, callID string, language string) error {
	return s.update(ctx, callID, func(session *Session) {
		session.Language = language
	})
}

// SetStatus implements Store.
func (s *redisStore) SetStatus(ctx context.Context, callID string, status Status) error {
	return s.update(ctx, callID, func(session *Session) {
		session.Status = status
	})
}

// Remove implements Store.
func (s *redisStore) Remove(ctx context.Context, callID string) error {
	if err := s.client.Del(ctx, keyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}

// maxUpdateAttempts bounds how often a conflicted optimistic transaction is
// retried before the error is surfaced.
const maxUpdateAttempts = 3

// update applies a read-modify-write under an optimistic transaction keyed
// on the session. A concurrent write to the same call fails the transaction;
// update retries a bounded number of times so turns are not lost.
func (s *redisStore) update(ctx context.Context, callID string, mutate func(*Session)) error {
	key := keyPrefix + callID

	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.updateOnce(ctx, key, mutate)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session update kept conflicting: %w", err)
}

func (s *redisStore) updateOnce(ctx context.Context, key string, mutate func(*Session)) error {
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		var session Session
		if err := json.Unmarshal([]byte(val), &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		mutate(&session)
		session.UpdatedAt = time.Now()

		newVal, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}
