package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

const sessionKeyPrefix = "portal:session:"

// SessionRepository stores sessions in Redis with a TTL.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save writes the session, expiring it at ExpiresAt.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session %s: already expired", session.ID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Get loads a session. Missing or expired sessions yield ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", ErrMalformedRecord, id, err)
	}
	return &session, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
