package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// SessionRepository persists sessions keyed by user id. Sessions
// survive process restart; they are reset, never deleted.
type SessionRepository interface {
	Get(ctx context.Context, userID string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
}

// ErrSessionNotFound is returned when no session exists for a user.
var ErrSessionNotFound = errors.New("session not found")

type redisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository stores sessions as JSON values in Redis.
func NewRedisSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func (r *redisSessionRepository) Get(ctx context.Context, userID string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
