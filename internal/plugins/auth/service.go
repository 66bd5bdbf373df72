package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/workdeck/planner/internal/apperror"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// AuthService looks up sessions written by the Workdeck login service.
type AuthService interface {
	// ValidateSession returns the session for token or an unauthorized error.
	ValidateSession(ctx context.Context, token string) (*Session, error)
}

// authService is the Redis-backed AuthService implementation.
type authService struct {
	redis      *redis.Client
	sessionTTL time.Duration
}

// NewAuthService creates an AuthService reading sessions from rdb. Every
// successful lookup extends the session by sessionTTL.
func NewAuthService(rdb *redis.Client, sessionTTL time.Duration) AuthService {
	return &authService{redis: rdb, sessionTTL: sessionTTL}
}

// ValidateSession looks up a session token in Redis and returns the session
// data if it exists and hasn't expired.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized("missing session")
	}
	key := sessionKeyPrefix + token

	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}
	if session.UserID == "" {
		return nil, apperror.NewUnauthorized("session has no user")
	}

	// Sliding expiry. A failed refresh does not invalidate the request.
	if s.sessionTTL > 0 {
		_ = s.redis.Expire(ctx, key, s.sessionTTL).Err()
	}

	return &session, nil
}
