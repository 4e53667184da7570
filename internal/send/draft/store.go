package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/database"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/models"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store keeps session state in redis as JSON. Writes are last-write-wins.
type Store struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewStore(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		redis:  redis,
		ttl:    ttl,
		logger: logger.ForComponent(log, "session-store"),
		now:    time.Now,
	}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// Create starts a new session for user.
func (s *Store) Create(ctx context.Context, user models.User) (*State, error) {
	now := s.now()
	st := &State{
		Session: models.Session{
			ID:           uuid.NewString(),
			User:         user,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.ttl),
			LastActivity: now,
		},
		Draft: SendDraft{PlaceholderValues: *NewValues()},
	}
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("Session created", map[string]interface{}{
		"sessionId": st.Session.ID,
		"userId":    user.ID,
	})
	return st, nil
}

// Load fetches the state for id. Expired sessions are deleted and reported
// as not found.
func (s *Store) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	var st State
	if err := s.redis.GetJSON(ctx, sessionKey(id), &st); err != nil {
		if errors.Is(err, database.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, apperrors.NewStorageFailedError("load session", err)
	}
	if st.Session.ExpiresAt.Before(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to delete expired session", map[string]interface{}{
				"sessionId": id,
				"error":     err.Error(),
			})
		}
		return nil, ErrSessionNotFound
	}
	return &st, nil
}

// Save writes st and slides the session expiry forward.
func (s *Store) Save(ctx context.Context, st *State) error {
	now := s.now()
	st.Session.LastActivity = now
	st.Session.ExpiresAt = now.Add(s.ttl)
	if err := s.redis.SetJSON(ctx, sessionKey(st.Session.ID), st, s.ttl); err != nil {
		return apperrors.NewStorageFailedError("save session", fmt.Errorf("session %s: %w", st.Session.ID, err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id)); err != nil {
		return apperrors.NewStorageFailedError("delete session", err)
	}
	return nil
}
