package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "deadlines:session:"

// SessionStore keeps per-caller session state.
type SessionStore interface {
	Create(ctx context.Context, accessToken string) (models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, id string) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewSessionStore constructs a Redis backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisSessionStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

func (s *redisSessionStore) Create(ctx context.Context, accessToken string) (models.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return models.Session{}, errors.New("access token is required")
	}

	session := models.Session{
		ID:          uuid.NewString(),
		AccessToken: accessToken,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.Save(ctx, session); err != nil {
		return models.Session{}, err
	}
	s.logger.Info().Str("session_id", session.ID).Msg("session created")
	return session, nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Save writes the session and refreshes its expiry.
func (s *redisSessionStore) Save(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	s.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
