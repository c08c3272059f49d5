package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

func newTestSessionStore(t *testing.T, ttl time.Duration) (SessionStore, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(client, ttl, zerolog.Nop()), server
}

func TestSessionStoreLifecycle(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	ctx := context.Background()

	session, err := store.Create(ctx, "ya29.token")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.False(t, session.ClassworkLoaded)

	session.Assignments = []models.Assignment{{Title: "Essay", CourseName: "English", DueDate: "2025-09-20"}}
	session.ClassworkLoaded = true
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "ya29.token", loaded.AccessToken)
	require.True(t, loaded.ClassworkLoaded)
	require.Len(t, loaded.Assignments, 1)

	require.NoError(t, store.Delete(ctx, session.ID))
	_, err = store.Get(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, store.Delete(ctx, session.ID), ErrSessionNotFound)
}

func TestSessionStoreExpiresSessions(t *testing.T) {
	store, server := newTestSessionStore(t, time.Minute)
	ctx := context.Background()

	session, err := store.Create(ctx, "token")
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreRejectsBlankToken(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Minute)

	_, err := store.Create(context.Background(), "  ")
	require.Error(t, err)
}
