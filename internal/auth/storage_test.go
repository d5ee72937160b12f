package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/showdeck/showdeck/internal/database"
)

func newTestStorage(t *testing.T) *TokenStorage {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return NewTokenStorage(db)
}

func TestTokenStorage(t *testing.T) {
	t.Run("round-trips a token", func(t *testing.T) {
		storage := newTestStorage(t)

		require.NoError(t, storage.SaveToken(&oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"}))

		token, err := storage.LoadToken()
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "tok-123", token.AccessToken)
	})

	t.Run("returns nil when nothing is stored", func(t *testing.T) {
		storage := newTestStorage(t)

		token, err := storage.LoadToken()
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("saving nil deletes the stored token", func(t *testing.T) {
		storage := newTestStorage(t)

		require.NoError(t, storage.SaveToken(&oauth2.Token{AccessToken: "tok-123"}))
		require.NoError(t, storage.SaveToken(nil))

		token, err := storage.LoadToken()
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("overwrites an existing token", func(t *testing.T) {
		storage := newTestStorage(t)

		require.NoError(t, storage.SaveToken(&oauth2.Token{AccessToken: "old"}))
		require.NoError(t, storage.SaveToken(&oauth2.Token{AccessToken: "new"}))

		token, err := storage.LoadToken()
		require.NoError(t, err)
		assert.Equal(t, "new", token.AccessToken)
	})

	t.Run("round-trips the profile", func(t *testing.T) {
		storage := newTestStorage(t)

		require.NoError(t, storage.SaveProfile(&Profile{UserID: "u1", Username: "casey"}))

		profile, err := storage.LoadProfile()
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "u1", profile.UserID)
		assert.Equal(t, "casey", profile.Username)
	})
}

func TestManager_Current(t *testing.T) {
	t.Run("signed out without a stored token", func(t *testing.T) {
		m := NewManager(newTestStorage(t), "https://example.test/auth")

		_, ok := m.Current()
		assert.False(t, ok)
	})

	t.Run("returns the session after login", func(t *testing.T) {
		m := NewManager(newTestStorage(t), "https://example.test/auth")

		require.NoError(t, m.CompleteLogin("tok-abc", Profile{UserID: "u1", Username: "casey"}))

		sess, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "u1", sess.UserID)
		assert.Equal(t, "casey", sess.Username)
		assert.Equal(t, "tok-abc", sess.Token)
	})

	t.Run("logout clears the session", func(t *testing.T) {
		m := NewManager(newTestStorage(t), "https://example.test/auth")

		require.NoError(t, m.CompleteLogin("tok-abc", Profile{UserID: "u1"}))
		require.NoError(t, m.Logout())

		_, ok := m.Current()
		assert.False(t, ok)
	})

	t.Run("rejects an empty token", func(t *testing.T) {
		m := NewManager(newTestStorage(t), "https://example.test/auth")
		assert.Error(t, m.CompleteLogin("", Profile{UserID: "u1"}))
	})
}
