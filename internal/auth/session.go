// Package auth supplies the current authenticated identity to the rest of
// the application. It persists tokens locally; the sign-in surface itself
// lives in the backend service, not here.
package auth

import (
	"fmt"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

// Session is the authenticated identity. A zero Session means signed out.
type Session struct {
	UserID   string
	Username string
	Token    string
}

// Valid reports whether the session carries a usable identity.
func (s Session) Valid() bool {
	return s.UserID != "" && s.Token != ""
}

// Source yields the current identity, if any. The favorites store and the
// backend client depend on this interface rather than on Manager.
type Source interface {
	Current() (Session, bool)
}

// StaticSource returns a fixed session. Used by tests.
type StaticSource struct {
	Session Session
}

func (s StaticSource) Current() (Session, bool) {
	return s.Session, s.Session.Valid()
}

// Manager loads and stores sessions through a TokenStorage.
type Manager struct {
	storage *TokenStorage
	authURL string
}

// NewManager creates a session manager. authURL is the backend's
// device-authorization page opened during login.
func NewManager(storage *TokenStorage, authURL string) *Manager {
	return &Manager{storage: storage, authURL: authURL}
}

// Current implements Source.
func (m *Manager) Current() (Session, bool) {
	token, err := m.storage.LoadToken()
	if err != nil || token == nil || !token.Valid() {
		return Session{}, false
	}

	profile, err := m.storage.LoadProfile()
	if err != nil || profile == nil {
		return Session{}, false
	}

	sess := Session{
		UserID:   profile.UserID,
		Username: profile.Username,
		Token:    token.AccessToken,
	}
	return sess, sess.Valid()
}

// BeginLogin opens the backend's authorization page in the user's browser
// and returns the URL for manual copy when no browser is available.
func (m *Manager) BeginLogin() (string, error) {
	if err := browser.OpenURL(m.authURL); err != nil {
		return m.authURL, fmt.Errorf("failed to open browser: %w", err)
	}
	return m.authURL, nil
}

// CompleteLogin stores the pasted access token and the resolved profile.
func (m *Manager) CompleteLogin(accessToken string, profile Profile) error {
	if accessToken == "" {
		return fmt.Errorf("empty access token")
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		// Backend tokens are long-lived; revocation happens server-side
		Expiry: time.Now().Add(365 * 24 * time.Hour),
	}

	if err := m.storage.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := m.storage.SaveProfile(&profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Logout clears the stored token and profile.
func (m *Manager) Logout() error {
	if err := m.storage.SaveToken(nil); err != nil {
		return err
	}
	return m.storage.SaveProfile(nil)
}
