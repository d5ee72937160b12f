// Package backend talks to the hosted showdeck service that owns auth and
// cross-device persistence of favorites and watch history.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/showdeck/showdeck/internal/auth"
	"github.com/showdeck/showdeck/internal/config"
	"github.com/showdeck/showdeck/internal/fetch"
	"github.com/showdeck/showdeck/internal/history"
	"github.com/showdeck/showdeck/internal/library"
	"github.com/showdeck/showdeck/pkg/types"
)

// Client is the REST client for the backend service. It satisfies
// library.RemoteMutator.
type Client struct {
	baseURL string
	// reads retry, mutations get a single attempt so a slow insert is
	// never replayed behind the user's back
	reads     *fetch.Fetcher
	mutations *fetch.Fetcher
	logger    *slog.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.BackendConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		reads: fetch.New(fetch.Config{
			Timeout:    cfg.Timeout,
			MaxRetries: 3,
			Logger:     logger,
		}),
		mutations: fetch.New(fetch.Config{
			Timeout:    cfg.Timeout,
			MaxRetries: 1,
			Logger:     logger,
		}),
		logger: logger,
	}
}

// NewClientWithFetcher wires one fetcher for both reads and mutations.
// Used by tests.
func NewClientWithFetcher(baseURL string, fetcher *fetch.Fetcher) *Client {
	return &Client{
		baseURL:   baseURL,
		reads:     fetcher,
		mutations: fetcher,
		logger:    slog.Default(),
	}
}

type profileResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type favoritePayload struct {
	MediaID    string    `json:"media_id"`
	MediaType  string    `json:"media_type"`
	Season     int       `json:"season,omitempty"`
	Episode    int       `json:"episode,omitempty"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

type favoritesResponse struct {
	Items []favoritePayload `json:"items"`
}

type historyPayload struct {
	MediaID         string    `json:"media_id"`
	MediaType       string    `json:"media_type"`
	Title           string    `json:"title"`
	Season          int       `json:"season,omitempty"`
	Episode         int       `json:"episode,omitempty"`
	ProgressSeconds int       `json:"progress_seconds"`
	DurationSeconds int       `json:"duration_seconds"`
	WatchedAt       time.Time `json:"watched_at"`
	Completed       bool      `json:"completed"`
}

type historyResponse struct {
	Items []historyPayload `json:"items"`
}

// WhoAmI resolves an access token to its profile. Used during login
// before any session exists.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*auth.Profile, error) {
	var profile profileResponse
	_, err := c.reads.Do(ctx, fetch.Request{
		URL:    c.baseURL + "/v1/me",
		Header: bearer(accessToken),
		Out:    &profile,
	})
	if err != nil {
		return nil, fmt.Errorf("whoami failed: %w", err)
	}
	return &auth.Profile{UserID: profile.UserID, Username: profile.Username}, nil
}

// InsertFavorite persists one favorite for the session's user.
func (c *Client) InsertFavorite(ctx context.Context, sess auth.Session, entry library.Entry) error {
	payload := favoritePayload{
		MediaID:    entry.MediaID,
		MediaType:  string(entry.MediaType),
		Season:     entry.Season,
		Episode:    entry.Episode,
		Title:      entry.Title,
		PosterPath: entry.PosterPath,
		AddedAt:    entry.AddedAt,
	}

	_, err := c.mutations.Do(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/users/%s/favorites", c.baseURL, sess.UserID),
		Header: bearer(sess.Token),
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("insert favorite failed: %w", err)
	}
	return nil
}

// DeleteFavorite removes the favorite matching the full composite key.
func (c *Client) DeleteFavorite(ctx context.Context, sess auth.Session, key library.Key) error {
	_, err := c.mutations.Do(ctx, fetch.Request{
		Method: http.MethodDelete,
		URL:    fmt.Sprintf("%s/v1/users/%s/favorites", c.baseURL, sess.UserID),
		Header: bearer(sess.Token),
		Query: map[string]string{
			"media_id":   key.MediaID,
			"media_type": string(key.MediaType),
			"season":     strconv.Itoa(key.Season),
			"episode":    strconv.Itoa(key.Episode),
		},
	})
	if err != nil {
		return fmt.Errorf("delete favorite failed: %w", err)
	}
	return nil
}

// ListFavorites fetches the user's favorites, newest first.
func (c *Client) ListFavorites(ctx context.Context, sess auth.Session) ([]library.Entry, error) {
	var resp favoritesResponse
	_, err := c.reads.Do(ctx, fetch.Request{
		URL:    fmt.Sprintf("%s/v1/users/%s/favorites", c.baseURL, sess.UserID),
		Header: bearer(sess.Token),
		Out:    &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("list favorites failed: %w", err)
	}

	entries := make([]library.Entry, len(resp.Items))
	for i, item := range resp.Items {
		entries[i] = library.Entry{
			MediaID:    item.MediaID,
			MediaType:  types.MediaType(item.MediaType),
			Season:     item.Season,
			Episode:    item.Episode,
			Title:      item.Title,
			PosterPath: item.PosterPath,
			AddedAt:    item.AddedAt,
		}
	}
	return entries, nil
}

// ListHistory fetches the user's remote watch history.
func (c *Client) ListHistory(ctx context.Context, sess auth.Session) ([]history.Item, error) {
	var resp historyResponse
	_, err := c.reads.Do(ctx, fetch.Request{
		URL:    fmt.Sprintf("%s/v1/users/%s/history", c.baseURL, sess.UserID),
		Header: bearer(sess.Token),
		Out:    &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}

	items := make([]history.Item, len(resp.Items))
	for i, row := range resp.Items {
		items[i] = history.Item{
			MediaID:         row.MediaID,
			MediaType:       types.MediaType(row.MediaType),
			Title:           row.Title,
			Season:          row.Season,
			Episode:         row.Episode,
			ProgressSeconds: row.ProgressSeconds,
			DurationSeconds: row.DurationSeconds,
			WatchedAt:       row.WatchedAt,
			Completed:       row.Completed,
		}
	}
	return items, nil
}

// PushProgress uploads one history item so other devices can resume.
func (c *Client) PushProgress(ctx context.Context, sess auth.Session, item history.Item) error {
	payload := historyPayload{
		MediaID:         item.MediaID,
		MediaType:       string(item.MediaType),
		Title:           item.Title,
		Season:          item.Season,
		Episode:         item.Episode,
		ProgressSeconds: item.ProgressSeconds,
		DurationSeconds: item.DurationSeconds,
		WatchedAt:       item.WatchedAt,
		Completed:       item.Completed,
	}

	_, err := c.mutations.Do(ctx, fetch.Request{
		Method: http.MethodPut,
		URL:    fmt.Sprintf("%s/v1/users/%s/history", c.baseURL, sess.UserID),
		Header: bearer(sess.Token),
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("push progress failed: %w", err)
	}
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
