// Package metadata implements the client for the TMDB-compatible metadata
// API used to enrich favorites and watch history.
package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/showdeck/showdeck/internal/config"
	"github.com/showdeck/showdeck/internal/fetch"
	"github.com/showdeck/showdeck/pkg/types"
)

// Client talks to the metadata API.
type Client struct {
	baseURL   string
	imageBase string
	fetcher   *fetch.Fetcher
	logger    *slog.Logger
}

// NewClient creates a metadata client from configuration.
func NewClient(cfg *config.MetadataConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		AuthToken:         cfg.APIKey,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})

	return &Client{
		baseURL:   cfg.BaseURL,
		imageBase: cfg.ImageBaseURL,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// NewClientWithFetcher wires an existing fetcher, used by tests.
func NewClientWithFetcher(baseURL string, fetcher *fetch.Fetcher) *Client {
	return &Client{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  slog.Default(),
	}
}

// Details fetches the primary metadata record for a movie or show.
func (c *Client) Details(ctx context.Context, mediaType types.MediaType, id string) (*Details, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, mediaType, id)

	var details Details
	if err := c.fetcher.GetJSON(ctx, endpoint, nil, &details); err != nil {
		return nil, fmt.Errorf("get details failed: %w", err)
	}

	return &details, nil
}

// Episode fetches the record for one episode of a show.
func (c *Client) Episode(ctx context.Context, id string, season, episode int) (*Episode, error) {
	endpoint := fmt.Sprintf("%s/tv/%s/season/%d/episode/%d", c.baseURL, id, season, episode)

	var ep Episode
	if err := c.fetcher.GetJSON(ctx, endpoint, nil, &ep); err != nil {
		return nil, fmt.Errorf("get episode failed: %w", err)
	}

	return &ep, nil
}

// Trending fetches the daily trending list for the given media type.
func (c *Client) Trending(ctx context.Context, mediaType types.MediaType) (*SearchPage, error) {
	endpoint := fmt.Sprintf("%s/trending/%s/day", c.baseURL, mediaType)

	var page SearchPage
	if err := c.fetcher.GetJSON(ctx, endpoint, nil, &page); err != nil {
		return nil, fmt.Errorf("trending failed: %w", err)
	}

	return &page, nil
}

// Search queries the API for movies or shows matching query.
func (c *Client) Search(ctx context.Context, mediaType types.MediaType, query string) (*SearchPage, error) {
	endpoint := fmt.Sprintf("%s/search/%s", c.baseURL, mediaType)
	params := map[string]string{
		"query":         query,
		"include_adult": "false",
	}

	var page SearchPage
	if err := c.fetcher.GetJSON(ctx, endpoint, params, &page); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return &page, nil
}

// Ping checks that the API is reachable. Used as the connectivity
// precondition before bulk enrichment.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := c.baseURL + "/configuration"
	if err := c.fetcher.GetJSON(ctx, endpoint, nil, nil); err != nil {
		return fmt.Errorf("metadata api unreachable: %w", err)
	}
	return nil
}

// PosterURL resolves a poster path to a full image URL, or "" when the
// record carries no poster.
func (c *Client) PosterURL(posterPath, size string) string {
	if posterPath == "" || c.imageBase == "" {
		return ""
	}
	if size == "" {
		size = "w342"
	}
	return c.imageBase + "/" + size + posterPath
}
