package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showdeck/showdeck/internal/fetch"
	"github.com/showdeck/showdeck/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := fetch.New(fetch.Config{MaxRetries: 1})
	fetcher.SetSleep(func(context.Context, time.Duration) error { return nil })
	return NewClientWithFetcher(server.URL, fetcher)
}

func TestClient_Details(t *testing.T) {
	t.Run("fetches movie details", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/movie/603", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","runtime":136}`))
		})

		details, err := client.Details(context.Background(), types.MediaTypeMovie, "603")

		require.NoError(t, err)
		assert.Equal(t, "The Matrix", details.DisplayTitle())
		assert.Equal(t, "1999", details.Year())
		assert.Equal(t, 136, details.Runtime)
	})

	t.Run("fetches tv details using the name field", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tv/1396", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","number_of_seasons":5}`))
		})

		details, err := client.Details(context.Background(), types.MediaTypeTV, "1396")

		require.NoError(t, err)
		assert.Equal(t, "Breaking Bad", details.DisplayTitle())
		assert.Equal(t, "2008", details.Year())
		assert.Equal(t, 5, details.Seasons)
	})

	t.Run("propagates http errors", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		_, err := client.Details(context.Background(), types.MediaTypeMovie, "999999")

		require.Error(t, err)
		assert.True(t, fetch.IsStatus(err, http.StatusNotFound))
	})
}

func TestClient_Episode(t *testing.T) {
	t.Run("fetches episode details", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tv/1396/season/2/episode/9", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"4 Days Out","season_number":2,"episode_number":9,"air_date":"2009-05-03"}`))
		})

		ep, err := client.Episode(context.Background(), "1396", 2, 9)

		require.NoError(t, err)
		assert.Equal(t, "4 Days Out", ep.Name)
		assert.Equal(t, 2, ep.SeasonNumber)
		assert.Equal(t, 9, ep.EpisodeNumber)
	})
}

func TestClient_Search(t *testing.T) {
	t.Run("passes the query and decodes results", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/movie", r.URL.Path)
			assert.Equal(t, "matrix", r.URL.Query().Get("query"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix"}],"total_results":1}`))
		})

		page, err := client.Search(context.Background(), types.MediaTypeMovie, "matrix")

		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(603), page.Results[0].ID)
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("succeeds when the api answers", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/configuration", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		})

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("fails when the api is down", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		assert.Error(t, client.Ping(context.Background()))
	})
}

func TestClient_PosterURL(t *testing.T) {
	client := &Client{imageBase: "https://image.tmdb.org/t/p"}

	assert.Equal(t, "https://image.tmdb.org/t/p/w342/abc.jpg", client.PosterURL("/abc.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w780/abc.jpg", client.PosterURL("/abc.jpg", "w780"))
	assert.Equal(t, "", client.PosterURL("", "w342"))
}
