package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showdeck/showdeck/internal/auth"
	"github.com/showdeck/showdeck/internal/fetch"
	"github.com/showdeck/showdeck/internal/library"
	"github.com/showdeck/showdeck/pkg/types"
)

var testSession = auth.Session{UserID: "u1", Username: "casey", Token: "tok"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := fetch.New(fetch.Config{MaxRetries: 1})
	fetcher.SetSleep(func(context.Context, time.Duration) error { return nil })
	return NewClientWithFetcher(server.URL, fetcher)
}

func TestClient_WhoAmI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"user_id":"u1","username":"casey"}`))
	})

	profile, err := client.WhoAmI(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UserID)
	assert.Equal(t, "casey", profile.Username)
}

func TestClient_InsertFavorite(t *testing.T) {
	t.Run("posts the full payload for the session's user", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/v1/users/u1/favorites", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "42", payload["media_id"])
			assert.Equal(t, "tv", payload["media_type"])
			assert.Equal(t, float64(2), payload["season"])
			assert.Equal(t, float64(5), payload["episode"])

			w.WriteHeader(http.StatusCreated)
		})

		err := client.InsertFavorite(context.Background(), testSession, library.Entry{
			MediaID:   "42",
			MediaType: types.MediaTypeTV,
			Season:    2,
			Episode:   5,
			Title:     "Severance",
		})

		require.NoError(t, err)
	})

	t.Run("surfaces server failures", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		err := client.InsertFavorite(context.Background(), testSession, library.Entry{
			MediaID: "42", MediaType: types.MediaTypeMovie, Title: "Heat",
		})

		require.Error(t, err)
		assert.True(t, fetch.IsStatus(err, http.StatusInternalServerError))
	})
}

func TestClient_DeleteFavorite(t *testing.T) {
	t.Run("matches by the full composite key", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DELETE", r.Method)
			assert.Equal(t, "/v1/users/u1/favorites", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "42", q.Get("media_id"))
			assert.Equal(t, "tv", q.Get("media_type"))
			assert.Equal(t, "2", q.Get("season"))
			assert.Equal(t, "5", q.Get("episode"))
			w.WriteHeader(http.StatusNoContent)
		})

		err := client.DeleteFavorite(context.Background(), testSession, library.Key{
			MediaID: "42", MediaType: types.MediaTypeTV, Season: 2, Episode: 5,
		})

		require.NoError(t, err)
	})
}

func TestClient_ListFavorites(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/u1/favorites", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"items":[
			{"media_id":"42","media_type":"tv","title":"Severance"},
			{"media_id":"603","media_type":"movie","title":"The Matrix"}
		]}`))
	})

	entries, err := client.ListFavorites(context.Background(), testSession)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Severance", entries[0].Title)
	assert.Equal(t, types.MediaTypeMovie, entries[1].MediaType)
}

func TestClient_ListHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/u1/history", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"items":[
			{"media_id":"1396","media_type":"tv","title":"Breaking Bad","season":2,"episode":9,
			 "progress_seconds":1500,"duration_seconds":2820}
		]}`))
	})

	items, err := client.ListHistory(context.Background(), testSession)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1500, items[0].ProgressSeconds)
	assert.Equal(t, 9, items[0].Episode)
}
