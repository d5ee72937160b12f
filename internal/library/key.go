package library

import (
	"fmt"
	"time"

	"github.com/showdeck/showdeck/pkg/types"
)

// Key uniquely identifies one favorite slot. Two entries with the same
// media ID but different season/episode are distinct keys.
type Key struct {
	MediaID   string
	MediaType types.MediaType
	Season    int
	Episode   int
}

// String renders the key as a single comparable token.
func (k Key) String() string {
	if k.Season == 0 && k.Episode == 0 {
		return fmt.Sprintf("%s:%s", k.MediaType, k.MediaID)
	}
	return fmt.Sprintf("%s:%s:s%d:e%d", k.MediaType, k.MediaID, k.Season, k.Episode)
}

// Entry is one favorited record. Components receive copies; only store
// operations mutate the canonical list.
type Entry struct {
	MediaID    string
	MediaType  types.MediaType
	Title      string
	PosterPath string
	Season     int
	Episode    int
	AddedAt    time.Time

	// Resume fields, populated when the entry originated from history
	WatchedAt       time.Time
	ProgressSeconds int
	DurationSeconds int
}

// Key returns the membership key for the entry.
func (e Entry) Key() Key {
	return Key{
		MediaID:   e.MediaID,
		MediaType: e.MediaType,
		Season:    e.Season,
		Episode:   e.Episode,
	}
}
