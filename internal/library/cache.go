package library

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/showdeck/showdeck/internal/database"
	"github.com/showdeck/showdeck/pkg/types"
)

// Cache mirrors store snapshots into the local favorites table so lists
// render offline and the store can seed before the backend answers.
type Cache struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCache creates a cache over db.
func NewCache(db *gorm.DB, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{db: db, logger: logger}
}

// Save replaces the cached favorites with the given snapshot, keeping
// list order in the position column.
func (c *Cache) Save(entries []Entry) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&database.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to clear favorites cache: %w", err)
		}

		for i, e := range entries {
			row := database.Favorite{
				MediaID:    e.MediaID,
				MediaType:  string(e.MediaType),
				Season:     e.Season,
				Episode:    e.Episode,
				Title:      e.Title,
				PosterPath: e.PosterPath,
				Position:   i,
				AddedAt:    e.AddedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to cache favorite %s: %w", e.Key(), err)
			}
		}
		return nil
	})
}

// Load returns the cached favorites in list order.
func (c *Cache) Load() ([]Entry, error) {
	var rows []database.Favorite
	if err := c.db.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load favorites cache: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			MediaID:    row.MediaID,
			MediaType:  types.MediaType(row.MediaType),
			Season:     row.Season,
			Episode:    row.Episode,
			Title:      row.Title,
			PosterPath: row.PosterPath,
			AddedAt:    row.AddedAt,
		}
	}
	return entries, nil
}

// Follow consumes a store subscription, persisting every snapshot until
// the channel closes. Run it on its own goroutine.
func (c *Cache) Follow(snapshots <-chan []Entry) {
	for snap := range snapshots {
		if err := c.Save(snap); err != nil {
			c.logger.Warn("failed to persist favorites snapshot", "error", err)
		}
	}
}
