// Package history tracks what the user watched and how far they got, and
// turns raw history rows into display-ready records via metadata
// enrichment.
package history

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/showdeck/showdeck/internal/database"
	"github.com/showdeck/showdeck/pkg/types"
)

// SortOrder defines the sorting order for history queries
type SortOrder string

const (
	SortRecentFirst  SortOrder = "recent_first"
	SortOldestFirst  SortOrder = "oldest_first"
	SortTitleAsc     SortOrder = "title_asc"
	SortProgressDesc SortOrder = "progress_desc"
)

// FilterOptions defines filtering options for history queries
type FilterOptions struct {
	MediaType   types.MediaType
	SearchQuery string
	StartDate   time.Time
	EndDate     time.Time
	Completed   *bool
	Limit       int
	Offset      int
	SortBy      SortOrder
}

// Item is one watch-history record as exposed to callers.
type Item struct {
	ID              uint
	MediaID         string
	MediaType       types.MediaType
	Title           string
	Season          int
	Episode         int
	ProgressSeconds int
	DurationSeconds int
	ProgressPercent float64
	WatchedAt       time.Time
	Completed       bool
}

// Stats summarizes the watch history.
type Stats struct {
	TotalItems     int64
	TotalWatchTime time.Duration
	MovieCount     int64
	TVCount        int64
	CompletedCount int64
}

// Service provides history management over the local database.
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordProgress upserts resume progress for a media/episode slot. An
// incomplete watch updates the latest incomplete row in place; a completed
// watch replaces any incomplete rows for the same slot with one completed
// row.
func (s *Service) RecordProgress(item Item) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if item.DurationSeconds > 0 {
		item.ProgressPercent = float64(item.ProgressSeconds) / float64(item.DurationSeconds) * 100
	}

	if !item.Completed {
		var existing database.History
		err := s.db.Where(
			"media_id = ? AND media_type = ? AND season = ? AND episode = ? AND completed = false",
			item.MediaID, string(item.MediaType), item.Season, item.Episode,
		).Order("watched_at DESC").First(&existing).Error

		if err == nil {
			existing.ProgressSeconds = item.ProgressSeconds
			existing.DurationSeconds = item.DurationSeconds
			existing.ProgressPercent = item.ProgressPercent
			existing.WatchedAt = time.Now()
			existing.Synced = false
			return s.db.Save(&existing).Error
		}
	}

	if item.Completed {
		s.db.Where(
			"media_id = ? AND media_type = ? AND season = ? AND episode = ? AND completed = false",
			item.MediaID, string(item.MediaType), item.Season, item.Episode,
		).Delete(&database.History{})
	}

	row := database.History{
		MediaID:         item.MediaID,
		MediaTitle:      item.Title,
		MediaType:       string(item.MediaType),
		Season:          item.Season,
		Episode:         item.Episode,
		ProgressSeconds: item.ProgressSeconds,
		DurationSeconds: item.DurationSeconds,
		ProgressPercent: item.ProgressPercent,
		WatchedAt:       time.Now(),
		Completed:       item.Completed,
	}
	return s.db.Create(&row).Error
}

// Recent retrieves history items with filtering and sorting.
func (s *Service) Recent(filter FilterOptions) ([]Item, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := s.db.Model(&database.History{})

	if filter.MediaType != "" {
		query = query.Where("media_type = ?", string(filter.MediaType))
	}
	if filter.SearchQuery != "" {
		query = query.Where("media_title LIKE ?", "%"+filter.SearchQuery+"%")
	}
	if !filter.StartDate.IsZero() {
		query = query.Where("watched_at >= ?", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query = query.Where("watched_at <= ?", filter.EndDate)
	}
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}

	switch filter.SortBy {
	case SortOldestFirst:
		query = query.Order("watched_at ASC")
	case SortTitleAsc:
		query = query.Order("media_title ASC")
	case SortProgressDesc:
		query = query.Order("progress_percent DESC")
	default: // SortRecentFirst
		query = query.Order("watched_at DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []database.History
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	items := make([]Item, len(records))
	for i, record := range records {
		items[i] = itemFromRow(record)
	}
	return items, nil
}

// DeleteByID removes a history item by ID.
func (s *Service) DeleteByID(id uint) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Delete(&database.History{}, id).Error
}

// DeleteByMedia removes all history items for a media ID.
func (s *Service) DeleteByMedia(mediaID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Where("media_id = ?", mediaID).Delete(&database.History{}).Error
}

// GetStats computes aggregate watch statistics.
func (s *Service) GetStats() (*Stats, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var stats Stats
	if err := s.db.Model(&database.History{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}

	var totalSeconds int64
	if err := s.db.Model(&database.History{}).
		Select("COALESCE(SUM(progress_seconds), 0)").Scan(&totalSeconds).Error; err != nil {
		return nil, err
	}
	stats.TotalWatchTime = time.Duration(totalSeconds) * time.Second

	if err := s.db.Model(&database.History{}).
		Where("media_type = ?", string(types.MediaTypeMovie)).Count(&stats.MovieCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.History{}).
		Where("media_type = ?", string(types.MediaTypeTV)).Count(&stats.TVCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&database.History{}).
		Where("completed = ?", true).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

// Unsynced returns rows not yet pushed to the backend, oldest first.
func (s *Service) Unsynced() ([]Item, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var records []database.History
	if err := s.db.Where("synced = ?", false).
		Order("watched_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch unsynced history: %w", err)
	}

	items := make([]Item, len(records))
	for i, record := range records {
		items[i] = itemFromRow(record)
	}
	return items, nil
}

// MarkSynced flags a row as pushed to the backend.
func (s *Service) MarkSynced(id uint) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Model(&database.History{}).Where("id = ?", id).
		Update("synced", true).Error
}

// Cleanup removes incomplete rows older than 30 days.
func (s *Service) Cleanup() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	cutoff := time.Now().AddDate(0, 0, -30)
	return s.db.Where("completed = ? AND watched_at < ?", false, cutoff).
		Delete(&database.History{}).Error
}

func itemFromRow(record database.History) Item {
	return Item{
		ID:              record.ID,
		MediaID:         record.MediaID,
		MediaType:       types.MediaType(record.MediaType),
		Title:           record.MediaTitle,
		Season:          record.Season,
		Episode:         record.Episode,
		ProgressSeconds: record.ProgressSeconds,
		DurationSeconds: record.DurationSeconds,
		ProgressPercent: record.ProgressPercent,
		WatchedAt:       record.WatchedAt,
		Completed:       record.Completed,
	}
}
