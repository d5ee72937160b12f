package database

import (
	"time"
)

// History represents one watch-history row with resume progress.
type History struct {
	ID              uint      `gorm:"primaryKey"`
	MediaID         string    `gorm:"not null;index"`
	MediaTitle      string    `gorm:"not null"`
	MediaType       string    `gorm:"not null;index"` // movie, tv
	Season          int       `gorm:"default:0"`
	Episode         int       `gorm:"default:0"`
	ProgressSeconds int       `gorm:"not null"`
	DurationSeconds int       `gorm:"not null"`
	ProgressPercent float64   `gorm:"not null"`
	WatchedAt       time.Time `gorm:"index;default:CURRENT_TIMESTAMP"`
	Completed       bool      `gorm:"default:false"`
	Synced          bool      `gorm:"default:false;index"` // pushed to the backend
}

// TableName overrides the table name
func (History) TableName() string {
	return "history"
}

// Favorite is the local cache of the remote favorites list, written from
// store snapshots so lists render offline.
type Favorite struct {
	ID         uint      `gorm:"primaryKey"`
	MediaID    string    `gorm:"not null;index:idx_fav_key,unique"`
	MediaType  string    `gorm:"not null;index:idx_fav_key,unique"`
	Season     int       `gorm:"default:0;index:idx_fav_key,unique"`
	Episode    int       `gorm:"default:0;index:idx_fav_key,unique"`
	Title      string    `gorm:"not null"`
	PosterPath string    `gorm:"default:''"`
	Position   int       `gorm:"not null;default:0"` // list order, newest first
	AddedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Favorite) TableName() string {
	return "favorites"
}

// Setting is a generic key/value row, used for the auth token and profile.
type Setting struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Setting) TableName() string {
	return "settings"
}
