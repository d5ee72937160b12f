package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/showdeck/showdeck/internal/database"
)

const (
	tokenSettingKey   = "backend_token"
	profileSettingKey = "backend_profile"
)

// Profile is the locally cached user profile.
type Profile struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TokenStorage persists OAuth2 tokens and the profile in the settings table.
type TokenStorage struct {
	db *gorm.DB
}

// NewTokenStorage creates a token storage backed by db.
func NewTokenStorage(db *gorm.DB) *TokenStorage {
	return &TokenStorage{db: db}
}

// SaveToken stores token, or deletes the stored one when token is nil.
func (s *TokenStorage) SaveToken(token *oauth2.Token) error {
	return s.save(tokenSettingKey, token)
}

// LoadToken returns the stored token, or nil when none is stored.
func (s *TokenStorage) LoadToken() (*oauth2.Token, error) {
	var token oauth2.Token
	ok, err := s.load(tokenSettingKey, &token)
	if err != nil || !ok {
		return nil, err
	}
	return &token, nil
}

// SaveProfile stores profile, or deletes the stored one when nil.
func (s *TokenStorage) SaveProfile(profile *Profile) error {
	return s.save(profileSettingKey, profile)
}

// LoadProfile returns the stored profile, or nil when none is stored.
func (s *TokenStorage) LoadProfile() (*Profile, error) {
	var profile Profile
	ok, err := s.load(profileSettingKey, &profile)
	if err != nil || !ok {
		return nil, err
	}
	return &profile, nil
}

func (s *TokenStorage) save(key string, value any) error {
	if value == nil || isNilPointer(value) {
		return s.db.Where("key = ?", key).Delete(&database.Setting{}).Error
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	setting := database.Setting{Key: key, Value: string(data), UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

func (s *TokenStorage) load(key string, out any) (bool, error) {
	var setting database.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}

	if setting.Value == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(setting.Value), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func isNilPointer(value any) bool {
	switch v := value.(type) {
	case *oauth2.Token:
		return v == nil
	case *Profile:
		return v == nil
	default:
		return false
	}
}
