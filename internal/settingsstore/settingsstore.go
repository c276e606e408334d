// Package settingsstore exposes typed import settings over the key-value
// settings table. Priority: database > environment > default.
package settingsstore

import (
	"os"
	"strconv"

	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// ImportSettings is the snapshot of import policy consulted by one import
// run. Snapshots are taken once per run so a settings edit mid-run cannot
// produce an inconsistent partial policy.
type ImportSettings struct {
	AutoMergeDuplicates    bool   `json:"auto_merge_duplicates"`
	KeepSeparate           bool   `json:"keep_separate"`
	SkipEmptyConversations bool   `json:"skip_empty_conversations"`
	AllowedFormats         string `json:"allowed_formats"` // Comma-separated
	DefaultFormat          string `json:"default_format"`
}

type SettingsStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Current returns the import settings snapshot for a run.
func (s *SettingsStore) Current() ImportSettings {
	return ImportSettings{
		AutoMergeDuplicates:    s.getBool(entities.SettingKeyAutoMergeDuplicates, "IMPORT_AUTO_MERGE_DUPLICATES", false),
		KeepSeparate:           s.getBool(entities.SettingKeyKeepSeparate, "IMPORT_KEEP_SEPARATE", true),
		SkipEmptyConversations: s.getBool(entities.SettingKeySkipEmptyConversations, "IMPORT_SKIP_EMPTY_CONVERSATIONS", true),
		AllowedFormats:         s.getString(entities.SettingKeyAllowedFormats, "IMPORT_ALLOWED_FORMATS", "json"),
		DefaultFormat:          s.getString(entities.SettingKeyDefaultFormat, "IMPORT_DEFAULT_FORMAT", "json"),
	}
}

// Update persists the given settings to the database.
func (s *SettingsStore) Update(settings ImportSettings) error {
	values := map[string]string{
		entities.SettingKeyAutoMergeDuplicates:    strconv.FormatBool(settings.AutoMergeDuplicates),
		entities.SettingKeyKeepSeparate:           strconv.FormatBool(settings.KeepSeparate),
		entities.SettingKeySkipEmptyConversations: strconv.FormatBool(settings.SkipEmptyConversations),
		entities.SettingKeyAllowedFormats:         settings.AllowedFormats,
		entities.SettingKeyDefaultFormat:          settings.DefaultFormat,
	}

	for key, value := range values {
		if err := s.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingsStore) set(key, value string) error {
	var setting entities.Setting
	result := s.db.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return s.db.Save(&setting).Error
}

func (s *SettingsStore) get(key string) (string, bool) {
	var setting entities.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

func (s *SettingsStore) getString(key, envVar, fallback string) string {
	if value, ok := s.get(key); ok {
		return value
	}
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return fallback
}

func (s *SettingsStore) getBool(key, envVar string, fallback bool) bool {
	raw, ok := s.get(key)
	if !ok {
		raw = os.Getenv(envVar)
	}
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
