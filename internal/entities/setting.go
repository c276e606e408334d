package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Import behaviour settings
	SettingKeyAutoMergeDuplicates    = "import_auto_merge_duplicates"
	SettingKeyKeepSeparate           = "import_keep_separate"
	SettingKeySkipEmptyConversations = "import_skip_empty_conversations"

	// File format settings
	SettingKeyAllowedFormats = "import_allowed_formats"
	SettingKeyDefaultFormat  = "import_default_format"
)
