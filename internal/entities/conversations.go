package entities

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusSuccess    ImportStatus = "success"
	ImportStatusPartial    ImportStatus = "partial"
	ImportStatusFailure    ImportStatus = "failure"
)

// Conversation is one archived chat. The natural key is (source, source_id);
// multiple rows may share it only when imported with the keep-separate policy.
type Conversation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Source       string    `gorm:"index;size:50" json:"source"`     // e.g., "chatgpt", "claude"
	SourceID     string    `gorm:"index;size:255" json:"source_id"` // Original ID from export
	Title        string    `gorm:"size:255" json:"title"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `gorm:"default:0" json:"message_count"`
	RawJSON      string    `gorm:"type:text" json:"-"` // Original export object, kept for re-export
	Indexed      bool      `gorm:"index;default:false" json:"indexed"`

	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Message is a single turn inside a conversation. OrderIndex is 0-based and
// contiguous within a conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index:idx_messages_conversation_order,priority:1" json:"conversation_id"`
	SourceID       string    `gorm:"size:255" json:"source_id,omitempty"` // Original message ID
	Role           Role      `gorm:"index;size:50" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	ContentType    string    `gorm:"size:50;default:'text'" json:"content_type"` // text, code, image, etc.
	Model          string    `gorm:"size:100" json:"model,omitempty"`            // e.g., "gpt-4", "claude-3"
	CreatedAt      time.Time `json:"created_at"`
	OrderIndex     int       `gorm:"index:idx_messages_conversation_order,priority:2" json:"order_index"`
}

// ImportHistory records one import attempt. Rows are append-only: created
// with status "processing" and finalized exactly once.
type ImportHistory struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Filename      string       `gorm:"size:255" json:"filename"`
	SourceType    string       `gorm:"index;size:50" json:"source_type"` // chatgpt, claude, etc.
	FileFormat    string       `gorm:"size:50" json:"file_format"`       // json, csv, xml
	Status        ImportStatus `gorm:"index;size:50" json:"status"`
	CreatedAt     time.Time    `gorm:"index" json:"created_at"`
	ImportedCount int          `gorm:"default:0" json:"imported_count"`
	ErrorMessage  string       `gorm:"type:text" json:"error_message,omitempty"`
}

// SearchToken is one entry of the derived inverted index. Storage rows are
// the source of truth; the indexer rebuilds a conversation's tokens
// wholesale on every upsert.
type SearchToken struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ConversationID uint   `gorm:"uniqueIndex:idx_search_tokens_conv_token,priority:1" json:"conversation_id"`
	Token          string `gorm:"uniqueIndex:idx_search_tokens_conv_token,priority:2;index;size:100" json:"token"`
	Frequency      int    `gorm:"default:1" json:"frequency"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Message) TableName() string {
	return "messages"
}

func (ImportHistory) TableName() string {
	return "import_history"
}

func (SearchToken) TableName() string {
	return "search_tokens"
}
