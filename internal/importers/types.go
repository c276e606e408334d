package importers

import (
	"errors"
	"time"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// Supported export sources.
const (
	SourceChatGPT = "chatgpt"
	SourceClaude  = "claude"
	SourceGemini  = "gemini"
	SourceCopilot = "copilot"
)

var (
	// ErrUnsupportedFormat is returned when the declared format or source
	// has no registered adapter. Fatal to the whole run.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrMalformedExport is returned when the payload violates the
	// top-level schema of the declared source. Fatal to the whole run.
	ErrMalformedExport = errors.New("malformed export")
)

// RawExport is the vendor-neutral result of parsing an export file.
// Adapters convert each vendor's native layout into this shape; everything
// downstream (linearizer, merge resolver) is vendor-agnostic.
type RawExport struct {
	Source        string
	Conversations []RawConversation
}

// RawConversation is a single conversation as a graph of nodes keyed by id.
// Vendors with flat message lists are synthesized into a parent-linked
// chain so that all sources meet the same contract.
type RawConversation struct {
	SourceID      string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CurrentLeafID string // Active terminal node; empty triggers the linearizer fallback
	Mapping       map[string]*RawNode
	RawJSON       string // Original conversation object, persisted verbatim
}

// RawNode is one node of the conversation graph. Message is nil for
// structural nodes (e.g. the synthetic root ChatGPT exports carry).
type RawNode struct {
	ID          string
	ParentID    string // empty for root
	ChildrenIDs []string
	Message     *RawMessage
}

// RawMessage is the payload of a node before normalization.
type RawMessage struct {
	SourceID    string
	Role        entities.Role
	Parts       []string // Ordered content parts; joined by the linearizer
	ContentType string
	Model       string
	Hidden      bool // Vendor marked the message as not part of the visible transcript
	CreatedAt   time.Time
}
