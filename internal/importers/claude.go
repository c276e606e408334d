package importers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// Claude exports carry a flat chat_messages list per conversation. The
// adapter synthesizes the parent-linked chain the engine expects.

type claudeConversation struct {
	UUID         string          `json:"uuid"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Model        string          `json:"model"`
	CreatedAt    json.RawMessage `json:"created_at"`
	UpdatedAt    json.RawMessage `json:"updated_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string          `json:"uuid"`
	ID        string          `json:"id"`
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// ParseClaudeExport converts a Claude export payload into a RawExport.
func ParseClaudeExport(data []byte) (*RawExport, error) {
	items, err := conversationItems(data)
	if err != nil {
		return nil, err
	}

	export := &RawExport{Source: SourceClaude}
	for i, item := range items {
		var conv claudeConversation
		if err := json.Unmarshal(item, &conv); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrMalformedExport, i, err)
		}

		sourceID := conv.UUID
		if sourceID == "" {
			sourceID = conv.ID
		}
		title := conv.Name
		if title == "" {
			title = conv.Title
		}
		model := conv.Model
		if model == "" {
			model = "claude"
		}

		var messages []*RawMessage
		for _, msg := range conv.ChatMessages {
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			role := entities.RoleAssistant
			if msg.Sender == "human" {
				role = entities.RoleUser
			}
			msgID := msg.UUID
			if msgID == "" {
				msgID = msg.ID
			}
			messages = append(messages, &RawMessage{
				SourceID:    msgID,
				Role:        role,
				Parts:       []string{msg.Text},
				ContentType: "text",
				Model:       model,
				CreatedAt:   parseTimestamp(msg.CreatedAt),
			})
		}

		mapping, leafID := synthesizeChain(messages)
		export.Conversations = append(export.Conversations, RawConversation{
			SourceID:      sourceID,
			Title:         title,
			CreatedAt:     parseTimestamp(conv.CreatedAt),
			UpdatedAt:     parseTimestamp(conv.UpdatedAt),
			CurrentLeafID: leafID,
			Mapping:       mapping,
			RawJSON:       string(item),
		})
	}

	return export, nil
}
