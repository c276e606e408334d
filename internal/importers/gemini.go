package importers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// Gemini/Bard takeout archives come in several shapes; field names vary
// between "messages", "turns" and "content". The adapter probes the known
// aliases and otherwise stays permissive.

type geminiConversation struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Title          string          `json:"title"`
	Name           string          `json:"name"`
	Model          string          `json:"model"`
	CreateTime     json.RawMessage `json:"create_time"`
	CreatedAt      json.RawMessage `json:"created_at"`
	Timestamp      json.RawMessage `json:"timestamp"`
	UpdateTime     json.RawMessage `json:"update_time"`
	UpdatedAt      json.RawMessage `json:"updated_at"`
	Messages       []geminiMessage `json:"messages"`
	Turns          []geminiMessage `json:"turns"`
	Content        []geminiMessage `json:"content"`
}

type geminiMessage struct {
	ID        string          `json:"id"`
	MessageID string          `json:"message_id"`
	Role      string          `json:"role"`
	Author    string          `json:"author"`
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Content   json.RawMessage `json:"content"`
	Message   string          `json:"message"`
	Prompt    string          `json:"prompt"`
	Response  string          `json:"response"`
	Model     string          `json:"model"`
	Timestamp json.RawMessage `json:"timestamp"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// ParseGeminiExport converts a Gemini export payload into a RawExport.
func ParseGeminiExport(data []byte) (*RawExport, error) {
	items, err := conversationItems(data)
	if err != nil {
		return nil, err
	}

	export := &RawExport{Source: SourceGemini}
	for i, item := range items {
		var conv geminiConversation
		if err := json.Unmarshal(item, &conv); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrMalformedExport, i, err)
		}

		sourceID := conv.ID
		if sourceID == "" {
			sourceID = conv.ConversationID
		}
		title := conv.Title
		if title == "" {
			title = conv.Name
		}

		createdAt := firstTimestamp(conv.CreateTime, conv.CreatedAt, conv.Timestamp)
		updatedAt := firstTimestamp(conv.UpdateTime, conv.UpdatedAt)

		rawMessages := conv.Messages
		if len(rawMessages) == 0 {
			rawMessages = conv.Turns
		}
		if len(rawMessages) == 0 {
			rawMessages = conv.Content
		}

		var messages []*RawMessage
		for _, msg := range rawMessages {
			content := geminiContent(msg)
			if strings.TrimSpace(content) == "" {
				continue
			}

			model := msg.Model
			if model == "" {
				model = conv.Model
			}
			if model == "" {
				model = "gemini"
			}

			msgID := msg.ID
			if msgID == "" {
				msgID = msg.MessageID
			}

			created := firstTimestamp(msg.Timestamp, msg.CreatedAt)
			if created.IsZero() {
				created = createdAt
			}

			messages = append(messages, &RawMessage{
				SourceID:    msgID,
				Role:        geminiRole(msg),
				Parts:       []string{content},
				ContentType: "text",
				Model:       model,
				CreatedAt:   created,
			})
		}

		mapping, leafID := synthesizeChain(messages)
		export.Conversations = append(export.Conversations, RawConversation{
			SourceID:      sourceID,
			Title:         title,
			CreatedAt:     createdAt,
			UpdatedAt:     updatedAt,
			CurrentLeafID: leafID,
			Mapping:       mapping,
			RawJSON:       string(item),
		})
	}

	return export, nil
}

func geminiRole(msg geminiMessage) entities.Role {
	role := msg.Role
	if role == "" {
		role = msg.Author
	}
	if role == "" {
		role = msg.Sender
	}

	switch strings.ToLower(role) {
	case "user", "human":
		return entities.RoleUser
	case "model", "assistant", "ai", "gemini", "bard":
		return entities.RoleAssistant
	}

	if msg.Prompt != "" {
		return entities.RoleUser
	}
	return entities.RoleAssistant
}

// geminiContent extracts text from the message, probing the aliases the
// takeout format uses. Nested content may be a string, an object with a
// text field, or a list of parts.
func geminiContent(msg geminiMessage) string {
	for _, candidate := range []string{msg.Text, msg.Message, msg.Prompt, msg.Response} {
		if candidate != "" {
			return candidate
		}
	}

	if len(msg.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		return s
	}

	var nested struct {
		Text  string   `json:"text"`
		Parts []string `json:"parts"`
	}
	if err := json.Unmarshal(msg.Content, &nested); err == nil {
		if nested.Text != "" {
			return nested.Text
		}
		if len(nested.Parts) > 0 {
			return strings.Join(nested.Parts, "\n")
		}
	}

	var parts []string
	if err := json.Unmarshal(msg.Content, &parts); err == nil {
		return strings.Join(parts, "\n")
	}

	return ""
}
