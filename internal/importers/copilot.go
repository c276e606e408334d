package importers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// Copilot chat exports vary between the VS Code and github.com flavours:
// messages may be called "exchanges" or "turns", roles may be
// question/answer pairs, and code-heavy answers are tagged as such.

type copilotConversation struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"sessionId"`
	ConversationID string           `json:"conversationId"`
	Title          string           `json:"title"`
	Name           string           `json:"name"`
	CreatedAt      json.RawMessage  `json:"createdAt"`
	CreatedAtSnake json.RawMessage  `json:"created_at"`
	StartTime      json.RawMessage  `json:"startTime"`
	UpdatedAt      json.RawMessage  `json:"updatedAt"`
	UpdatedAtSnake json.RawMessage  `json:"updated_at"`
	LastMessage    json.RawMessage  `json:"lastMessageTime"`
	Messages       []copilotMessage `json:"messages"`
	Exchanges      []copilotMessage `json:"exchanges"`
	Turns          []copilotMessage `json:"turns"`
}

type copilotMessage struct {
	ID        string          `json:"id"`
	MessageID string          `json:"messageId"`
	Role      string          `json:"role"`
	Author    string          `json:"author"`
	Sender    string          `json:"sender"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Message   string          `json:"message"`
	Response  string          `json:"response"`
	Request   string          `json:"request"`
	Query     string          `json:"query"`
	Model     string          `json:"model"`
	Timestamp json.RawMessage `json:"timestamp"`
	CreatedAt json.RawMessage `json:"createdAt"`
}

// ParseCopilotExport converts a GitHub Copilot chat export into a RawExport.
func ParseCopilotExport(data []byte) (*RawExport, error) {
	items, err := conversationItems(data)
	if err != nil {
		return nil, err
	}

	export := &RawExport{Source: SourceCopilot}
	for i, item := range items {
		var conv copilotConversation
		if err := json.Unmarshal(item, &conv); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrMalformedExport, i, err)
		}

		sourceID := conv.ID
		if sourceID == "" {
			sourceID = conv.SessionID
		}
		if sourceID == "" {
			sourceID = conv.ConversationID
		}
		title := conv.Title
		if title == "" {
			title = conv.Name
		}

		createdAt := firstTimestamp(conv.CreatedAt, conv.CreatedAtSnake, conv.StartTime)
		updatedAt := firstTimestamp(conv.UpdatedAt, conv.UpdatedAtSnake, conv.LastMessage)

		rawMessages := conv.Messages
		if len(rawMessages) == 0 {
			rawMessages = conv.Exchanges
		}
		if len(rawMessages) == 0 {
			rawMessages = conv.Turns
		}

		var messages []*RawMessage
		for _, msg := range rawMessages {
			content := copilotContent(msg)
			if strings.TrimSpace(content) == "" {
				continue
			}

			model := msg.Model
			if model == "" {
				model = "copilot"
			}

			msgID := msg.ID
			if msgID == "" {
				msgID = msg.MessageID
			}

			created := firstTimestamp(msg.Timestamp, msg.CreatedAt)
			if created.IsZero() {
				created = createdAt
			}

			contentType := "text"
			if strings.Contains(content, "```") {
				contentType = "code"
			}

			messages = append(messages, &RawMessage{
				SourceID:    msgID,
				Role:        copilotRole(msg),
				Parts:       []string{content},
				ContentType: contentType,
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

func copilotRole(msg copilotMessage) entities.Role {
	role := msg.Role
	if role == "" {
		role = msg.Author
	}
	if role == "" {
		role = msg.Sender
	}
	if role == "" {
		role = msg.Type
	}

	switch strings.ToLower(role) {
	case "user", "human", "question":
		return entities.RoleUser
	case "assistant", "copilot", "ai", "answer", "response":
		return entities.RoleAssistant
	case "system", "context":
		return entities.RoleSystem
	}

	if msg.Request != "" || msg.Query != "" {
		return entities.RoleUser
	}
	return entities.RoleAssistant
}

// copilotContent extracts text from the message. Content may be a plain
// string, an object with text/value fields, or a list of parts.
func copilotContent(msg copilotMessage) string {
	if len(msg.Content) > 0 {
		var s string
		if err := json.Unmarshal(msg.Content, &s); err == nil && s != "" {
			return s
		}

		var nested struct {
			Text    string `json:"text"`
			Value   string `json:"value"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(msg.Content, &nested); err == nil {
			for _, candidate := range []string{nested.Text, nested.Value, nested.Content} {
				if candidate != "" {
					return candidate
				}
			}
		}

		var parts []json.RawMessage
		if err := json.Unmarshal(msg.Content, &parts); err == nil {
			joined := make([]string, 0, len(parts))
			for _, part := range parts {
				var ps string
				if err := json.Unmarshal(part, &ps); err == nil {
					joined = append(joined, ps)
					continue
				}
				var pn struct {
					Text  string `json:"text"`
					Value string `json:"value"`
				}
				if err := json.Unmarshal(part, &pn); err == nil {
					if pn.Text != "" {
						joined = append(joined, pn.Text)
					} else if pn.Value != "" {
						joined = append(joined, pn.Value)
					}
				}
			}
			if len(joined) > 0 {
				return strings.Join(joined, "\n")
			}
		}
	}

	for _, candidate := range []string{msg.Text, msg.Message, msg.Response, msg.Request, msg.Query} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
