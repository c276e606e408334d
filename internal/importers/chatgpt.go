package importers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// ChatGPT exports model each conversation as a tree of nodes keyed by id,
// with parent/children links and a current_node pointer marking the active
// leaf. Abandoned edits and regenerations live on sibling branches.

type chatGPTConversation struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Title          string                 `json:"title"`
	CreateTime     float64                `json:"create_time"`
	UpdateTime     float64                `json:"update_time"`
	CurrentNode    string                 `json:"current_node"`
	Mapping        map[string]chatGPTNode `json:"mapping"`
}

type chatGPTNode struct {
	ID       string          `json:"id"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
	Message  *chatGPTMessage `json:"message"`
}

type chatGPTMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
	} `json:"content"`
	Metadata struct {
		ModelSlug string `json:"model_slug"`
		Hidden    bool   `json:"is_visually_hidden_from_conversation"`
	} `json:"metadata"`
}

// ParseChatGPTExport converts a ChatGPT export payload into a RawExport.
// Each conversation must carry a node mapping; graph well-formedness
// beyond that (cycles, dangling parents) is the linearizer's concern.
func ParseChatGPTExport(data []byte) (*RawExport, error) {
	items, err := conversationItems(data)
	if err != nil {
		return nil, err
	}

	export := &RawExport{Source: SourceChatGPT}
	for i, item := range items {
		var conv chatGPTConversation
		if err := json.Unmarshal(item, &conv); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrMalformedExport, i, err)
		}
		if len(conv.Mapping) == 0 {
			return nil, fmt.Errorf("%w: conversation %d has no node mapping", ErrMalformedExport, i)
		}

		sourceID := conv.ID
		if sourceID == "" {
			sourceID = conv.ConversationID
		}

		mapping := make(map[string]*RawNode, len(conv.Mapping))
		for id, node := range conv.Mapping {
			raw := &RawNode{
				ID:          id,
				ChildrenIDs: node.Children,
			}
			if node.Parent != nil {
				raw.ParentID = *node.Parent
			}
			if node.Message != nil {
				raw.Message = convertChatGPTMessage(node.Message)
			}
			mapping[id] = raw
		}

		export.Conversations = append(export.Conversations, RawConversation{
			SourceID:      sourceID,
			Title:         conv.Title,
			CreatedAt:     parseUnixTimestamp(conv.CreateTime),
			UpdatedAt:     parseUnixTimestamp(conv.UpdateTime),
			CurrentLeafID: conv.CurrentNode,
			Mapping:       mapping,
			RawJSON:       string(item),
		})
	}

	return export, nil
}

func convertChatGPTMessage(msg *chatGPTMessage) *RawMessage {
	raw := &RawMessage{
		SourceID:    msg.ID,
		Role:        entities.Role(msg.Author.Role),
		ContentType: msg.Content.ContentType,
		Model:       msg.Metadata.ModelSlug,
		Hidden:      msg.Metadata.Hidden,
	}
	if raw.ContentType == "" {
		raw.ContentType = "text"
	}
	if msg.CreateTime != nil {
		raw.CreatedAt = parseUnixTimestamp(*msg.CreateTime)
	}

	// Context injections and error frames are never part of the visible
	// transcript.
	switch msg.Content.ContentType {
	case "user_editable_context", "system_error":
		raw.Hidden = true
	}

	for _, part := range msg.Content.Parts {
		raw.Parts = append(raw.Parts, convertContentPart(part))
	}

	return raw
}

// convertContentPart renders one content part as text. String parts pass
// through; binary attachments are reduced to text placeholders since the
// archive stores no binary payloads.
func convertContentPart(part json.RawMessage) string {
	var s string
	if err := json.Unmarshal(part, &s); err == nil {
		return s
	}

	var asset struct {
		ContentType string `json:"content_type"`
	}
	if err := json.Unmarshal(part, &asset); err == nil {
		switch {
		case strings.Contains(asset.ContentType, "image"):
			return "[image]"
		case strings.Contains(asset.ContentType, "audio"):
			return "[audio]"
		case strings.Contains(asset.ContentType, "video"):
			return "[video]"
		}
	}
	return "[attachment]"
}
