// Package linearize reduces a conversation's node graph to the single
// ordered message sequence reachable from the root to the active leaf.
// Sibling branches (abandoned edits and regenerations) are discarded on
// purpose: the archive keeps one transcript per conversation.
package linearize

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/importers"
	"github.com/mrlokans/chatarchive/internal/utils"
)

var (
	// ErrCycleDetected means the node graph revisits a node while walking
	// parent pointers. The export is malformed; the conversation is never
	// silently truncated.
	ErrCycleDetected = errors.New("cycle detected in conversation graph")

	// ErrMissingLeaf means no terminal node could be resolved, neither
	// from the declared leaf pointer nor from the fallback heuristic.
	ErrMissingLeaf = errors.New("no leaf node found in conversation graph")
)

// NormalizedMessage is one transcript entry in root-to-leaf order.
type NormalizedMessage struct {
	SourceID    string
	Role        entities.Role
	Content     string
	ContentType string
	Model       string
	CreatedAt   time.Time
	OrderIndex  int
}

// Transcript is the canonical linear form of one conversation.
type Transcript struct {
	Source    string
	SourceID  string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	RawJSON   string
	Messages  []NormalizedMessage
}

// Linearize walks the conversation graph backward from the active leaf,
// reverses the collected path and normalizes the message payloads.
func Linearize(source string, conv *importers.RawConversation) (*Transcript, error) {
	leafID, err := resolveLeaf(conv)
	if err != nil {
		return nil, err
	}

	path, err := walkToRoot(conv.Mapping, leafID)
	if err != nil {
		return nil, err
	}

	transcript := &Transcript{
		Source:    source,
		SourceID:  conv.SourceID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		RawJSON:   conv.RawJSON,
	}

	for _, node := range path {
		msg := node.Message
		if msg == nil {
			continue // structural root
		}
		if !visible(msg) {
			continue
		}

		content := strings.Join(msg.Parts, "\n")

		transcript.Messages = append(transcript.Messages, NormalizedMessage{
			SourceID:    msg.SourceID,
			Role:        msg.Role,
			Content:     content,
			ContentType: msg.ContentType,
			Model:       msg.Model,
			CreatedAt:   msg.CreatedAt,
			OrderIndex:  len(transcript.Messages),
		})
	}

	if transcript.Title == "" {
		transcript.Title = fallbackTitle(transcript.Messages)
	}

	return transcript, nil
}

// resolveLeaf returns the declared active leaf, or falls back to the leaf
// whose message create_time is latest when the pointer is absent or
// dangling.
func resolveLeaf(conv *importers.RawConversation) (string, error) {
	if conv.CurrentLeafID != "" {
		if _, ok := conv.Mapping[conv.CurrentLeafID]; ok {
			return conv.CurrentLeafID, nil
		}
		log.Printf("Conversation %s: declared leaf %s not in mapping, falling back to latest leaf",
			conv.SourceID, conv.CurrentLeafID)
	} else {
		log.Printf("Conversation %s: no leaf pointer, falling back to latest leaf", conv.SourceID)
	}

	var bestID string
	var bestTime time.Time
	for id, node := range conv.Mapping {
		if len(node.ChildrenIDs) > 0 {
			continue
		}
		var t time.Time
		if node.Message != nil {
			t = node.Message.CreatedAt
		}
		if bestID == "" || t.After(bestTime) {
			bestID = id
			bestTime = t
		}
	}

	if bestID == "" {
		return "", fmt.Errorf("%w: conversation %s", ErrMissingLeaf, conv.SourceID)
	}
	return bestID, nil
}

// walkToRoot follows parent pointers from the leaf, guarding against
// cycles with a visited set, and returns the path in root-to-leaf order.
// A parent pointing outside the mapping terminates the walk as if the
// root were reached.
func walkToRoot(mapping map[string]*importers.RawNode, leafID string) ([]*importers.RawNode, error) {
	visited := make(map[string]bool, len(mapping))
	var reversed []*importers.RawNode

	id := leafID
	for id != "" {
		if visited[id] {
			return nil, fmt.Errorf("%w: node %s revisited", ErrCycleDetected, id)
		}
		visited[id] = true

		node, ok := mapping[id]
		if !ok {
			break
		}
		reversed = append(reversed, node)
		id = node.ParentID
	}

	path := make([]*importers.RawNode, len(reversed))
	for i, node := range reversed {
		path[len(reversed)-1-i] = node
	}
	return path, nil
}

// visible reports whether a message belongs in the transcript. Hidden
// vendor markers are dropped, as are system messages with no visible
// content.
func visible(msg *importers.RawMessage) bool {
	if msg.Hidden {
		return false
	}
	if msg.Role == entities.RoleSystem {
		return strings.TrimSpace(strings.Join(msg.Parts, "\n")) != ""
	}
	return true
}

func fallbackTitle(messages []NormalizedMessage) string {
	for _, msg := range messages {
		if msg.Role == entities.RoleUser && strings.TrimSpace(msg.Content) != "" {
			return utils.TitleFromContent(msg.Content)
		}
	}
	return "Untitled Conversation"
}
