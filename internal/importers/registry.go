package importers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type parseFunc func(data []byte) (*RawExport, error)

var adapters = map[string]parseFunc{
	SourceChatGPT: ParseChatGPTExport,
	SourceClaude:  ParseClaudeExport,
	SourceGemini:  ParseGeminiExport,
	SourceCopilot: ParseCopilotExport,
}

// Parse converts raw export bytes into a RawExport using the adapter for
// the given source. Only JSON payloads are understood; the source may be
// empty or "auto" to sniff it from the payload shape.
func Parse(data []byte, source, format string) (*RawExport, error) {
	if !strings.EqualFold(format, "json") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if source == "" || source == "auto" {
		detected, err := DetectSource(data)
		if err != nil {
			return nil, err
		}
		source = detected
	}

	adapter, ok := adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrUnsupportedFormat, source)
	}

	return adapter(data)
}

// DetectSource sniffs the vendor from the payload shape. ChatGPT exports
// carry a node mapping, Claude exports a chat_messages list, Copilot
// exports exchanges or session ids; everything else falls through to the
// permissive Gemini adapter.
func DetectSource(data []byte) (string, error) {
	first, err := firstConversation(data)
	if err != nil {
		return "", err
	}

	if _, ok := first["mapping"]; ok {
		return SourceChatGPT, nil
	}
	if _, ok := first["chat_messages"]; ok {
		return SourceClaude, nil
	}
	if _, ok := first["exchanges"]; ok {
		return SourceCopilot, nil
	}
	if _, ok := first["sessionId"]; ok {
		return SourceCopilot, nil
	}
	return SourceGemini, nil
}

// firstConversation returns the first conversation object of the payload,
// unwrapping the common {"conversations": [...]} envelope.
func firstConversation(data []byte) (map[string]json.RawMessage, error) {
	items, err := conversationItems(data)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: export contains no conversations", ErrMalformedExport)
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(items[0], &first); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	return first, nil
}

// conversationItems splits the payload into raw per-conversation objects.
// Accepts a bare array, a single conversation object, or an object with a
// "conversations" (or "data") array.
func conversationItems(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedExport)
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	for _, key := range []string{"conversations", "data", "chats", "sessions", "history"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %q is not an array", ErrMalformedExport, key)
		}
		return items, nil
	}

	// Single conversation object
	return []json.RawMessage{trimmed}, nil
}
