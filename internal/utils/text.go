package utils

import "strings"

const maxTitleLength = 60

// TitleFromContent derives a conversation title from message content:
// first line, trimmed, truncated to a displayable length.
func TitleFromContent(content string) string {
	title := content
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength]) + "..."
	}
	return title
}
