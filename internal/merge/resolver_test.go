package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/linearize"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

func transcript(messages ...linearize.NormalizedMessage) *linearize.Transcript {
	for i := range messages {
		messages[i].OrderIndex = i
	}
	return &linearize.Transcript{
		Source:   "chatgpt",
		SourceID: "conv-1",
		Title:    "Test",
		Messages: messages,
	}
}

func msg(role entities.Role, content string) linearize.NormalizedMessage {
	return linearize.NormalizedMessage{Role: role, Content: content, ContentType: "text"}
}

func stored(id uint, messages ...linearize.NormalizedMessage) Existing {
	existing := Existing{
		Conversation: entities.Conversation{
			Source:   "chatgpt",
			SourceID: "conv-1",
		},
	}
	existing.Conversation.ID = id
	for i, m := range messages {
		existing.Messages = append(existing.Messages, entities.Message{
			ConversationID: id,
			Role:           m.Role,
			Content:        m.Content,
			OrderIndex:     i,
		})
	}
	return existing
}

func mergeSettings() settingsstore.ImportSettings {
	return settingsstore.ImportSettings{
		AutoMergeDuplicates:    true,
		KeepSeparate:           false,
		SkipEmptyConversations: true,
	}
}

func TestResolve_InsertWhenUnseen(t *testing.T) {
	t1 := transcript(msg(entities.RoleUser, "Hello"), msg(entities.RoleAssistant, "Hi"))

	ws, err := Resolve(t1, nil, mergeSettings())
	require.NoError(t, err)
	assert.Equal(t, KindInsert, ws.Kind)
}

func TestResolve_SkipEmptyConversation(t *testing.T) {
	ws, err := Resolve(transcript(), nil, mergeSettings())
	require.NoError(t, err)
	assert.Equal(t, KindSkip, ws.Kind)
	assert.Equal(t, "empty conversation", ws.SkipReason)
}

func TestResolve_EmptyConversationInsertedWhenNotSkipping(t *testing.T) {
	settings := mergeSettings()
	settings.SkipEmptyConversations = false

	ws, err := Resolve(transcript(), nil, settings)
	require.NoError(t, err)
	assert.Equal(t, KindInsert, ws.Kind)
}

func TestResolve_KeepSeparate(t *testing.T) {
	settings := mergeSettings()
	settings.KeepSeparate = true

	existing := stored(7, msg(entities.RoleUser, "Hello"))
	t1 := transcript(msg(entities.RoleUser, "Hello"))

	ws, err := Resolve(t1, []Existing{existing}, settings)
	require.NoError(t, err)
	assert.Equal(t, KindInsertSeparate, ws.Kind)
}

func TestResolve_SkipUnchanged(t *testing.T) {
	existing := stored(7,
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
	)
	t1 := transcript(
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
	)

	ws, err := Resolve(t1, []Existing{existing}, mergeSettings())
	require.NoError(t, err)
	assert.Equal(t, KindSkip, ws.Kind)
	assert.Equal(t, "no new messages", ws.SkipReason)
}

func TestResolve_SkipTruncatedReimport(t *testing.T) {
	existing := stored(7,
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
	)
	t1 := transcript(msg(entities.RoleUser, "Hello"))

	ws, err := Resolve(t1, []Existing{existing}, mergeSettings())
	require.NoError(t, err)
	assert.Equal(t, KindSkip, ws.Kind)
}

func TestResolve_AppendTail(t *testing.T) {
	existing := stored(7,
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
	)
	t1 := transcript(
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
		msg(entities.RoleUser, "How are you?"),
		msg(entities.RoleAssistant, "Fine"),
	)

	ws, err := Resolve(t1, []Existing{existing}, mergeSettings())
	require.NoError(t, err)
	assert.Equal(t, KindAppendTail, ws.Kind)
	assert.Equal(t, uint(7), ws.ExistingID)

	require.Len(t, ws.NewMessages, 2)
	assert.Equal(t, "How are you?", ws.NewMessages[0].Content)
	assert.Equal(t, 2, ws.NewMessages[0].OrderIndex)
	assert.Equal(t, 3, ws.NewMessages[1].OrderIndex)
}

func TestResolve_MergeConflict(t *testing.T) {
	existing := stored(7,
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Hi"),
	)
	t1 := transcript(
		msg(entities.RoleUser, "Hello"),
		msg(entities.RoleAssistant, "Different answer"),
		msg(entities.RoleUser, "More"),
	)

	_, err := Resolve(t1, []Existing{existing}, mergeSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMergeConflict)
}

func TestResolve_SkipWhenNeitherMergeNorSeparate(t *testing.T) {
	settings := settingsstore.ImportSettings{
		AutoMergeDuplicates:    false,
		KeepSeparate:           false,
		SkipEmptyConversations: true,
	}
	existing := stored(7, msg(entities.RoleUser, "Hello"))
	t1 := transcript(msg(entities.RoleUser, "Hello"), msg(entities.RoleAssistant, "Hi"))

	ws, err := Resolve(t1, []Existing{existing}, settings)
	require.NoError(t, err)
	assert.Equal(t, KindSkip, ws.Kind)
	assert.Equal(t, "already archived", ws.SkipReason)
}
