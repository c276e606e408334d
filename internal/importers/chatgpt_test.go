package importers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/chatarchive/internal/entities"
)

const chatGPTExportFixture = `[
  {
    "id": "conv-1",
    "title": "Trip planning",
    "create_time": 1700000000,
    "update_time": 1700000500,
    "current_node": "n3",
    "mapping": {
      "root": {"id": "root", "parent": null, "children": ["n1"], "message": null},
      "n1": {
        "id": "n1", "parent": "root", "children": ["n2", "n2b"],
        "message": {
          "id": "m1",
          "author": {"role": "user"},
          "create_time": 1700000010,
          "content": {"content_type": "text", "parts": ["Plan me a trip"]},
          "metadata": {}
        }
      },
      "n2": {
        "id": "n2", "parent": "n1", "children": ["n3"],
        "message": {
          "id": "m2",
          "author": {"role": "assistant"},
          "create_time": 1700000020,
          "content": {"content_type": "text", "parts": ["Where to?"]},
          "metadata": {"model_slug": "gpt-4o"}
        }
      },
      "n2b": {
        "id": "n2b", "parent": "n1", "children": [],
        "message": {
          "id": "m2b",
          "author": {"role": "assistant"},
          "create_time": 1700000015,
          "content": {"content_type": "text", "parts": ["Abandoned answer"]},
          "metadata": {"model_slug": "gpt-4o"}
        }
      },
      "n3": {
        "id": "n3", "parent": "n2", "children": [],
        "message": {
          "id": "m3",
          "author": {"role": "user"},
          "create_time": 1700000030,
          "content": {"content_type": "text", "parts": ["Lisbon", "in May"]},
          "metadata": {}
        }
      }
    }
  }
]`

func TestParseChatGPTExport(t *testing.T) {
	export, err := ParseChatGPTExport([]byte(chatGPTExportFixture))
	require.NoError(t, err)

	assert.Equal(t, SourceChatGPT, export.Source)
	require.Len(t, export.Conversations, 1)

	conv := export.Conversations[0]
	assert.Equal(t, "conv-1", conv.SourceID)
	assert.Equal(t, "Trip planning", conv.Title)
	assert.Equal(t, "n3", conv.CurrentLeafID)
	assert.Len(t, conv.Mapping, 5)
	assert.NotEmpty(t, conv.RawJSON)
	assert.Equal(t, int64(1700000000), conv.CreatedAt.Unix())
	assert.Equal(t, int64(1700000500), conv.UpdatedAt.Unix())

	root := conv.Mapping["root"]
	require.NotNil(t, root)
	assert.Nil(t, root.Message)
	assert.Empty(t, root.ParentID)

	n2 := conv.Mapping["n2"]
	require.NotNil(t, n2)
	require.NotNil(t, n2.Message)
	assert.Equal(t, "n1", n2.ParentID)
	assert.Equal(t, entities.RoleAssistant, n2.Message.Role)
	assert.Equal(t, "gpt-4o", n2.Message.Model)

	n3 := conv.Mapping["n3"]
	require.NotNil(t, n3)
	assert.Equal(t, []string{"Lisbon", "in May"}, n3.Message.Parts)
}

func TestParseChatGPTExport_MissingMapping(t *testing.T) {
	payload := `[{"id": "conv-1", "title": "No tree"}]`

	_, err := ParseChatGPTExport([]byte(payload))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedExport)
}

func TestParseChatGPTExport_HiddenContentTypes(t *testing.T) {
	payload := `[{
      "id": "conv-1",
      "title": "Hidden",
      "current_node": "n1",
      "mapping": {
        "n1": {
          "id": "n1", "parent": null, "children": [],
          "message": {
            "id": "m1",
            "author": {"role": "user"},
            "content": {"content_type": "user_editable_context", "parts": ["custom instructions"]},
            "metadata": {}
          }
        }
      }
    }]`

	export, err := ParseChatGPTExport([]byte(payload))
	require.NoError(t, err)

	msg := export.Conversations[0].Mapping["n1"].Message
	require.NotNil(t, msg)
	assert.True(t, msg.Hidden)
}

func TestParseChatGPTExport_AttachmentParts(t *testing.T) {
	payload := `[{
      "id": "conv-1",
      "current_node": "n1",
      "mapping": {
        "n1": {
          "id": "n1", "parent": null, "children": [],
          "message": {
            "id": "m1",
            "author": {"role": "user"},
            "content": {"content_type": "multimodal_text", "parts": [
              {"content_type": "image_asset_pointer", "asset_pointer": "file-service://abc"},
              "look at this"
            ]},
            "metadata": {}
          }
        }
      }
    }]`

	export, err := ParseChatGPTExport([]byte(payload))
	require.NoError(t, err)

	msg := export.Conversations[0].Mapping["n1"].Message
	require.NotNil(t, msg)
	assert.Equal(t, []string{"[image]", "look at this"}, msg.Parts)
}
