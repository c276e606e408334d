package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/importers"
	"github.com/mrlokans/chatarchive/internal/search"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

func setupImportService(t *testing.T) (*ImportService, *database.Database, *settingsstore.SettingsStore, func()) {
	t.Helper()
	dbPath := "./test_import_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	settings := settingsstore.New(db.DB)
	indexer := search.NewIndexer(db.DB)
	service := NewImportService(db, settings, indexer)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return service, db, settings, cleanup
}

// chatGPTConversationJSON renders a linear two-message ChatGPT
// conversation with the given id and message contents.
func chatGPTConversationJSON(id, question, answer string) string {
	return fmt.Sprintf(`{
      "id": %q,
      "title": "",
      "create_time": 1700000000,
      "update_time": 1700000100,
      "current_node": "n2",
      "mapping": {
        "root": {"id": "root", "parent": null, "children": ["n1"], "message": null},
        "n1": {
          "id": "n1", "parent": "root", "children": ["n2"],
          "message": {
            "id": "m1", "author": {"role": "user"}, "create_time": 1700000010,
            "content": {"content_type": "text", "parts": [%q]}, "metadata": {}
          }
        },
        "n2": {
          "id": "n2", "parent": "n1", "children": [],
          "message": {
            "id": "m2", "author": {"role": "assistant"}, "create_time": 1700000020,
            "content": {"content_type": "text", "parts": [%q]}, "metadata": {"model_slug": "gpt-4o"}
          }
        }
      }
    }`, id, question, answer)
}

func TestImportService_ImportChatGPTExport(t *testing.T) {
	service, db, _, cleanup := setupImportService(t)
	defer cleanup()

	payload := "[" + chatGPTConversationJSON("conv-1", "How do I cook rice?", "Rinse it first.") + "]"

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, entities.ImportStatusSuccess, result.Status)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Empty(t, result.Failed)
	require.Len(t, result.Imported, 1)

	conv := result.Imported[0]
	assert.Equal(t, "conv-1", conv.SourceID)
	// Title falls back to the first user message.
	assert.Equal(t, "How do I cook rice?", conv.Title)

	loaded, err := db.GetConversationByID(conv.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.True(t, loaded.Indexed)

	// The run is recorded in history.
	record, err := service.history.GetByID(result.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusSuccess, record.Status)
	assert.Equal(t, 1, record.ImportedCount)
}

func TestImportService_ImportedConversationIsSearchable(t *testing.T) {
	service, db, _, cleanup := setupImportService(t)
	defer cleanup()

	payload := "[" + chatGPTConversationJSON("conv-1", "Tell me about kubernetes", "It orchestrates containers.") + "]"

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)

	indexer := search.NewIndexer(db.DB)
	ids, err := indexer.Query("kubernetes")
	require.NoError(t, err)
	assert.Equal(t, []uint{result.Imported[0].ID}, ids)
}

func TestImportService_ReimportKeepSeparate(t *testing.T) {
	service, db, _, cleanup := setupImportService(t)
	defer cleanup()

	payload := "[" + chatGPTConversationJSON("conv-1", "Q", "A") + "]"

	_, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)

	// keep_separate is on by default: the duplicate becomes its own row.
	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)

	existing, err := db.FindByNaturalKey("chatgpt", "conv-1")
	require.NoError(t, err)
	assert.Len(t, existing, 2)
}

func TestImportService_ReimportSkipsWhenNoPolicyApplies(t *testing.T) {
	service, db, settings, cleanup := setupImportService(t)
	defer cleanup()

	require.NoError(t, settings.Update(settingsstore.ImportSettings{
		AutoMergeDuplicates:    false,
		KeepSeparate:           false,
		SkipEmptyConversations: true,
		AllowedFormats:         "json",
		DefaultFormat:          "json",
	}))

	payload := "[" + chatGPTConversationJSON("conv-1", "Q", "A") + "]"

	_, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusSuccess, result.Status)
	assert.Equal(t, 0, result.ImportedCount)
	assert.Equal(t, 1, result.Skipped)

	existing, err := db.FindByNaturalKey("chatgpt", "conv-1")
	require.NoError(t, err)
	assert.Len(t, existing, 1)
}

func TestImportService_AutoMergeAppendsTail(t *testing.T) {
	service, db, settings, cleanup := setupImportService(t)
	defer cleanup()

	require.NoError(t, settings.Update(settingsstore.ImportSettings{
		AutoMergeDuplicates:    true,
		KeepSeparate:           false,
		SkipEmptyConversations: true,
		AllowedFormats:         "json",
		DefaultFormat:          "json",
	}))

	payload := "[" + chatGPTConversationJSON("conv-1", "Q", "A") + "]"
	_, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)

	// The conversation grew: same prefix plus a follow-up exchange.
	extended := `[{
      "id": "conv-1",
      "create_time": 1700000000,
      "update_time": 1700000900,
      "current_node": "n4",
      "mapping": {
        "root": {"id": "root", "parent": null, "children": ["n1"], "message": null},
        "n1": {"id": "n1", "parent": "root", "children": ["n2"], "message": {"id": "m1", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["Q"]}, "metadata": {}}},
        "n2": {"id": "n2", "parent": "n1", "children": ["n3"], "message": {"id": "m2", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["A"]}, "metadata": {}}},
        "n3": {"id": "n3", "parent": "n2", "children": ["n4"], "message": {"id": "m3", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["Follow-up"]}, "metadata": {}}},
        "n4": {"id": "n4", "parent": "n3", "children": [], "message": {"id": "m4", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["Answer"]}, "metadata": {}}}
      }
    }]`

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(extended))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)

	existing, err := db.FindByNaturalKey("chatgpt", "conv-1")
	require.NoError(t, err)
	require.Len(t, existing, 1)
	require.Len(t, existing[0].Messages, 4)
	assert.Equal(t, "Follow-up", existing[0].Messages[2].Content)
	assert.Equal(t, 4, existing[0].Conversation.MessageCount)
}

func TestImportService_PartialStatusOnPerConversationFailure(t *testing.T) {
	service, _, _, cleanup := setupImportService(t)
	defer cleanup()

	// Second conversation has a parent cycle the linearizer must reject.
	cyclic := `{
      "id": "conv-bad",
      "current_node": "x2",
      "mapping": {
        "x1": {"id": "x1", "parent": "x2", "children": ["x2"], "message": {"id": "b1", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["loop"]}, "metadata": {}}},
        "x2": {"id": "x2", "parent": "x1", "children": ["x1"], "message": {"id": "b2", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["loop"]}, "metadata": {}}}
      }
    }`
	payload := "[" + chatGPTConversationJSON("conv-good", "Q", "A") + "," + cyclic + "]"

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, entities.ImportStatusPartial, result.Status)
	assert.Equal(t, 1, result.ImportedCount)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "conv-bad", result.Failed[0].SourceID)

	record, err := service.history.GetByID(result.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusPartial, record.Status)
	assert.Contains(t, record.ErrorMessage, "conv-bad")
}

func TestImportService_FailureStatusWhenNothingSucceeds(t *testing.T) {
	service, _, _, cleanup := setupImportService(t)
	defer cleanup()

	cyclic := `[{
      "id": "conv-bad",
      "current_node": "x2",
      "mapping": {
        "x1": {"id": "x1", "parent": "x2", "children": ["x2"], "message": {"id": "b1", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["loop"]}, "metadata": {}}},
        "x2": {"id": "x2", "parent": "x1", "children": ["x1"], "message": {"id": "b2", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["loop"]}, "metadata": {}}}
      }
    }]`

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(cyclic))
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusFailure, result.Status)
	assert.Zero(t, result.ImportedCount)
}

func TestImportService_UnsupportedFormatFailsRun(t *testing.T) {
	service, _, _, cleanup := setupImportService(t)
	defer cleanup()

	result, err := service.Import(context.Background(), "export.txt", "chatgpt", "txt", []byte("whatever"))
	require.Error(t, err)
	assert.ErrorIs(t, err, importers.ErrUnsupportedFormat)

	record, getErr := service.history.GetByID(result.HistoryID)
	require.NoError(t, getErr)
	assert.Equal(t, entities.ImportStatusFailure, record.Status)
	assert.Zero(t, record.ImportedCount)
}

func TestImportService_MalformedExportFailsRun(t *testing.T) {
	service, _, _, cleanup := setupImportService(t)
	defer cleanup()

	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(`{"broken`))
	require.Error(t, err)
	assert.ErrorIs(t, err, importers.ErrMalformedExport)
	assert.Equal(t, entities.ImportStatusFailure, result.Status)
}

func TestImportService_CancelledContextStopsRun(t *testing.T) {
	service, db, _, cleanup := setupImportService(t)
	defer cleanup()

	payload := "[" +
		chatGPTConversationJSON("conv-1", "Q1", "A1") + "," +
		chatGPTConversationJSON("conv-2", "Q2", "A2") + "]"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.Import(ctx, "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, result.NotAttempted)
	assert.Zero(t, result.ImportedCount)

	total, _, err := db.GetStats()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestImportService_Reindex(t *testing.T) {
	service, db, _, cleanup := setupImportService(t)
	defer cleanup()

	payload := "[" + chatGPTConversationJSON("conv-1", "about terraform", "state files") + "]"
	result, err := service.Import(context.Background(), "export.json", "chatgpt", "json", []byte(payload))
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)

	id := result.Imported[0].ID
	require.NoError(t, db.MarkIndexed(id, false))

	require.NoError(t, service.Reindex(id))

	loaded, err := db.GetConversationByID(id)
	require.NoError(t, err)
	assert.True(t, loaded.Indexed)
}
