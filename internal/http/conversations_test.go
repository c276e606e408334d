package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/entities"
)

func importFixture(t *testing.T, router http.Handler, fixture string) {
	t.Helper()
	w := httptest.NewRecorder()
	req := uploadRequest(t, "/import/chatgpt", "conversations.json", fixture)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func firstConversationID(t *testing.T, db *database.Database) uint {
	t.Helper()
	conversations, _, err := db.ListConversations(1, 1)
	require.NoError(t, err)
	require.NotEmpty(t, conversations)
	return conversations[0].ID
}

func TestConversationsController_ListEmpty(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ConversationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Zero(t, response.Total)
	assert.Empty(t, response.Conversations)
}

func TestConversationsController_ListAfterImport(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ConversationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.Total)
	require.Len(t, response.Conversations, 1)
	assert.Equal(t, "Upload test", response.Conversations[0].Title)
}

func TestConversationsController_GetWithMessages(t *testing.T) {
	router, db, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)
	id := firstConversationID(t, db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/conversations/%d", id), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var conv entities.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, "Hi", conv.Messages[1].Content)
}

func TestConversationsController_GetNotFound(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations/999", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationsController_Search(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations/search?q=hello", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Total)
	require.Len(t, response.Conversations, 1)
	assert.Equal(t, "Upload test", response.Conversations[0].Title)
}

func TestConversationsController_SearchRequiresQuery(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations/search", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationsController_Delete(t *testing.T) {
	router, db, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)
	id := firstConversationID(t, db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/conversations/%d", id), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Deleted conversations leave the search index too.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/conversations/search?q=hello", nil)
	router.ServeHTTP(w, req)

	var response SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Zero(t, response.Total)
}

func TestConversationsController_Stats(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/conversations/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ConversationStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.TotalConversations)
	assert.Equal(t, int64(2), response.TotalMessages)
}

func TestImportHistoryController_List(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	importFixture(t, router, chatGPTUploadFixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/imports", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response ImportHistoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.Total)
	require.Len(t, response.Imports, 1)
	assert.Equal(t, entities.ImportStatusSuccess, response.Imports[0].Status)
}

func TestImportSettingsController_GetAndUpdate(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/settings/import", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	body := `{"auto_merge_duplicates": true, "keep_separate": false, "skip_empty_conversations": true, "allowed_formats": "json", "default_format": "json"}`
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PUT", "/api/settings/import", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, true, settings["auto_merge_duplicates"])
	assert.Equal(t, false, settings["keep_separate"])
}

func TestImportSettingsController_RejectsEmptyFormats(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	body := `{"allowed_formats": "", "default_format": "json"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/settings/import", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
