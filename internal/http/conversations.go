package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/search"
)

type ConversationListResponse struct {
	Conversations []entities.Conversation `json:"conversations"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
}

type SearchResponse struct {
	Conversations []entities.Conversation `json:"conversations"`
	Total         int                     `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
	Query         string                  `json:"query"`
}

type ConversationStatsResponse struct {
	TotalConversations int64 `json:"total_conversations"`
	TotalMessages      int64 `json:"total_messages"`
}

type ConversationsController struct {
	db      *database.Database
	indexer *search.Indexer
}

func NewConversationsController(db *database.Database, indexer *search.Indexer) *ConversationsController {
	return &ConversationsController{
		db:      db,
		indexer: indexer,
	}
}

// List handles GET /api/conversations with page/page_size query params.
func (cc *ConversationsController) List(c *gin.Context) {
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", 20)

	conversations, total, err := cc.db.ListConversations(page, pageSize)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, ConversationListResponse{
		Conversations: conversations,
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	})
}

// Search handles GET /api/conversations/search?q=... ranked by term
// frequency. Pagination slices the ranked id list so relevance order is
// stable across pages.
func (cc *ConversationsController) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	ids, err := cc.indexer.Query(query)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	start := (page - 1) * pageSize
	if start > len(ids) {
		start = len(ids)
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	conversations, err := cc.db.GetConversationsByIDs(ids[start:end])
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conversations == nil {
		conversations = []entities.Conversation{}
	}

	c.IndentedJSON(http.StatusOK, SearchResponse{
		Conversations: conversations,
		Total:         len(ids),
		Page:          page,
		PageSize:      pageSize,
		Query:         query,
	})
}

// Get handles GET /api/conversations/:id with full message bodies.
func (cc *ConversationsController) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	conv, err := cc.db.GetConversationByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, conv)
}

// Delete handles DELETE /api/conversations/:id, removing the conversation
// with its messages and index entries.
func (cc *ConversationsController) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if _, err := cc.db.GetConversationByID(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := cc.db.DeleteConversation(uint(id)); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"deleted": id})
}

// Stats handles GET /api/conversations/stats.
func (cc *ConversationsController) Stats(c *gin.Context) {
	totalConversations, totalMessages, err := cc.db.GetStats()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, ConversationStatsResponse{
		TotalConversations: totalConversations,
		TotalMessages:      totalMessages,
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
