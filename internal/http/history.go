package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/database/history"
	"github.com/mrlokans/chatarchive/internal/entities"
)

type ImportHistoryListResponse struct {
	Imports []entities.ImportHistory `json:"imports"`
	Total   int64                    `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

type ImportHistoryController struct {
	history *history.Repository
}

func NewImportHistoryController(repo *history.Repository) *ImportHistoryController {
	return &ImportHistoryController{history: repo}
}

// List handles GET /api/imports, most recent runs first.
func (hc *ImportHistoryController) List(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	records, total, err := hc.history.List(limit, offset)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, ImportHistoryListResponse{
		Imports: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Get handles GET /api/imports/:id.
func (hc *ImportHistoryController) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid import id"})
		return
	}

	record, err := hc.history.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "import record not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, record)
}
