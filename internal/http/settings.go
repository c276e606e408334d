package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

type ImportSettingsController struct {
	settings *settingsstore.SettingsStore
}

func NewImportSettingsController(settings *settingsstore.SettingsStore) *ImportSettingsController {
	return &ImportSettingsController{settings: settings}
}

// Get handles GET /api/settings/import.
func (sc *ImportSettingsController) Get(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, sc.settings.Current())
}

// Update handles PUT /api/settings/import. The whole settings object is
// replaced; in-flight import runs keep the snapshot they started with.
func (sc *ImportSettingsController) Update(c *gin.Context) {
	var settings settingsstore.ImportSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(settings.AllowedFormats) == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "allowed_formats must not be empty"})
		return
	}
	if strings.TrimSpace(settings.DefaultFormat) == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "default_format must not be empty"})
		return
	}

	if err := sc.settings.Update(settings); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, sc.settings.Current())
}
