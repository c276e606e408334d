package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/chatarchive/internal/importers"
	"github.com/mrlokans/chatarchive/internal/services"
)

const (
	maxExportFileSize = 100 * 1024 * 1024 // 100 MB
)

type ImportController struct {
	importService *services.ImportService
}

func NewImportController(importService *services.ImportService) *ImportController {
	return &ImportController{
		importService: importService,
	}
}

// Import handles POST /import/:source with a multipart "export_file"
// upload. The source path parameter names the vendor ("chatgpt",
// "claude", "gemini", "copilot") or "auto" for sniffing; the file format
// is derived from the filename extension.
func (ic *ImportController) Import(ctx *gin.Context) {
	source := strings.ToLower(ctx.Param("source"))
	if source == "auto" {
		source = ""
	}
	if !validSource(source) {
		ctx.IndentedJSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown source %q", ctx.Param("source")),
		})
		return
	}

	file, header, err := ctx.Request.FormFile("export_file")
	if err != nil {
		ctx.IndentedJSON(http.StatusBadRequest, gin.H{"error": "Export file not provided"})
		return
	}
	defer file.Close()

	if header.Size > maxExportFileSize {
		ctx.IndentedJSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File too large (max %d MB)", maxExportFileSize/(1024*1024)),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxExportFileSize+1))
	if err != nil {
		ctx.IndentedJSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to read export file: %v", err),
		})
		return
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")

	result, err := ic.importService.Import(ctx.Request.Context(), header.Filename, source, format, data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, importers.ErrUnsupportedFormat) || errors.Is(err, importers.ErrMalformedExport) {
			status = http.StatusBadRequest
		}
		body := gin.H{"error": err.Error()}
		if result != nil {
			body["history_id"] = result.HistoryID
		}
		ctx.IndentedJSON(status, body)
		return
	}

	ctx.IndentedJSON(http.StatusOK, result)
}

func validSource(source string) bool {
	switch source {
	case "", importers.SourceChatGPT, importers.SourceClaude, importers.SourceGemini, importers.SourceCopilot:
		return true
	}
	return false
}
