package http

import (
	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/database/history"
	"github.com/mrlokans/chatarchive/internal/scheduler"
	"github.com/mrlokans/chatarchive/internal/search"
	"github.com/mrlokans/chatarchive/internal/services"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
	"github.com/mrlokans/chatarchive/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database      *database.Database
	ImportService *services.ImportService
	Indexer       *search.Indexer
	History       *history.Repository
	SettingsStore *settingsstore.SettingsStore

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Reindex sweep scheduler (optional)
	ReindexScheduler *scheduler.ReindexSweepScheduler

	// Application info
	Version string
}
