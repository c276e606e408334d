package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/chatarchive/internal/services"
)

// ReindexConversationTask rebuilds the search index entry for a single
// conversation whose in-band index upsert failed.
type ReindexConversationTask struct {
	ConversationID uint `json:"conversation_id"`
}

// Config returns the queue configuration for reindex tasks.
func (t ReindexConversationTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reindex_conversation",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReindexConversationProcessor creates a processor function for
// ReindexConversationTask. The processor needs the import service to
// rebuild the index entry.
func ReindexConversationProcessor(importService *services.ImportService) backlite.QueueProcessor[ReindexConversationTask] {
	return func(ctx context.Context, task ReindexConversationTask) error {
		if importService == nil {
			return fmt.Errorf("import service not configured")
		}

		if err := importService.Reindex(task.ConversationID); err != nil {
			return fmt.Errorf("reindex conversation %d: %w", task.ConversationID, err)
		}

		log.Printf("[TASK] Reindexed conversation %d", task.ConversationID)
		return nil
	}
}

// NewReindexConversationQueue creates a backlite queue for reindex tasks.
func NewReindexConversationQueue(importService *services.ImportService) backlite.Queue {
	return backlite.NewQueue(ReindexConversationProcessor(importService))
}
