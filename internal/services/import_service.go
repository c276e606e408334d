// Package services contains the import engine: it turns raw export bytes
// into committed conversation rows and keeps the search index and import
// history in step with the outcome.
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/database/history"
	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/importers"
	"github.com/mrlokans/chatarchive/internal/linearize"
	"github.com/mrlokans/chatarchive/internal/merge"
	"github.com/mrlokans/chatarchive/internal/search"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

// ConversationError attributes a failure to one conversation of a run.
type ConversationError struct {
	SourceID string `json:"source_id"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// ImportRunResult summarizes one import run. The caller always receives a
// finalized history record id alongside the committed conversations.
type ImportRunResult struct {
	HistoryID     uint                    `json:"history_id"`
	Status        entities.ImportStatus   `json:"status"`
	ImportedCount int                     `json:"imported_count"`
	Imported      []entities.Conversation `json:"imported"`
	Skipped       int                     `json:"skipped"`
	Failed        []ConversationError     `json:"failed,omitempty"`
	NotAttempted  int                     `json:"not_attempted,omitempty"`
}

// ImportService runs imports end to end: parse, linearize, resolve,
// commit, index, record. Writes touching the same natural key are
// serialized through per-key locks so concurrent runs cannot race into
// inconsistent append decisions.
type ImportService struct {
	db       *database.Database
	history  *history.Repository
	settings *settingsstore.SettingsStore
	indexer  *search.Indexer

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewImportService(db *database.Database, settings *settingsstore.SettingsStore, indexer *search.Indexer) *ImportService {
	return &ImportService{
		db:       db,
		history:  history.NewRepository(db.DB),
		settings: settings,
		indexer:  indexer,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// Import processes one export file. Per-conversation failures are caught
// at the loop boundary and recorded without aborting the batch; run-level
// failures (unsupported format, malformed top-level schema) finalize the
// history record as a failure with zero imported and are returned as an
// error.
//
// Cancelling the context stops the run between conversations: committed
// conversations stay committed and remaining ones are reported as not
// attempted.
func (s *ImportService) Import(ctx context.Context, filename, source, format string, data []byte) (*ImportRunResult, error) {
	// One snapshot per run: a settings edit mid-run must not change the
	// policy for conversations still in flight.
	settings := s.settings.Current()

	if format == "" {
		format = settings.DefaultFormat
	}
	format = strings.ToLower(format)

	record, err := s.history.Begin(filename, source, format)
	if err != nil {
		return nil, fmt.Errorf("failed to create import history record: %w", err)
	}

	result := &ImportRunResult{HistoryID: record.ID}

	if !formatAllowed(format, settings.AllowedFormats) {
		err := fmt.Errorf("%w: %q is not in allowed formats (%s)",
			importers.ErrUnsupportedFormat, format, settings.AllowedFormats)
		return s.failRun(result, err)
	}

	export, err := importers.Parse(data, source, format)
	if err != nil {
		return s.failRun(result, err)
	}

	log.Printf("Import %s: parsed %d conversations from %s export",
		filename, len(export.Conversations), export.Source)

	var failures []string
	for i := range export.Conversations {
		if ctx.Err() != nil {
			result.NotAttempted = len(export.Conversations) - i
			log.Printf("Import %s: cancelled with %d conversations not attempted",
				filename, result.NotAttempted)
			break
		}

		conv := &export.Conversations[i]
		committed, err := s.importConversation(export.Source, conv, settings)
		if err != nil {
			result.Failed = append(result.Failed, ConversationError{
				SourceID: conv.SourceID,
				Err:      err,
				Message:  err.Error(),
			})
			failures = append(failures, fmt.Sprintf("conversation %s: %v", conv.SourceID, err))
			continue
		}

		if committed == nil {
			result.Skipped++
			continue
		}

		result.Imported = append(result.Imported, *committed)
		result.ImportedCount++
		s.indexConversation(committed)
	}

	result.Status = runStatus(result)

	errorMessage := strings.Join(failures, "; ")
	if err := s.history.Finish(record.ID, result.Status, result.ImportedCount, errorMessage); err != nil {
		log.Printf("Import %s: failed to finalize history record %d: %v", filename, record.ID, err)
	}

	return result, nil
}

// importConversation runs linearize → resolve → apply for one
// conversation while holding the natural-key write lock. Returns nil
// without error for skips.
func (s *ImportService) importConversation(source string, conv *importers.RawConversation, settings settingsstore.ImportSettings) (*entities.Conversation, error) {
	transcript, err := linearize.Linearize(source, conv)
	if err != nil {
		return nil, err
	}

	lock := s.naturalKeyLock(source, transcript.SourceID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.db.FindByNaturalKey(source, transcript.SourceID)
	if err != nil {
		return nil, fmt.Errorf("storage lookup failed: %w", err)
	}

	ws, err := merge.Resolve(transcript, existing, settings)
	if err != nil {
		return nil, err
	}

	if ws.Kind == merge.KindSkip {
		log.Printf("Conversation %s: skipped (%s)", transcript.SourceID, ws.SkipReason)
		return nil, nil
	}

	return s.db.Apply(ws)
}

// indexConversation upserts the search index entry after the storage
// transaction committed. Index failures never fail the import; the
// conversation stays flagged unindexed and the reindex sweep retries it.
func (s *ImportService) indexConversation(conv *entities.Conversation) {
	contents, err := s.db.GetMessageContents(conv.ID)
	if err != nil {
		log.Printf("Conversation %d: failed to load contents for indexing: %v", conv.ID, err)
		return
	}

	if err := s.indexer.Upsert(conv.ID, conv.Title, contents); err != nil {
		log.Printf("Conversation %d: index upsert failed, left for reindex sweep: %v", conv.ID, err)
		return
	}

	if err := s.db.MarkIndexed(conv.ID, true); err != nil {
		log.Printf("Conversation %d: failed to mark indexed: %v", conv.ID, err)
	}
}

// Reindex rebuilds the index entry for one conversation. Used by the
// out-of-band retry queue.
func (s *ImportService) Reindex(conversationID uint) error {
	conv, err := s.db.GetConversationByID(conversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation %d: %w", conversationID, err)
	}

	contents := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		contents = append(contents, msg.Content)
	}

	if err := s.indexer.Upsert(conv.ID, conv.Title, contents); err != nil {
		return err
	}
	return s.db.MarkIndexed(conv.ID, true)
}

func (s *ImportService) naturalKeyLock(source, sourceID string) *sync.Mutex {
	key := source + "|" + sourceID

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

// failRun finalizes the history record for a run-level failure: nothing
// was attempted, zero imported.
func (s *ImportService) failRun(result *ImportRunResult, cause error) (*ImportRunResult, error) {
	result.Status = entities.ImportStatusFailure
	if err := s.history.Finish(result.HistoryID, entities.ImportStatusFailure, 0, cause.Error()); err != nil {
		log.Printf("Failed to finalize history record %d: %v", result.HistoryID, err)
	}
	return result, cause
}

// runStatus rolls up per-conversation outcomes: "partial" when successes
// and failures coexist, "failure" when nothing succeeded and at least one
// conversation failed, "success" otherwise (skips count as successes).
func runStatus(result *ImportRunResult) entities.ImportStatus {
	succeeded := result.ImportedCount + result.Skipped
	switch {
	case len(result.Failed) == 0:
		return entities.ImportStatusSuccess
	case succeeded > 0:
		return entities.ImportStatusPartial
	default:
		return entities.ImportStatusFailure
	}
}

func formatAllowed(format, allowed string) bool {
	for _, candidate := range strings.Split(allowed, ",") {
		if strings.EqualFold(strings.TrimSpace(candidate), format) {
			return true
		}
	}
	return false
}
