// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/tasks"
)

// sweepBatchSize caps how many conversations one sweep enqueues.
const sweepBatchSize = 100

// ReindexSweepScheduler periodically scans for conversations whose index
// entry is stale (indexed = false) and enqueues reindex tasks for them.
// It is the safety net behind the task queue: if the queue itself was
// down when an index upsert failed, the sweep picks the conversation up
// on the next tick.
type ReindexSweepScheduler struct {
	db          *database.Database
	tasksClient *tasks.Client
	schedule    string
	enabled     bool

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReindexSweepScheduler creates a new scheduler instance.
func NewReindexSweepScheduler(db *database.Database, tasksClient *tasks.Client, schedule string, enabled bool) *ReindexSweepScheduler {
	return &ReindexSweepScheduler{
		db:          db,
		tasksClient: tasksClient,
		schedule:    schedule,
		enabled:     enabled,
		cron:        cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the sweep is enabled.
func (s *ReindexSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled {
		log.Printf("Reindex sweep scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reindex sweep scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *ReindexSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reindex sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *ReindexSweepScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *ReindexSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur.
func (s *ReindexSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSweep enqueues reindex tasks for unindexed conversations.
func (s *ReindexSweepScheduler) runSweep() {
	conversations, err := s.db.GetUnindexedConversations(sweepBatchSize)
	if err != nil {
		log.Printf("Reindex sweep: failed to list unindexed conversations: %v", err)
		return
	}

	if len(conversations) == 0 {
		return
	}

	log.Printf("Reindex sweep: found %d unindexed conversations", len(conversations))

	queued := make([]backlite.Task, 0, len(conversations))
	for _, conv := range conversations {
		queued = append(queued, tasks.ReindexConversationTask{ConversationID: conv.ID})
	}

	if _, err := s.tasksClient.Add(queued...).Save(); err != nil {
		log.Printf("Reindex sweep: failed to enqueue reindex tasks: %v", err)
		return
	}

	log.Printf("Reindex sweep: enqueued %d reindex tasks", len(queued))
}
