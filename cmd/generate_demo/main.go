// Command generate_demo creates a demo archive database with sample
// conversations.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/linearize"
	"github.com/mrlokans/chatarchive/internal/merge"
	"github.com/mrlokans/chatarchive/internal/search"
)

const defaultDemoDatabasePath = "./demo/demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create demo database: %v", err)
	}
	defer db.Close()

	indexer := search.NewIndexer(db.DB)

	for _, transcript := range demoTranscripts() {
		conv, err := db.Apply(&merge.WriteSet{Kind: merge.KindInsert, Transcript: transcript})
		if err != nil {
			log.Fatalf("Failed to insert demo conversation %s: %v", transcript.SourceID, err)
		}

		contents := make([]string, 0, len(transcript.Messages))
		for _, msg := range transcript.Messages {
			contents = append(contents, msg.Content)
		}
		if err := indexer.Upsert(conv.ID, conv.Title, contents); err != nil {
			log.Fatalf("Failed to index demo conversation %s: %v", transcript.SourceID, err)
		}
		if err := db.MarkIndexed(conv.ID, true); err != nil {
			log.Fatalf("Failed to mark demo conversation indexed: %v", err)
		}

		log.Printf("  Added %q (%d messages)", conv.Title, conv.MessageCount)
	}

	total, messages, err := db.GetStats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	log.Printf("Demo database ready: %d conversations, %d messages", total, messages)
}

func demoTranscripts() []*linearize.Transcript {
	base := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	exchange := func(source, sourceID, title, model string, at time.Time, turns ...string) *linearize.Transcript {
		t := &linearize.Transcript{
			Source:    source,
			SourceID:  sourceID,
			Title:     title,
			CreatedAt: at,
			UpdatedAt: at.Add(time.Duration(len(turns)) * time.Minute),
		}
		for i, content := range turns {
			role := entities.RoleUser
			m := ""
			if i%2 == 1 {
				role = entities.RoleAssistant
				m = model
			}
			t.Messages = append(t.Messages, linearize.NormalizedMessage{
				Role:        role,
				Content:     content,
				ContentType: "text",
				Model:       m,
				CreatedAt:   at.Add(time.Duration(i) * time.Minute),
				OrderIndex:  i,
			})
		}
		return t
	}

	return []*linearize.Transcript{
		exchange("chatgpt", "demo-chatgpt-1", "Sourdough starter basics", "gpt-4o", base,
			"How do I keep a sourdough starter alive?",
			"Feed it equal parts flour and water daily and keep it at room temperature.",
			"Can I refrigerate it?",
			"Yes, refrigeration slows fermentation; feed it weekly instead."),
		exchange("claude", "demo-claude-1", "Regex for log timestamps", "claude", base.Add(24*time.Hour),
			"Write a regex matching ISO 8601 timestamps in log lines.",
			"Use \\d{4}-\\d{2}-\\d{2}T\\d{2}:\\d{2}:\\d{2} with an optional timezone suffix."),
		exchange("gemini", "demo-gemini-1", "Packing list for Iceland", "gemini", base.Add(48*time.Hour),
			"What should I pack for a week in Iceland in October?",
			"Waterproof layers, sturdy boots, a swimsuit for hot springs and a headlamp."),
	}
}
