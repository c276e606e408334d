// Package cli contains command-line entry points that run without the
// HTTP server.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/chatarchive/internal/config"
	"github.com/mrlokans/chatarchive/internal/database"
	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/search"
	"github.com/mrlokans/chatarchive/internal/services"
	"github.com/mrlokans/chatarchive/internal/settingsstore"
)

// ImportCommand imports a conversation export file straight into the
// archive database.
type ImportCommand struct {
	FilePath     string
	Source       string
	DatabasePath string
	Verbose      bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the exported conversations file (required)")
	fs.StringVar(&cmd.Source, "source", "", "Export source: chatgpt, claude, gemini or copilot (auto-detected if omitted)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import exported LLM conversations into the local archive.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import a ChatGPT export:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file conversations.json -source chatgpt\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Let the importer detect the source:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file export.json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	cmd.Source = strings.ToLower(cmd.Source)

	return nil
}

func (cmd *ImportCommand) Run() error {
	fmt.Println("Conversation Import")
	fmt.Println("===================")

	if _, err := os.Stat(cmd.FilePath); os.IsNotExist(err) {
		return fmt.Errorf("export file not found: %s", cmd.FilePath)
	}

	fmt.Printf("File: %s\n", cmd.FilePath)

	data, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	fmt.Printf("Saving to database: %s\n", cmd.DatabasePath)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	settingsStore := settingsstore.New(db.DB)
	indexer := search.NewIndexer(db.DB)
	importService := services.NewImportService(db, settingsStore, indexer)

	format := strings.TrimPrefix(filepath.Ext(cmd.FilePath), ".")
	filename := filepath.Base(cmd.FilePath)

	fmt.Println("\nImporting conversations...")

	result, err := importService.Import(context.Background(), filename, cmd.Source, format, data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Println("\n=== Import Summary ===")
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Conversations imported: %d\n", result.ImportedCount)
	fmt.Printf("Conversations skipped: %d\n", result.Skipped)

	if cmd.Verbose {
		for _, conv := range result.Imported {
			fmt.Printf("  [OK] %s (%d messages)\n", conv.Title, conv.MessageCount)
		}
	}

	if len(result.Failed) > 0 {
		fmt.Printf("\n%d conversations failed:\n", len(result.Failed))
		for _, failure := range result.Failed {
			fmt.Printf("  [ERROR] %s: %s\n", failure.SourceID, failure.Message)
		}
	}

	if result.Status == entities.ImportStatusFailure {
		return fmt.Errorf("import finished with status %s", result.Status)
	}

	fmt.Println("\nImport complete!")
	return nil
}
