// Package search maintains the inverted index that backs full-text
// conversation lookup. The index is derived data: conversation and
// message rows are the source of truth, and a conversation's tokens are
// rebuilt wholesale on every upsert so the entry always equals its
// current content.
package search

import (
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// maxTokenLength matches the search_tokens column size; longer tokens are
// almost always pasted blobs with no search value.
const maxTokenLength = 100

type Indexer struct {
	db *gorm.DB
}

func NewIndexer(db *gorm.DB) *Indexer {
	return &Indexer{db: db}
}

// Tokenize splits text into lowercase word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Upsert replaces the index entry for a conversation with tokens from its
// title and message contents. Must be called only after the storage
// transaction for the conversation has committed.
func (ix *Indexer) Upsert(conversationID uint, title string, contents []string) error {
	frequencies := make(map[string]int)
	for _, token := range Tokenize(title) {
		if len(token) <= maxTokenLength {
			frequencies[token]++
		}
	}
	for _, content := range contents {
		for _, token := range Tokenize(content) {
			if len(token) <= maxTokenLength {
				frequencies[token]++
			}
		}
	}

	err := ix.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).
			Delete(&entities.SearchToken{}).Error; err != nil {
			return err
		}

		rows := make([]entities.SearchToken, 0, len(frequencies))
		for token, freq := range frequencies {
			rows = append(rows, entities.SearchToken{
				ConversationID: conversationID,
				Token:          token,
				Frequency:      freq,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("failed to index conversation %d: %w", conversationID, err)
	}
	return nil
}

// Delete removes a conversation's index entry.
func (ix *Indexer) Delete(conversationID uint) error {
	return ix.db.Where("conversation_id = ?", conversationID).
		Delete(&entities.SearchToken{}).Error
}

// Query returns conversation ids ranked by term-frequency score, ties
// broken by updated_at descending. Each conversation appears once no
// matter how many of its messages match.
func (ix *Indexer) Query(text string) ([]uint, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var ids []uint
	err := ix.db.Table("search_tokens").
		Select("search_tokens.conversation_id").
		Joins("JOIN conversations ON conversations.id = search_tokens.conversation_id AND conversations.deleted_at IS NULL").
		Where("search_tokens.token IN ?", tokens).
		Group("search_tokens.conversation_id").
		Order("SUM(search_tokens.frequency) DESC").
		Order("MAX(conversations.updated_at) DESC").
		Pluck("search_tokens.conversation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	return ids, nil
}
