package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/entities"
	"github.com/mrlokans/chatarchive/internal/linearize"
	"github.com/mrlokans/chatarchive/internal/merge"
)

// FindByNaturalKey returns all stored conversations sharing the natural
// key (source, source_id), most recently updated first, each with its
// messages in order_index order. More than one row exists only after
// keep-separate imports.
func (d *Database) FindByNaturalKey(source, sourceID string) ([]merge.Existing, error) {
	var conversations []entities.Conversation
	err := d.DB.Where("source = ? AND source_id = ?", source, sourceID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	existing := make([]merge.Existing, 0, len(conversations))
	for _, conv := range conversations {
		var messages []entities.Message
		err := d.DB.Where("conversation_id = ?", conv.ID).
			Order("order_index ASC").
			Find(&messages).Error
		if err != nil {
			return nil, err
		}
		existing = append(existing, merge.Existing{Conversation: conv, Messages: messages})
	}
	return existing, nil
}

// Apply commits a resolved write set in one transaction per conversation:
// the conversation row and all its message rows commit together or not at
// all. Returns nil for skips.
func (d *Database) Apply(ws *merge.WriteSet) (*entities.Conversation, error) {
	switch ws.Kind {
	case merge.KindSkip:
		return nil, nil
	case merge.KindInsert, merge.KindInsertSeparate:
		return d.insertConversation(ws.Transcript)
	case merge.KindAppendTail:
		return d.appendMessages(ws)
	}
	return nil, fmt.Errorf("unknown write set kind %d", ws.Kind)
}

func (d *Database) insertConversation(t *linearize.Transcript) (*entities.Conversation, error) {
	conv := &entities.Conversation{
		Source:       t.Source,
		SourceID:     t.SourceID,
		Title:        t.Title,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		MessageCount: len(t.Messages),
		RawJSON:      t.RawJSON,
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, msg := range t.Messages {
			row := entities.Message{
				ConversationID: conv.ID,
				SourceID:       msg.SourceID,
				Role:           msg.Role,
				Content:        msg.Content,
				ContentType:    msg.ContentType,
				Model:          msg.Model,
				CreatedAt:      msg.CreatedAt,
				OrderIndex:     msg.OrderIndex,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation %s: %w", t.SourceID, err)
	}
	return conv, nil
}

func (d *Database) appendMessages(ws *merge.WriteSet) (*entities.Conversation, error) {
	var conv entities.Conversation

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conv, ws.ExistingID).Error; err != nil {
			return err
		}

		for _, msg := range ws.NewMessages {
			row := entities.Message{
				ConversationID: conv.ID,
				SourceID:       msg.SourceID,
				Role:           msg.Role,
				Content:        msg.Content,
				ContentType:    msg.ContentType,
				Model:          msg.Model,
				CreatedAt:      msg.CreatedAt,
				OrderIndex:     msg.OrderIndex,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		conv.MessageCount += len(ws.NewMessages)
		conv.RawJSON = ws.Transcript.RawJSON
		conv.Indexed = false
		if ws.Transcript.Title != "" {
			conv.Title = ws.Transcript.Title
		}
		conv.UpdatedAt = ws.Transcript.UpdatedAt
		if conv.UpdatedAt.IsZero() {
			conv.UpdatedAt = time.Now()
		}
		return tx.Save(&conv).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append to conversation %d: %w", ws.ExistingID, err)
	}
	return &conv, nil
}

// ListConversations returns one page of conversations, most recently
// updated first, along with the total row count.
func (d *Database) ListConversations(page, pageSize int) ([]entities.Conversation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var total int64
	if err := d.DB.Model(&entities.Conversation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conversations []entities.Conversation
	err := d.DB.Order("updated_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&conversations).Error
	return conversations, total, err
}

// GetConversationByID returns one conversation with its messages in
// order_index order.
func (d *Database) GetConversationByID(id uint) (*entities.Conversation, error) {
	var conv entities.Conversation
	err := d.DB.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationsByIDs returns the given conversations preserving the
// order of ids (used by search to keep ranking intact).
func (d *Database) GetConversationsByIDs(ids []uint) ([]entities.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var conversations []entities.Conversation
	if err := d.DB.Where("id IN ?", ids).Find(&conversations).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]entities.Conversation, len(conversations))
	for _, conv := range conversations {
		byID[conv.ID] = conv
	}

	ordered := make([]entities.Conversation, 0, len(ids))
	for _, id := range ids {
		if conv, ok := byID[id]; ok {
			ordered = append(ordered, conv)
		}
	}
	return ordered, nil
}

// DeleteConversation removes a conversation, its messages and its search
// index entries together, so the index never references deleted rows.
func (d *Database) DeleteConversation(id uint) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.SearchToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Conversation{}, id).Error
	})
}

// GetUnindexedConversations returns conversations whose search index entry
// is stale or missing, oldest first, for the reindex sweep.
func (d *Database) GetUnindexedConversations(limit int) ([]entities.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var conversations []entities.Conversation
	err := d.DB.Where("indexed = ?", false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&conversations).Error
	return conversations, err
}

// MarkIndexed flips the indexed flag after an index upsert outcome.
func (d *Database) MarkIndexed(id uint, indexed bool) error {
	return d.DB.Model(&entities.Conversation{}).
		Where("id = ?", id).
		Update("indexed", indexed).Error
}

// GetMessageContents returns a conversation's message bodies in
// order_index order, for index building.
func (d *Database) GetMessageContents(conversationID uint) ([]string, error) {
	var contents []string
	err := d.DB.Model(&entities.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("order_index ASC").
		Pluck("content", &contents).Error
	return contents, err
}

// GetStats returns total conversation and message counts.
func (d *Database) GetStats() (totalConversations int64, totalMessages int64, err error) {
	err = d.DB.Model(&entities.Conversation{}).Count(&totalConversations).Error
	if err != nil {
		return
	}
	err = d.DB.Model(&entities.Message{}).Count(&totalMessages).Error
	return
}
