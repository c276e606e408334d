// Package history provides database operations for import history records.
//
// # Usage
//
//	repo := history.NewRepository(db)
//	record, err := repo.Begin("export.json", "chatgpt", "json")
package history

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/chatarchive/internal/entities"
)

// Repository handles all import history database operations. Records are
// append-only: one row per import attempt, finalized exactly once.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new import history repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Begin creates a record in the "processing" state at import start.
func (r *Repository) Begin(filename, sourceType, fileFormat string) (*entities.ImportHistory, error) {
	record := &entities.ImportHistory{
		Filename:   filename,
		SourceType: sourceType,
		FileFormat: fileFormat,
		Status:     entities.ImportStatusProcessing,
		CreatedAt:  time.Now(),
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Finish finalizes a record. A record can only move out of the
// "processing" state once; finalized records are immutable.
func (r *Repository) Finish(id uint, status entities.ImportStatus, importedCount int, errorMessage string) error {
	var record entities.ImportHistory
	if err := r.db.First(&record, id).Error; err != nil {
		return err
	}
	if record.Status != entities.ImportStatusProcessing {
		return fmt.Errorf("import history record %d already finalized as %s", id, record.Status)
	}

	record.Status = status
	record.ImportedCount = importedCount
	record.ErrorMessage = errorMessage
	return r.db.Save(&record).Error
}

// GetByID retrieves a single record.
func (r *Repository) GetByID(id uint) (*entities.ImportHistory, error) {
	var record entities.ImportHistory
	err := r.db.First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List retrieves paginated records, most recent first.
func (r *Repository) List(limit, offset int) ([]entities.ImportHistory, int64, error) {
	var records []entities.ImportHistory
	var total int64

	if err := r.db.Model(&entities.ImportHistory{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}
