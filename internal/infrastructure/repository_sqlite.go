package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/halftunes/internal/domain"
)

// historyFilterColumns lists the columns FindAll accepts as filter keys
var historyFilterColumns = map[string]bool{
	"source_url": true,
	"outcome":    true,
	"error_kind": true,
	"artist":     true,
}

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository opens (and migrates) the history database
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Create stores a new history entry
func (r *SQLiteHistoryRepository) Create(entry *domain.HistoryEntry) error {
	return r.db.Create(entry).Error
}

// FindAll finds entries with optional filters, newest first. A limit <= 0 returns everything.
func (r *SQLiteHistoryRepository) FindAll(filters map[string]interface{}, limit int) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry
	query := r.db

	for key, value := range filters {
		if !historyFilterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "finished_at"}, Desc: true})
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&entries).Error
	return entries, err
}

// FindBySourceURL returns the most recent entry for a source URL
// Returns nil if not found
func (r *SQLiteHistoryRepository) FindBySourceURL(sourceURL string) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := r.db.Where("source_url = ?", sourceURL).
		Order("finished_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetStats returns history statistics
func (r *SQLiteHistoryRepository) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&domain.HistoryEntry{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	outcomeCounts := []struct {
		Outcome domain.Outcome
		Count   int64
	}{}

	if err := r.db.Model(&domain.HistoryEntry{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&outcomeCounts).Error; err != nil {
		return nil, err
	}

	for _, oc := range outcomeCounts {
		switch oc.Outcome {
		case domain.OutcomeCompleted:
			stats.Completed = oc.Count
		case domain.OutcomeFailed:
			stats.Failed = oc.Count
		case domain.OutcomeCanceled:
			stats.Canceled = oc.Count
		}
	}

	if err := r.db.Model(&domain.HistoryEntry{}).
		Where("outcome = ?", domain.OutcomeCompleted).
		Select("COALESCE(SUM(bytes_received), 0)").
		Scan(&stats.TotalBytes).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOlderThan removes entries finished before the cutoff and returns how many were removed
func (r *SQLiteHistoryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("finished_at < ?", cutoff).Delete(&domain.HistoryEntry{})
	return result.RowsAffected, result.Error
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
