package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ResultStore manages the append-only monitoring result history
type ResultStore struct {
	db *gorm.DB
}

// NewResultStore creates a new ResultStore
func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Insert appends a new result row
func (s *ResultStore) Insert(result *MonitoringResult) error {
	return s.db.Create(result).Error
}

// Latest returns the most recent result of a monitor, or nil when the
// monitor has never been probed.
func (s *ResultStore) Latest(monitorID string) (*MonitoringResult, error) {
	var result MonitoringResult
	err := s.db.Where("monitor_id = ?", monitorID).
		Order("checked_at DESC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// ListByMonitor returns results newest-first, optionally bounded by a
// time window. limit <= 0 means no limit.
func (s *ResultStore) ListByMonitor(monitorID string, limit int, from, to *time.Time) ([]MonitoringResult, error) {
	query := s.db.Where("monitor_id = ?", monitorID)
	if from != nil {
		query = query.Where("checked_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("checked_at <= ?", *to)
	}
	query = query.Order("checked_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []MonitoringResult
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListRange returns results oldest-first for stats windows and history
// graphs. Nil bounds leave that side of the window open.
func (s *ResultStore) ListRange(monitorID string, from, to *time.Time) ([]MonitoringResult, error) {
	query := s.db.Where("monitor_id = ?", monitorID)
	if from != nil {
		query = query.Where("checked_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("checked_at <= ?", *to)
	}

	var results []MonitoringResult
	if err := query.Order("checked_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteOlderThan prunes results checked before the cutoff and reports
// how many rows were removed
func (s *ResultStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := s.db.Where("checked_at < ?", cutoff).Delete(&MonitoringResult{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
