package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/models"
)

// CachedMetric is a cache row paired with its marathon's name, which the
// report path needs for the per-marathon breakdown.
type CachedMetric struct {
	Row          models.MarathonMetric
	MarathonName string
}

// MetricRepository handles the pre-computed metrics cache table
type MetricRepository struct {
	DB *gorm.DB
}

// NewMetricRepository creates a new instance of MetricRepository
func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{DB: db}
}

// Store replaces the cache row for a marathon with a freshly encoded one.
// The delete+insert pair runs in a single transaction so a failed write
// leaves the previous row intact; re-running Store is the recovery path.
func (r *MetricRepository) Store(marathonID uint, bundle analytics.Bundle) error {
	row, err := analytics.EncodeMetric(marathonID, bundle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to encode metrics for marathon %d: %w", marathonID, err)
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("marathon_id = ?", marathonID).Delete(&models.MarathonMetric{}).Error; err != nil {
			return fmt.Errorf("failed to delete prior metrics for marathon %d: %w", marathonID, err)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert metrics for marathon %d: %w", marathonID, err)
		}
		return nil
	})
}

// GetByMarathonIDs returns the cache rows that exist for the requested
// marathons; absent marathons are simply not in the result
func (r *MetricRepository) GetByMarathonIDs(marathonIDs []uint) ([]CachedMetric, error) {
	if len(marathonIDs) == 0 {
		return []CachedMetric{}, nil
	}

	var rows []models.MarathonMetric
	if err := r.DB.Where("marathon_id IN ?", marathonIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query cached metrics: %w", err)
	}
	if len(rows) == 0 {
		return []CachedMetric{}, nil
	}

	rowIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		rowIDs = append(rowIDs, row.MarathonID)
	}
	var marathons []models.Marathon
	if err := r.DB.Select("id", "name").Where("id IN ?", rowIDs).Find(&marathons).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve marathon names for cached metrics: %w", err)
	}
	names := make(map[uint]string, len(marathons))
	for _, m := range marathons {
		names[m.ID] = m.Name
	}

	result := make([]CachedMetric, 0, len(rows))
	for _, row := range rows {
		result = append(result, CachedMetric{Row: row, MarathonName: names[row.MarathonID]})
	}
	return result, nil
}

// DeleteByMarathonID removes a marathon's cache row (marathon deletion also
// cascades through MarathonRepository.Delete)
func (r *MetricRepository) DeleteByMarathonID(marathonID uint) error {
	if err := r.DB.Where("marathon_id = ?", marathonID).Delete(&models.MarathonMetric{}).Error; err != nil {
		return fmt.Errorf("failed to delete cached metrics for marathon %d: %w", marathonID, err)
	}
	return nil
}
