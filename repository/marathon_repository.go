package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/database"
	"github.com/talkdigital/courtshoesbackend/models"
)

// MarathonRepository handles database operations for Marathon entities
type MarathonRepository struct {
	DB *gorm.DB
}

// NewMarathonRepository creates a new instance of MarathonRepository
func NewMarathonRepository(db *gorm.DB) *MarathonRepository {
	return &MarathonRepository{DB: db}
}

func (r *MarathonRepository) Create(marathon *models.Marathon) error {
	if marathon.ImportStatus == "" {
		marathon.ImportStatus = database.StatusPending
	}
	if err := r.DB.Create(marathon).Error; err != nil {
		return fmt.Errorf("failed to create marathon '%s': %w", marathon.Name, err)
	}
	return nil
}

func (r *MarathonRepository) GetByID(id uint) (*models.Marathon, error) {
	var marathon models.Marathon
	err := r.DB.First(&marathon, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get marathon %d: %w", id, err)
	}
	return &marathon, nil
}

func (r *MarathonRepository) GetByName(name string) (*models.Marathon, error) {
	var marathon models.Marathon
	err := r.DB.Where("name = ?", name).First(&marathon).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get marathon by name '%s': %w", name, err)
	}
	return &marathon, nil
}

// ListAll returns every marathon, newest events first (the ordering the
// report page's selector uses)
func (r *MarathonRepository) ListAll() ([]models.Marathon, error) {
	var marathons []models.Marathon
	err := r.DB.Order("event_date DESC, name ASC").Find(&marathons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list marathons: %w", err)
	}
	return marathons, nil
}

func (r *MarathonRepository) Update(marathon *models.Marathon) error {
	if err := r.DB.Save(marathon).Error; err != nil {
		return fmt.Errorf("failed to update marathon %d: %w", marathon.ID, err)
	}
	return nil
}

// MarkImportProcessing flips the marathon's import status to 'processing' and
// clears any previous import error
func (r *MarathonRepository) MarkImportProcessing(marathonID uint) error {
	updates := map[string]interface{}{
		"import_status": database.StatusProcessing,
		"import_error":  gorm.Expr("NULL"),
	}
	result := r.DB.Model(&models.Marathon{}).Where("id = ?", marathonID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark import processing for marathon %d: %w", marathonID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetImportResult records the outcome of an import run
func (r *MarathonRepository) SetImportResult(marathonID uint, taskErr error) error {
	now := time.Now().Unix()
	status := database.StatusDone
	var errStr *string
	if taskErr != nil {
		status = database.StatusError
		s := taskErr.Error()
		errStr = &s
	}

	updates := map[string]interface{}{
		"import_status":       status,
		"import_error":        errStr,
		"import_completed_at": &now,
	}
	result := r.DB.Model(&models.Marathon{}).Where("id = ?", marathonID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set import result for marathon %d: %w", marathonID, result.Error)
	}
	return nil
}

// Delete removes a marathon and all associated data (images, detections,
// demographics, cached metrics) in one transaction
func (r *MarathonRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var marathon models.Marathon
		if err := tx.First(&marathon, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return err
			}
			return fmt.Errorf("failed to load marathon %d for deletion: %w", id, err)
		}

		var imageIDs []uint
		if err := tx.Model(&models.Image{}).Where("marathon_id = ?", id).Pluck("id", &imageIDs).Error; err != nil {
			return fmt.Errorf("failed to collect image IDs for marathon %d: %w", id, err)
		}

		if len(imageIDs) > 0 {
			if err := tx.Where("image_id IN ?", imageIDs).Delete(&models.ShoeDetection{}).Error; err != nil {
				return fmt.Errorf("failed to delete shoe detections for marathon %d: %w", id, err)
			}
			if err := tx.Where("image_id IN ?", imageIDs).Delete(&models.PersonDemographic{}).Error; err != nil {
				return fmt.Errorf("failed to delete person demographics for marathon %d: %w", id, err)
			}
		}

		if err := tx.Where("marathon_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete images for marathon %d: %w", id, err)
		}
		if err := tx.Where("marathon_id = ?", id).Delete(&models.MarathonMetric{}).Error; err != nil {
			return fmt.Errorf("failed to delete cached metrics for marathon %d: %w", id, err)
		}
		if err := tx.Delete(&models.Marathon{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete marathon %d: %w", id, err)
		}
		return nil
	})
}
