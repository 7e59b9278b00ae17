package models

import "time"

// Marathon represents a race/event whose photo detections were imported.
// It corresponds to the 'marathons' table and is the grouping key for all
// analytics.
type Marathon struct {
	ID               uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string   `gorm:"not null;uniqueIndex" json:"name"`
	EventDate        *string  `gorm:"" json:"event_date,omitempty"`  // Nullable, ISO date string
	Location         *string  `gorm:"" json:"location,omitempty"`    // Nullable
	DistanceKM       *float64 `gorm:"" json:"distance_km,omitempty"` // Nullable
	Description      *string  `gorm:"" json:"description,omitempty"` // Nullable
	OriginalFilename *string  `gorm:"" json:"original_filename,omitempty"`
	UploadedByUserID *uint    `gorm:"index" json:"uploaded_by_user_id,omitempty"`
	UploadedByUser   *User    `gorm:"foreignKey:UploadedByUserID" json:"-"`

	ImportStatus      string  `gorm:"not null;default:pending" json:"import_status"`
	ImportError       *string `gorm:"" json:"import_error,omitempty"`        // Nullable
	ImportCompletedAt *int64  `gorm:"" json:"import_completed_at,omitempty"` // Nullable, Unix timestamp

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Marathon) TableName() string {
	return "marathons"
}
