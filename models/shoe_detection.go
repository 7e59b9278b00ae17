package models

// ShoeDetection represents one detected shoe in an image. Brand and scores
// are nullable: the upstream detector may report a box without classifying it.
type ShoeDetection struct {
	ID          uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID     uint     `gorm:"not null;index" json:"image_id"`
	Brand       *string  `gorm:"index" json:"brand,omitempty"`      // Nullable
	Probability *float64 `gorm:"" json:"probability,omitempty"`     // Nullable
	Confidence  *float64 `gorm:"" json:"confidence,omitempty"`      // Nullable
	BboxX1      *float64 `gorm:"" json:"bbox_x1,omitempty"`         // Nullable
	BboxY1      *float64 `gorm:"" json:"bbox_y1,omitempty"`         // Nullable
	BboxX2      *float64 `gorm:"" json:"bbox_x2,omitempty"`         // Nullable
	BboxY2      *float64 `gorm:"" json:"bbox_y2,omitempty"`         // Nullable
}

// TableName explicitly sets the table name for GORM.
func (ShoeDetection) TableName() string {
	return "shoe_detections"
}
