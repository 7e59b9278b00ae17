package models

// Image represents one physical race photograph belonging to a marathon.
// It corresponds to the 'images' table. Filenames are unique per marathon.
type Image struct {
	ID             uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	MarathonID     uint    `gorm:"not null;uniqueIndex:uq_marathon_filename;index" json:"marathon_id"`
	Filename       string  `gorm:"not null;uniqueIndex:uq_marathon_filename" json:"filename"`
	Category       *string `gorm:"" json:"category,omitempty"`        // Nullable grouping label (race distance / folder)
	OriginalWidth  *int    `gorm:"" json:"original_width,omitempty"`  // Nullable
	OriginalHeight *int    `gorm:"" json:"original_height,omitempty"` // Nullable

	// Relationships
	Detections   []ShoeDetection     `gorm:"foreignKey:ImageID" json:"detections,omitempty"`
	Demographics []PersonDemographic `gorm:"foreignKey:ImageID" json:"demographics,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
