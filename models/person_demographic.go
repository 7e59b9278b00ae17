package models

// PersonDemographic represents the demographic analysis of the runner in an
// image. All labels are nullable; the analyzer only emits fields it is
// confident about.
type PersonDemographic struct {
	ID           uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID      uint     `gorm:"not null;index" json:"image_id"`
	GenderLabel  *string  `gorm:"" json:"gender_label,omitempty"`   // Nullable
	GenderProb   *float64 `gorm:"" json:"gender_prob,omitempty"`    // Nullable
	AgeLabel     *string  `gorm:"" json:"age_label,omitempty"`      // Nullable
	AgeProb      *float64 `gorm:"" json:"age_prob,omitempty"`       // Nullable
	RaceLabel    *string  `gorm:"" json:"race_label,omitempty"`     // Nullable
	RaceProb     *float64 `gorm:"" json:"race_prob,omitempty"`      // Nullable
	PersonBboxX1 *float64 `gorm:"" json:"person_bbox_x1,omitempty"` // Nullable
	PersonBboxY1 *float64 `gorm:"" json:"person_bbox_y1,omitempty"` // Nullable
	PersonBboxX2 *float64 `gorm:"" json:"person_bbox_x2,omitempty"` // Nullable
	PersonBboxY2 *float64 `gorm:"" json:"person_bbox_y2,omitempty"` // Nullable
}

// TableName explicitly sets the table name for GORM.
func (PersonDemographic) TableName() string {
	return "person_demographics"
}
