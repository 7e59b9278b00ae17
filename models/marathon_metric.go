package models

import "time"

// MarathonMetric is the denormalized, pre-computed metrics snapshot for one
// marathon. At most one row exists per marathon (enforced by the unique
// index); the metric repository replaces the row wholesale on recompute.
// Frequency tables and cross-tabulations are stored as JSON text columns.
type MarathonMetric struct {
	ID         uint `gorm:"primaryKey;autoIncrement" json:"id"`
	MarathonID uint `gorm:"not null;uniqueIndex" json:"marathon_id"`

	TotalImages                  int     `gorm:"not null;default:0" json:"total_images"`
	TotalShoesDetected           int     `gorm:"not null;default:0" json:"total_shoes_detected"`
	TotalPersonsWithDemographics int     `gorm:"not null;default:0" json:"total_persons_with_demographics"`
	UniqueBrandsCount            int     `gorm:"not null;default:0" json:"unique_brands_count"`
	LeaderBrandName              string  `gorm:"not null;default:'N/A'" json:"leader_brand_name"`
	LeaderBrandCount             int     `gorm:"not null;default:0" json:"leader_brand_count"`
	LeaderBrandPercentage        float64 `gorm:"not null;default:0" json:"leader_brand_percentage"`

	BrandCountsJSON          string `gorm:"column:brand_counts_json;type:text" json:"-"`
	GenderDistributionJSON   string `gorm:"column:gender_distribution_json;type:text" json:"-"`
	RaceDistributionJSON     string `gorm:"column:race_distribution_json;type:text" json:"-"`
	CategoryDistributionJSON string `gorm:"column:category_distribution_json;type:text" json:"-"`
	TopBrandsJSON            string `gorm:"column:top_brands_json;type:text" json:"-"`

	LastCalculated time.Time `json:"last_calculated"`
}

// TableName explicitly sets the table name for GORM.
func (MarathonMetric) TableName() string {
	return "marathon_metrics"
}
