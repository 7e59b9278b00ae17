package analytics

// NoLeaderName is reported as the leader brand when no brand was detected.
const NoLeaderName = "N/A"

// LeaderBrand describes the single most-detected brand within a scope.
type LeaderBrand struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TopBrand is one entry of the ranked top-brands table shown on the report
// page. Bar is a block-glyph string proportional to the count.
type TopBrand struct {
	Rank         int     `json:"rank"`
	Brand        string  `json:"brand"`
	Count        int     `json:"count"`
	SharePercent float64 `json:"share_percent"`
	Bar          string  `json:"bar"`
}

// MarathonSummary is the per-marathon slice of the headline counters, used
// for the summary cards.
type MarathonSummary struct {
	ImagesCount  int `json:"images_count"`
	ShoesCount   int `json:"shoes_count"`
	PersonsCount int `json:"persons_count"`
}

// Bundle is the full metrics structure produced by Aggregate for one or more
// marathons. It is consumed as plain data by the reporting layer and
// persisted (per marathon) by the metric repository.
type Bundle struct {
	TotalImages        int                        `json:"total_images"`
	TotalShoesDetected int                        `json:"total_shoes_detected"`
	PersonsAnalyzed    int                        `json:"persons_analyzed_count"`
	UniqueBrandsCount  int                        `json:"unique_brands_count"`
	BrandCounts        map[string]int             `json:"brand_counts"`
	LeaderBrand        LeaderBrand                `json:"leader_brand"`
	TopBrands          []TopBrand                 `json:"top_brands"`
	GenderByBrand      map[string]map[string]int  `json:"gender_by_brand"`
	RaceByBrand        map[string]map[string]int  `json:"race_by_brand"`
	CategoryByBrand    map[string]map[string]int  `json:"category_by_brand"`
	PerMarathon        map[string]MarathonSummary `json:"per_marathon"`
}

// EmptyBundle returns the well-defined zero bundle: all counts zero, empty
// tables, and an "N/A" leader. Aggregate and Merge return it for empty input.
func EmptyBundle() Bundle {
	return Bundle{
		BrandCounts:     map[string]int{},
		LeaderBrand:     LeaderBrand{Name: NoLeaderName},
		TopBrands:       []TopBrand{},
		GenderByBrand:   map[string]map[string]int{},
		RaceByBrand:     map[string]map[string]int{},
		CategoryByBrand: map[string]map[string]int{},
		PerMarathon:     map[string]MarathonSummary{},
	}
}
