package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/talkdigital/courtshoesbackend/models"
)

// EncodeMetric serializes a bundle into the denormalized cache row for one
// marathon. Map-valued fields become JSON text columns; encoding the same
// bundle twice produces identical column values (Go's JSON encoder emits map
// keys in sorted order), so recomputes with unchanged data rewrite the row
// byte-for-byte except for the timestamp.
func EncodeMetric(marathonID uint, bundle Bundle, now time.Time) (models.MarathonMetric, error) {
	brandCounts, err := json.Marshal(bundle.BrandCounts)
	if err != nil {
		return models.MarathonMetric{}, fmt.Errorf("failed to encode brand counts: %w", err)
	}
	genderDist, err := json.Marshal(bundle.GenderByBrand)
	if err != nil {
		return models.MarathonMetric{}, fmt.Errorf("failed to encode gender distribution: %w", err)
	}
	raceDist, err := json.Marshal(bundle.RaceByBrand)
	if err != nil {
		return models.MarathonMetric{}, fmt.Errorf("failed to encode race distribution: %w", err)
	}
	categoryDist, err := json.Marshal(bundle.CategoryByBrand)
	if err != nil {
		return models.MarathonMetric{}, fmt.Errorf("failed to encode category distribution: %w", err)
	}
	topBrands, err := json.Marshal(bundle.TopBrands)
	if err != nil {
		return models.MarathonMetric{}, fmt.Errorf("failed to encode top brands: %w", err)
	}

	return models.MarathonMetric{
		MarathonID:                   marathonID,
		TotalImages:                  bundle.TotalImages,
		TotalShoesDetected:           bundle.TotalShoesDetected,
		TotalPersonsWithDemographics: bundle.PersonsAnalyzed,
		UniqueBrandsCount:            bundle.UniqueBrandsCount,
		LeaderBrandName:              bundle.LeaderBrand.Name,
		LeaderBrandCount:             bundle.LeaderBrand.Count,
		LeaderBrandPercentage:        bundle.LeaderBrand.Percentage,
		BrandCountsJSON:              string(brandCounts),
		GenderDistributionJSON:       string(genderDist),
		RaceDistributionJSON:         string(raceDist),
		CategoryDistributionJSON:     string(categoryDist),
		TopBrandsJSON:                string(topBrands),
		LastCalculated:               now,
	}, nil
}

// DecodeMetric reconstructs a bundle from a cache row. marathonName fills the
// single-entry per-marathon breakdown (the cache row itself is already scoped
// to one marathon). A JSON column that fails to parse makes the whole row
// unusable; callers treat that as a cache miss for this marathon.
func DecodeMetric(row models.MarathonMetric, marathonName string) (Bundle, error) {
	bundle := EmptyBundle()
	bundle.TotalImages = row.TotalImages
	bundle.TotalShoesDetected = row.TotalShoesDetected
	bundle.PersonsAnalyzed = row.TotalPersonsWithDemographics
	bundle.UniqueBrandsCount = row.UniqueBrandsCount
	bundle.LeaderBrand = LeaderBrand{
		Name:       row.LeaderBrandName,
		Count:      row.LeaderBrandCount,
		Percentage: row.LeaderBrandPercentage,
	}
	if bundle.LeaderBrand.Name == "" {
		bundle.LeaderBrand.Name = NoLeaderName
	}

	if err := decodeJSONColumn(row.BrandCountsJSON, &bundle.BrandCounts); err != nil {
		return Bundle{}, fmt.Errorf("malformed brand_counts_json for marathon %d: %w", row.MarathonID, err)
	}
	if err := decodeJSONColumn(row.GenderDistributionJSON, &bundle.GenderByBrand); err != nil {
		return Bundle{}, fmt.Errorf("malformed gender_distribution_json for marathon %d: %w", row.MarathonID, err)
	}
	if err := decodeJSONColumn(row.RaceDistributionJSON, &bundle.RaceByBrand); err != nil {
		return Bundle{}, fmt.Errorf("malformed race_distribution_json for marathon %d: %w", row.MarathonID, err)
	}
	if err := decodeJSONColumn(row.CategoryDistributionJSON, &bundle.CategoryByBrand); err != nil {
		return Bundle{}, fmt.Errorf("malformed category_distribution_json for marathon %d: %w", row.MarathonID, err)
	}
	if err := decodeJSONColumn(row.TopBrandsJSON, &bundle.TopBrands); err != nil {
		return Bundle{}, fmt.Errorf("malformed top_brands_json for marathon %d: %w", row.MarathonID, err)
	}

	bundle.PerMarathon[marathonName] = MarathonSummary{
		ImagesCount:  row.TotalImages,
		ShoesCount:   row.TotalShoesDetected,
		PersonsCount: row.TotalPersonsWithDemographics,
	}

	return bundle, nil
}

func decodeJSONColumn(data string, dst interface{}) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), dst)
}
