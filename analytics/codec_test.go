package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() Bundle {
	return Aggregate(
		[]DetailRow{
			detailRow(7, "Harbor Half", "a.jpg", strPtr("Nike"), strPtr("Male"), strPtr("White"), strPtr("race_photos")),
			detailRow(7, "Harbor Half", "b.jpg", strPtr("Adidas"), strPtr("Female"), strPtr("Black"), strPtr("race_photos")),
			detailRow(7, "Harbor Half", "b.jpg", strPtr("Adidas"), strPtr("Female"), strPtr("Black"), strPtr("race_photos")),
		},
		[]PresenceRow{
			{MarathonID: 7, MarathonName: "Harbor Half", Filename: "a.jpg", HasDemographics: true},
			{MarathonID: 7, MarathonName: "Harbor Half", Filename: "b.jpg", HasDemographics: true},
			{MarathonID: 7, MarathonName: "Harbor Half", Filename: "c.jpg", HasDemographics: false},
		},
	)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	bundle := sampleBundle()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	row, err := EncodeMetric(7, bundle, now)
	require.NoError(t, err)
	assert.Equal(t, uint(7), row.MarathonID)
	assert.Equal(t, now, row.LastCalculated)
	assert.Equal(t, "Adidas", row.LeaderBrandName)

	decoded, err := DecodeMetric(row, "Harbor Half")
	require.NoError(t, err)

	assert.Equal(t, bundle.TotalImages, decoded.TotalImages)
	assert.Equal(t, bundle.TotalShoesDetected, decoded.TotalShoesDetected)
	assert.Equal(t, bundle.PersonsAnalyzed, decoded.PersonsAnalyzed)
	assert.Equal(t, bundle.UniqueBrandsCount, decoded.UniqueBrandsCount)
	assert.Equal(t, bundle.LeaderBrand, decoded.LeaderBrand)
	assert.Equal(t, bundle.BrandCounts, decoded.BrandCounts)
	assert.Equal(t, bundle.GenderByBrand, decoded.GenderByBrand)
	assert.Equal(t, bundle.RaceByBrand, decoded.RaceByBrand)
	assert.Equal(t, bundle.CategoryByBrand, decoded.CategoryByBrand)
	assert.Equal(t, bundle.TopBrands, decoded.TopBrands)
	assert.Equal(t, bundle.PerMarathon, decoded.PerMarathon)
}

func TestEncodeMetricDeterministic(t *testing.T) {
	t.Parallel()

	bundle := sampleBundle()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first, err := EncodeMetric(7, bundle, now)
	require.NoError(t, err)
	second, err := EncodeMetric(7, bundle, now)
	require.NoError(t, err)

	assert.Equal(t, first.BrandCountsJSON, second.BrandCountsJSON)
	assert.Equal(t, first.GenderDistributionJSON, second.GenderDistributionJSON)
	assert.Equal(t, first.RaceDistributionJSON, second.RaceDistributionJSON)
	assert.Equal(t, first.CategoryDistributionJSON, second.CategoryDistributionJSON)
	assert.Equal(t, first.TopBrandsJSON, second.TopBrandsJSON)
	assert.Equal(t, first, second)
}

func TestDecodeMetricMalformedColumn(t *testing.T) {
	t.Parallel()

	bundle := sampleBundle()
	row, err := EncodeMetric(7, bundle, time.Now())
	require.NoError(t, err)

	row.GenderDistributionJSON = "{not json"

	_, err = DecodeMetric(row, "Harbor Half")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gender_distribution_json")
}

func TestDecodeMetricEmptyColumns(t *testing.T) {
	t.Parallel()

	row, err := EncodeMetric(3, EmptyBundle(), time.Now())
	require.NoError(t, err)

	// simulate a row written by an older schema with blank text columns
	row.BrandCountsJSON = ""
	row.TopBrandsJSON = ""

	decoded, err := DecodeMetric(row, "Old Row")
	require.NoError(t, err)
	assert.Empty(t, decoded.BrandCounts)
	assert.Empty(t, decoded.TopBrands)
	assert.Equal(t, NoLeaderName, decoded.LeaderBrand.Name)
}
