package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEmpty(t *testing.T) {
	t.Parallel()

	merged := Merge(nil)

	assert.Equal(t, EmptyBundle(), merged)
}

func TestMergeSingleBundlePreservesTotals(t *testing.T) {
	t.Parallel()

	detail := []DetailRow{
		detailRow(1, "Solo", "a.jpg", strPtr("Nike"), nil, nil, nil),
	}
	presence := []PresenceRow{
		{MarathonID: 1, MarathonName: "Solo", Filename: "a.jpg", HasDemographics: true},
	}
	bundle := Aggregate(detail, presence)

	merged := Merge([]Bundle{bundle})

	assert.Equal(t, bundle, merged)
}

func TestMergeSumsAndRederivesLeader(t *testing.T) {
	t.Parallel()

	a := Aggregate(
		[]DetailRow{
			detailRow(1, "First Run", "a.jpg", strPtr("Nike"), strPtr("Male"), nil, nil),
			detailRow(1, "First Run", "b.jpg", strPtr("Adidas"), nil, nil, nil),
		},
		[]PresenceRow{
			{MarathonID: 1, MarathonName: "First Run", Filename: "a.jpg", HasDemographics: true},
			{MarathonID: 1, MarathonName: "First Run", Filename: "b.jpg", HasDemographics: false},
		},
	)
	b := Aggregate(
		[]DetailRow{
			detailRow(2, "Second Run", "a.jpg", strPtr("Adidas"), strPtr("Female"), nil, nil),
			detailRow(2, "Second Run", "c.jpg", strPtr("Adidas"), nil, nil, nil),
		},
		[]PresenceRow{
			{MarathonID: 2, MarathonName: "Second Run", Filename: "a.jpg", HasDemographics: true},
			{MarathonID: 2, MarathonName: "Second Run", Filename: "c.jpg", HasDemographics: false},
		},
	)

	merged := Merge([]Bundle{a, b})

	assert.Equal(t, 4, merged.TotalImages)
	assert.Equal(t, 4, merged.TotalShoesDetected)
	assert.Equal(t, 2, merged.PersonsAnalyzed)
	assert.Equal(t, map[string]int{"Nike": 1, "Adidas": 3}, merged.BrandCounts)
	assert.Equal(t, 2, merged.UniqueBrandsCount)

	// Nike led neither input alone with 3 Adidas total; leader comes from the
	// merged counts, not from either input's leader field
	assert.Equal(t, "Adidas", merged.LeaderBrand.Name)
	assert.Equal(t, 3, merged.LeaderBrand.Count)
	assert.InDelta(t, 75.0, merged.LeaderBrand.Percentage, 0.001)

	assert.Equal(t, map[string]int{"Male": 1}, merged.GenderByBrand["Nike"])
	assert.Equal(t, map[string]int{"Female": 1}, merged.GenderByBrand["Adidas"])

	require.Len(t, merged.PerMarathon, 2)
	assert.Equal(t, 2, merged.PerMarathon["First Run"].ImagesCount)
	assert.Equal(t, 2, merged.PerMarathon["Second Run"].ImagesCount)
}

func TestMergeCrossTabAddsOverlappingKeys(t *testing.T) {
	t.Parallel()

	a := EmptyBundle()
	a.BrandCounts["Nike"] = 2
	a.GenderByBrand["Nike"] = map[string]int{"Male": 2}
	a.TotalShoesDetected = 2

	b := EmptyBundle()
	b.BrandCounts["Nike"] = 1
	b.GenderByBrand["Nike"] = map[string]int{"Male": 1, "Female": 1}
	b.TotalShoesDetected = 1

	merged := Merge([]Bundle{a, b})

	assert.Equal(t, map[string]int{"Male": 3, "Female": 1}, merged.GenderByBrand["Nike"])
	assert.Equal(t, 3, merged.BrandCounts["Nike"])
}
