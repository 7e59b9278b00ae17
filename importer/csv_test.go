package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = `bib,position,gender,run_category,shoe_brand,confidence
101,1,m,10K,Nike,0.91
102,2,F,10K,Adidas,0.85
103,?,M,21K,Nike,0.77
104,4,F,21K,Olympikus,not_a_number
,5,M,10K,Mizuno,0.90
`

func TestLoadRunnerCSV(t *testing.T) {
	t.Parallel()

	rows, dropped, err := LoadRunnerCSV(strings.NewReader(validCSV))
	require.NoError(t, err)

	assert.Equal(t, 1, dropped, "the row with an empty bib is dropped")
	require.Len(t, rows, 4)

	assert.Equal(t, "101", rows[0].Bib)
	assert.Equal(t, "M", rows[0].Gender, "gender is uppercased")
	require.NotNil(t, rows[0].Confidence)
	assert.InDelta(t, 0.91, *rows[0].Confidence, 0.0001)

	assert.Equal(t, "?", rows[2].Position)
	assert.Nil(t, rows[3].Confidence, "unparseable confidence becomes nil, row is kept")
}

func TestLoadRunnerCSVHeaderCaseInsensitive(t *testing.T) {
	t.Parallel()

	csv := "BIB,Position,GENDER,Run_Category,Shoe_Brand,Confidence\n1,1,M,5K,Asics,0.5\n"
	rows, dropped, err := LoadRunnerCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asics", rows[0].ShoeBrand)
}

func TestLoadRunnerCSVMissingColumns(t *testing.T) {
	t.Parallel()

	csv := "bib,gender,shoe_brand\n1,M,Nike\n"
	_, _, err := LoadRunnerCSV(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position")
	assert.Contains(t, err.Error(), "run_category")
	assert.Contains(t, err.Error(), "confidence")
}

func TestGenerateStatistics(t *testing.T) {
	t.Parallel()

	rows, _, err := LoadRunnerCSV(strings.NewReader(validCSV))
	require.NoError(t, err)

	stats := GenerateStatistics(rows, "Test Marathon")

	assert.Equal(t, "Test Marathon", stats.MarathonName)
	assert.Equal(t, 4, stats.TotalParticipants)
	assert.Equal(t, 3, stats.TotalBrands)

	assert.Equal(t, BrandCount{Brand: "Nike", Count: 2}, stats.LeaderBrand)
	assert.InDelta(t, 50.0, stats.LeaderBrandPercentage, 0.001)
	require.Len(t, stats.TopBrands, 3)
	assert.Equal(t, "Nike", stats.TopBrands[0].Brand)
	// tie between Adidas and Olympikus breaks on name
	assert.Equal(t, "Adidas", stats.TopBrands[1].Brand)
	assert.Equal(t, "Olympikus", stats.TopBrands[2].Brand)

	assert.Equal(t, map[string]int{"M": 2, "F": 2}, stats.GenderDistribution)
	assert.Equal(t, map[string]int{"10K": 2, "21K": 2}, stats.CategoryDistribution)

	assert.Equal(t, 3, stats.PositionedParticipants)
	assert.Equal(t, 1, stats.UnpositionedParticipants)
	assert.InDelta(t, 75.0, stats.PositioningRate, 0.001)

	// confidence stats cover only the three parseable values
	assert.InDelta(t, 0.77, stats.MinConfidence, 0.0001)
	assert.InDelta(t, 0.91, stats.MaxConfidence, 0.0001)
	assert.InDelta(t, 0.84, stats.AvgConfidence, 0.0001)
}

func TestGenerateStatisticsEmpty(t *testing.T) {
	t.Parallel()

	stats := GenerateStatistics(nil, "Empty")

	assert.Equal(t, 0, stats.TotalParticipants)
	assert.Equal(t, "N/A", stats.LeaderBrand.Brand)
	assert.Zero(t, stats.LeaderBrandPercentage)
	assert.Zero(t, stats.PositioningRate)
	assert.Empty(t, stats.TopBrands)
}
