package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RunnerRow is one cleaned row of a runner-level race CSV (the simplified
// export format: one row per classified runner rather than per image).
type RunnerRow struct {
	Bib         string
	Position    string // "?" when the runner could not be positioned
	Gender      string
	RunCategory string
	ShoeBrand   string
	Confidence  *float64
}

var requiredCSVColumns = []string{"bib", "position", "gender", "run_category", "shoe_brand", "confidence"}

// LoadRunnerCSV parses and validates a race CSV. Rows missing any of the
// critical fields (bib, gender, run_category, shoe_brand) are dropped; the
// number of dropped rows is returned alongside the clean ones.
func LoadRunnerCSV(r io.Reader) ([]RunnerRow, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, required := range requiredCSVColumns {
		if _, ok := columnIndex[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("missing required CSV columns: %s", strings.Join(missing, ", "))
	}

	var rows []RunnerRow
	dropped := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := RunnerRow{
			Bib:         strings.TrimSpace(fields[columnIndex["bib"]]),
			Position:    strings.TrimSpace(fields[columnIndex["position"]]),
			Gender:      strings.ToUpper(strings.TrimSpace(fields[columnIndex["gender"]])),
			RunCategory: strings.TrimSpace(fields[columnIndex["run_category"]]),
			ShoeBrand:   strings.TrimSpace(fields[columnIndex["shoe_brand"]]),
		}
		if confidence, err := strconv.ParseFloat(strings.TrimSpace(fields[columnIndex["confidence"]]), 64); err == nil {
			row.Confidence = &confidence
		}

		if row.Bib == "" || row.Gender == "" || row.RunCategory == "" || row.ShoeBrand == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}

	return rows, dropped, nil
}

// BrandCount pairs a brand with its detection count, ordered for display.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// RunnerStatistics is the stateless analysis of one runner CSV. Nothing is
// persisted; the caller gets the full result back.
type RunnerStatistics struct {
	MarathonName             string         `json:"marathon_name"`
	TotalParticipants        int            `json:"total_participants"`
	TotalBrands              int            `json:"total_brands"`
	TopBrands                []BrandCount   `json:"top_brands"`
	LeaderBrand              BrandCount     `json:"leader_brand"`
	LeaderBrandPercentage    float64        `json:"leader_brand_percentage"`
	GenderDistribution       map[string]int `json:"gender_distribution"`
	CategoryDistribution     map[string]int `json:"category_distribution"`
	AvgConfidence            float64        `json:"avg_confidence"`
	MinConfidence            float64        `json:"min_confidence"`
	MaxConfidence            float64        `json:"max_confidence"`
	PositionedParticipants   int            `json:"positioned_participants"`
	UnpositionedParticipants int            `json:"unpositioned_participants"`
	PositioningRate          float64        `json:"positioning_rate"`
}

// GenerateStatistics computes the runner-CSV analysis: brand ranking, leader,
// gender and category distributions, confidence spread and positioning rate.
func GenerateStatistics(rows []RunnerRow, marathonName string) RunnerStatistics {
	stats := RunnerStatistics{
		MarathonName:         marathonName,
		TotalParticipants:    len(rows),
		GenderDistribution:   map[string]int{},
		CategoryDistribution: map[string]int{},
		TopBrands:            []BrandCount{},
		LeaderBrand:          BrandCount{Brand: "N/A"},
	}

	brandCounts := make(map[string]int)
	var confidences []float64
	for _, row := range rows {
		brandCounts[row.ShoeBrand]++
		stats.GenderDistribution[row.Gender]++
		stats.CategoryDistribution[row.RunCategory]++
		if row.Confidence != nil {
			confidences = append(confidences, *row.Confidence)
		}
		if row.Position != "?" && row.Position != "" {
			stats.PositionedParticipants++
		}
	}
	stats.UnpositionedParticipants = stats.TotalParticipants - stats.PositionedParticipants
	stats.TotalBrands = len(brandCounts)

	for brand, count := range brandCounts {
		stats.TopBrands = append(stats.TopBrands, BrandCount{Brand: brand, Count: count})
	}
	sort.Slice(stats.TopBrands, func(i, j int) bool {
		if stats.TopBrands[i].Count != stats.TopBrands[j].Count {
			return stats.TopBrands[i].Count > stats.TopBrands[j].Count
		}
		return stats.TopBrands[i].Brand < stats.TopBrands[j].Brand
	})

	if len(stats.TopBrands) > 0 {
		stats.LeaderBrand = stats.TopBrands[0]
		if stats.TotalParticipants > 0 {
			stats.LeaderBrandPercentage = round2(float64(stats.LeaderBrand.Count) / float64(stats.TotalParticipants) * 100)
		}
	}

	if len(confidences) > 0 {
		minC, maxC, sum := confidences[0], confidences[0], 0.0
		for _, c := range confidences {
			if c < minC {
				minC = c
			}
			if c > maxC {
				maxC = c
			}
			sum += c
		}
		stats.AvgConfidence = round2(sum / float64(len(confidences)))
		stats.MinConfidence = round2(minC)
		stats.MaxConfidence = round2(maxC)
	}

	if stats.TotalParticipants > 0 {
		stats.PositioningRate = round2(float64(stats.PositionedParticipants) / float64(stats.TotalParticipants) * 100)
	}

	return stats
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
