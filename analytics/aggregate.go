package analytics

import (
	"math"
	"sort"
	"strings"
)

// UnknownSegmentLabel is the sentinel the upstream analyzer emits when it
// could not classify a demographic field. Rows carrying it are excluded from
// the demographic cross-tabulations.
const UnknownSegmentLabel = "Desconhecido"

// TopBrandsLimit caps the ranked top-brands table.
const TopBrandsLimit = 10

const barGlyph = "█"

type imageKey struct {
	marathonID uint
	filename   string
}

// Aggregate turns the two raw tabular views into a metrics bundle. It is a
// pure function: no I/O, inputs are not mutated, and empty input yields the
// zero bundle rather than an error.
//
// Image and person totals come from the presence view (one row per physical
// image); shoe totals count every detection row with a known brand, so an
// image with two detected shoes contributes two.
func Aggregate(detail []DetailRow, presence []PresenceRow) Bundle {
	bundle := EmptyBundle()

	seenImages := make(map[imageKey]struct{})
	seenPersons := make(map[imageKey]struct{})
	perMarathonImages := make(map[string]map[string]struct{})
	perMarathonPersons := make(map[string]map[string]struct{})

	for _, row := range presence {
		key := imageKey{row.MarathonID, row.Filename}
		seenImages[key] = struct{}{}
		if row.HasDemographics {
			seenPersons[key] = struct{}{}
		}

		if perMarathonImages[row.MarathonName] == nil {
			perMarathonImages[row.MarathonName] = make(map[string]struct{})
			perMarathonPersons[row.MarathonName] = make(map[string]struct{})
		}
		perMarathonImages[row.MarathonName][row.Filename] = struct{}{}
		if row.HasDemographics {
			perMarathonPersons[row.MarathonName][row.Filename] = struct{}{}
		}
	}

	bundle.TotalImages = len(seenImages)
	bundle.PersonsAnalyzed = len(seenPersons)

	perMarathonShoes := make(map[string]int)

	for _, row := range detail {
		if row.Brand == nil {
			continue
		}
		brand := *row.Brand
		bundle.TotalShoesDetected++
		bundle.BrandCounts[brand]++
		perMarathonShoes[row.MarathonName]++

		if row.PersonGender != nil && *row.PersonGender != UnknownSegmentLabel {
			addCrossTab(bundle.GenderByBrand, brand, *row.PersonGender)
		}
		if row.PersonRace != nil && *row.PersonRace != UnknownSegmentLabel {
			addCrossTab(bundle.RaceByBrand, brand, *row.PersonRace)
		}
		if row.Category != nil {
			addCrossTab(bundle.CategoryByBrand, brand, *row.Category)
		}
	}

	bundle.UniqueBrandsCount = len(bundle.BrandCounts)
	bundle.LeaderBrand = deriveLeader(bundle.BrandCounts, bundle.TotalShoesDetected)
	bundle.TopBrands = deriveTopBrands(bundle.BrandCounts, bundle.TotalShoesDetected)

	for name, images := range perMarathonImages {
		bundle.PerMarathon[name] = MarathonSummary{
			ImagesCount:  len(images),
			PersonsCount: len(perMarathonPersons[name]),
			ShoesCount:   perMarathonShoes[name],
		}
	}

	return bundle
}

func addCrossTab(tab map[string]map[string]int, brand, segment string) {
	if tab[brand] == nil {
		tab[brand] = make(map[string]int)
	}
	tab[brand][segment]++
}

type brandEntry struct {
	brand string
	count int
}

// sortedBrandEntries returns the frequency table sorted by count descending.
// Ties break on brand name so the derived leader and ranking are
// deterministic across runs regardless of map iteration order.
func sortedBrandEntries(counts map[string]int) []brandEntry {
	entries := make([]brandEntry, 0, len(counts))
	for brand, count := range counts {
		entries = append(entries, brandEntry{brand, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].brand < entries[j].brand
	})
	return entries
}

func deriveLeader(counts map[string]int, totalShoes int) LeaderBrand {
	entries := sortedBrandEntries(counts)
	if len(entries) == 0 {
		return LeaderBrand{Name: NoLeaderName}
	}
	leader := LeaderBrand{Name: entries[0].brand, Count: entries[0].count}
	if totalShoes > 0 {
		leader.Percentage = roundTo(float64(leader.Count)/float64(totalShoes)*100, 2)
	}
	return leader
}

func deriveTopBrands(counts map[string]int, totalShoes int) []TopBrand {
	entries := sortedBrandEntries(counts)
	if len(entries) > TopBrandsLimit {
		entries = entries[:TopBrandsLimit]
	}

	maxCount := 0
	if len(entries) > 0 {
		maxCount = entries[0].count
	}

	top := make([]TopBrand, 0, len(entries))
	for i, entry := range entries {
		share := 0.0
		if totalShoes > 0 {
			share = roundTo(float64(entry.count)/float64(totalShoes)*100, 1)
		}
		barLen := 0
		if maxCount > 0 {
			barLen = int(math.Round(float64(entry.count) / float64(maxCount) * 10))
		}
		top = append(top, TopBrand{
			Rank:         i + 1,
			Brand:        entry.brand,
			Count:        entry.count,
			SharePercent: share,
			Bar:          strings.Repeat(barGlyph, barLen),
		})
	}
	return top
}

func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
