package analytics

// Merge combines per-marathon bundles into one without rescanning raw rows.
// Scalar totals are summed, frequency tables and cross-tabulations are added
// key-wise, and the per-marathon breakdown is unioned (each bundle's slice is
// already disjoint). The leader and top-brands tables are re-derived from the
// merged frequency table; they are derived values and must never be summed or
// concatenated from the inputs.
func Merge(bundles []Bundle) Bundle {
	merged := EmptyBundle()

	for _, b := range bundles {
		merged.TotalImages += b.TotalImages
		merged.TotalShoesDetected += b.TotalShoesDetected
		merged.PersonsAnalyzed += b.PersonsAnalyzed

		for brand, count := range b.BrandCounts {
			merged.BrandCounts[brand] += count
		}
		mergeCrossTab(merged.GenderByBrand, b.GenderByBrand)
		mergeCrossTab(merged.RaceByBrand, b.RaceByBrand)
		mergeCrossTab(merged.CategoryByBrand, b.CategoryByBrand)

		for name, summary := range b.PerMarathon {
			merged.PerMarathon[name] = summary
		}
	}

	merged.UniqueBrandsCount = len(merged.BrandCounts)
	merged.LeaderBrand = deriveLeader(merged.BrandCounts, merged.TotalShoesDetected)
	merged.TopBrands = deriveTopBrands(merged.BrandCounts, merged.TotalShoesDetected)

	return merged
}

func mergeCrossTab(dst, src map[string]map[string]int) {
	for brand, segments := range src {
		if dst[brand] == nil {
			dst[brand] = make(map[string]int)
		}
		for segment, count := range segments {
			dst[brand][segment] += count
		}
	}
}
