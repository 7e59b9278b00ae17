package services

import (
	"fmt"
	"log"

	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/repository"
)

// MetricsService is the read side of the pre-computed metrics cache. It
// answers combined and per-marathon report requests from cache rows where
// they exist and falls back to aggregating raw detection rows for marathons
// that have no usable cache entry. It also owns explicit recomputes.
type MetricsService struct {
	Metrics    repository.MetricRepositoryInterface
	Detections repository.DetectionRepositoryInterface
	Marathons  repository.MarathonRepositoryInterface
}

func NewMetricsService(
	metrics repository.MetricRepositoryInterface,
	detections repository.DetectionRepositoryInterface,
	marathons repository.MarathonRepositoryInterface,
) *MetricsService {
	return &MetricsService{Metrics: metrics, Detections: detections, Marathons: marathons}
}

// decodedCaches reads and decodes the cache rows for the requested marathons.
// Rows whose JSON columns fail to parse are logged and dropped so the caller
// treats those marathons as cache misses rather than failing the request.
func (s *MetricsService) decodedCaches(marathonIDs []uint) (map[uint]analytics.Bundle, map[uint]string, error) {
	cached, err := s.Metrics.GetByMarathonIDs(marathonIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read metrics cache: %w", err)
	}

	bundles := make(map[uint]analytics.Bundle, len(cached))
	names := make(map[uint]string, len(cached))
	for _, entry := range cached {
		bundle, err := analytics.DecodeMetric(entry.Row, entry.MarathonName)
		if err != nil {
			log.Printf("metrics: dropping unreadable cache row for marathon %d: %v", entry.Row.MarathonID, err)
			continue
		}
		bundles[entry.Row.MarathonID] = bundle
		names[entry.Row.MarathonID] = entry.MarathonName
	}
	return bundles, names, nil
}

// aggregateRaw computes a bundle directly from the raw detection store.
func (s *MetricsService) aggregateRaw(marathonIDs []uint) (analytics.Bundle, error) {
	detail, err := s.Detections.DetailRows(marathonIDs)
	if err != nil {
		return analytics.Bundle{}, fmt.Errorf("failed to load detail rows: %w", err)
	}
	presence, err := s.Detections.PresenceRows(marathonIDs)
	if err != nil {
		return analytics.Bundle{}, fmt.Errorf("failed to load presence rows: %w", err)
	}
	return analytics.Aggregate(detail, presence), nil
}

// CombinedReport returns one merged bundle for the requested marathons.
// Cached bundles are merged without touching the raw tables; marathons with
// no usable cache row are aggregated from raw rows in a single fallback pass
// and merged in. A missing cache entry is never an error.
func (s *MetricsService) CombinedReport(marathonIDs []uint) (analytics.Bundle, error) {
	if len(marathonIDs) == 0 {
		return analytics.EmptyBundle(), nil
	}

	cachedBundles, _, err := s.decodedCaches(marathonIDs)
	if err != nil {
		return analytics.Bundle{}, err
	}

	var missing []uint
	for _, id := range marathonIDs {
		if _, ok := cachedBundles[id]; !ok {
			missing = append(missing, id)
		}
	}

	bundles := make([]analytics.Bundle, 0, len(cachedBundles)+1)
	for _, id := range marathonIDs {
		if bundle, ok := cachedBundles[id]; ok {
			bundles = append(bundles, bundle)
		}
	}
	if len(missing) > 0 {
		fallback, err := s.aggregateRaw(missing)
		if err != nil {
			return analytics.Bundle{}, err
		}
		bundles = append(bundles, fallback)
	}

	return analytics.Merge(bundles), nil
}

// IndividualReports returns each requested marathon's bundle unmerged, keyed
// by marathon name. Cache hits are decoded directly; misses are aggregated
// from raw rows one marathon at a time.
func (s *MetricsService) IndividualReports(marathonIDs []uint) (map[string]analytics.Bundle, error) {
	results := make(map[string]analytics.Bundle, len(marathonIDs))
	if len(marathonIDs) == 0 {
		return results, nil
	}

	cachedBundles, names, err := s.decodedCaches(marathonIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range marathonIDs {
		if bundle, ok := cachedBundles[id]; ok {
			results[names[id]] = bundle
			continue
		}

		marathon, err := s.Marathons.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve marathon %d: %w", id, err)
		}
		bundle, err := s.aggregateRaw([]uint{id})
		if err != nil {
			return nil, err
		}
		results[marathon.Name] = bundle
	}
	return results, nil
}

// Recompute rebuilds a marathon's cache row from the raw detection store.
// It is idempotent: recomputing with unchanged raw data rewrites an
// identical row, so callers can safely retry after a failed write.
func (s *MetricsService) Recompute(marathonID uint) (analytics.Bundle, error) {
	bundle, err := s.aggregateRaw([]uint{marathonID})
	if err != nil {
		return analytics.Bundle{}, err
	}
	if err := s.Metrics.Store(marathonID, bundle); err != nil {
		return analytics.Bundle{}, err
	}
	return bundle, nil
}
