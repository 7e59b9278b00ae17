package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/talkdigital/courtshoesbackend/config"
	"github.com/talkdigital/courtshoesbackend/repository"
	"github.com/talkdigital/courtshoesbackend/services"
)

// ReportHandler serves the dashboard's summary and per-marathon report
// endpoints. Responses are held in a short-TTL in-process cache so a page of
// dashboard widgets hitting the same marathon selection does not recompute
// the merge on every request.
type ReportHandler struct {
	Metrics       *services.MetricsService
	MarathonRepo  repository.MarathonRepositoryInterface
	responseCache *gocache.Cache
}

func NewReportHandler(cfg config.Config, metrics *services.MetricsService, marathonRepo repository.MarathonRepositoryInterface) *ReportHandler {
	return &ReportHandler{
		Metrics:       metrics,
		MarathonRepo:  marathonRepo,
		responseCache: gocache.New(cfg.ReportCacheTTL, 2*cfg.ReportCacheTTL),
	}
}

// marathonIDsFromQuery parses the marathon_ids parameter (comma-separated,
// may repeat). No parameter means every marathon.
func (h *ReportHandler) marathonIDsFromQuery(r *http.Request) ([]uint, error) {
	values := r.URL.Query()["marathon_ids"]
	if len(values) == 0 {
		marathons, err := h.MarathonRepo.ListAll()
		if err != nil {
			return nil, fmt.Errorf("failed to list marathons: %w", err)
		}
		ids := make([]uint, len(marathons))
		for i, m := range marathons {
			ids[i] = m.ID
		}
		return ids, nil
	}

	var ids []uint
	seen := make(map[uint]bool)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid marathon id '%s'", part)
			}
			if !seen[uint(id)] {
				seen[uint(id)] = true
				ids = append(ids, uint(id))
			}
		}
	}
	return ids, nil
}

// Invalidate drops every cached response whose selection includes the
// marathon, so an explicit recompute or a finished import is visible on the
// next report request instead of after the TTL.
func (h *ReportHandler) Invalidate(marathonID uint) {
	needle := strconv.FormatUint(uint64(marathonID), 10)
	for key := range h.responseCache.Items() {
		_, list, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		for _, part := range strings.Split(list, ",") {
			if part == needle {
				h.responseCache.Delete(key)
				break
			}
		}
	}
}

// cacheKey is order-insensitive: selecting marathons 2,1 and 1,2 is the same
// report.
func cacheKey(prefix string, ids []uint) string {
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return prefix + ":" + strings.Join(parts, ",")
}

// Summary returns one merged metrics bundle for the selected marathons.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ids, err := h.marathonIDsFromQuery(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_marathon_ids", err.Error())
		return
	}

	key := cacheKey("summary", ids)
	if cached, found := h.responseCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	bundle, err := h.Metrics.CombinedReport(ids)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "report_failed", "Failed to build summary report: "+err.Error())
		return
	}

	h.responseCache.SetDefault(key, bundle)
	writeJSON(w, http.StatusOK, bundle)
}

// Individual returns each selected marathon's metrics bundle unmerged,
// keyed by marathon name.
func (h *ReportHandler) Individual(w http.ResponseWriter, r *http.Request) {
	ids, err := h.marathonIDsFromQuery(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_marathon_ids", err.Error())
		return
	}

	key := cacheKey("individual", ids)
	if cached, found := h.responseCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	reports, err := h.Metrics.IndividualReports(ids)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "report_failed", "Failed to build individual reports: "+err.Error())
		return
	}

	h.responseCache.SetDefault(key, reports)
	writeJSON(w, http.StatusOK, reports)
}
