package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/config"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/models"
	"github.com/talkdigital/courtshoesbackend/repository"
	"github.com/talkdigital/courtshoesbackend/services"
)

func brandPtr(s string) *string { return &s }

type stubMetricRepo struct {
	rows  map[uint]repository.CachedMetric
	names map[uint]string
}

func newStubMetricRepo() *stubMetricRepo {
	return &stubMetricRepo{
		rows:  make(map[uint]repository.CachedMetric),
		names: make(map[uint]string),
	}
}

func (f *stubMetricRepo) Store(marathonID uint, bundle analytics.Bundle) error {
	row, err := analytics.EncodeMetric(marathonID, bundle, time.Now())
	if err != nil {
		return err
	}
	f.rows[marathonID] = repository.CachedMetric{Row: row, MarathonName: f.names[marathonID]}
	return nil
}

func (f *stubMetricRepo) GetByMarathonIDs(marathonIDs []uint) ([]repository.CachedMetric, error) {
	var out []repository.CachedMetric
	for _, id := range marathonIDs {
		if entry, ok := f.rows[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *stubMetricRepo) DeleteByMarathonID(marathonID uint) error {
	delete(f.rows, marathonID)
	return nil
}

// stubDetectionRepo counts raw-table reads so tests can tell a cached
// response from a recomputed one.
type stubDetectionRepo struct {
	detail   map[uint][]analytics.DetailRow
	presence map[uint][]analytics.PresenceRow
	rawReads int
}

func newStubDetectionRepo() *stubDetectionRepo {
	return &stubDetectionRepo{
		detail:   make(map[uint][]analytics.DetailRow),
		presence: make(map[uint][]analytics.PresenceRow),
	}
}

func (f *stubDetectionRepo) InsertParsedRecords(marathonID uint, records []importer.ImageRecord, batchSize int) (int, error) {
	return 0, nil
}

func (f *stubDetectionRepo) DetailRows(marathonIDs []uint) ([]analytics.DetailRow, error) {
	f.rawReads++
	var out []analytics.DetailRow
	for _, id := range marathonIDs {
		out = append(out, f.detail[id]...)
	}
	return out, nil
}

func (f *stubDetectionRepo) PresenceRows(marathonIDs []uint) ([]analytics.PresenceRow, error) {
	var out []analytics.PresenceRow
	for _, id := range marathonIDs {
		out = append(out, f.presence[id]...)
	}
	return out, nil
}

func (f *stubDetectionRepo) ListImagesByMarathon(marathonID uint, sortOrder string) ([]models.Image, error) {
	return nil, nil
}

type stubMarathonRepo struct {
	marathons map[uint]*models.Marathon
}

func (f *stubMarathonRepo) Create(m *models.Marathon) error { return nil }
func (f *stubMarathonRepo) GetByName(string) (*models.Marathon, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *stubMarathonRepo) Update(m *models.Marathon) error   { return nil }
func (f *stubMarathonRepo) MarkImportProcessing(uint) error   { return nil }
func (f *stubMarathonRepo) SetImportResult(uint, error) error { return nil }
func (f *stubMarathonRepo) Delete(uint) error                 { return nil }

func (f *stubMarathonRepo) GetByID(id uint) (*models.Marathon, error) {
	if m, ok := f.marathons[id]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *stubMarathonRepo) ListAll() ([]models.Marathon, error) {
	var out []models.Marathon
	for _, m := range f.marathons {
		out = append(out, *m)
	}
	return out, nil
}

type reportFixture struct {
	router  *chi.Mux
	reports *ReportHandler
	metrics *stubMetricRepo
	det     *stubDetectionRepo
	mar     *stubMarathonRepo
}

func newReportFixture() *reportFixture {
	metricRepo := newStubMetricRepo()
	det := newStubDetectionRepo()
	mar := &stubMarathonRepo{marathons: make(map[uint]*models.Marathon)}
	svc := services.NewMetricsService(metricRepo, det, mar)

	reports := NewReportHandler(config.Config{ReportCacheTTL: time.Minute}, svc, mar)
	marathons := NewMarathonHandler(mar, det, svc, nil, reports)

	r := chi.NewRouter()
	r.Get("/api/reports/summary", reports.Summary)
	r.Get("/api/reports/individual", reports.Individual)
	r.Post("/api/marathons/{marathon_id}/metrics/recompute", marathons.RecomputeMetrics)

	return &reportFixture{router: r, reports: reports, metrics: metricRepo, det: det, mar: mar}
}

func (fx *reportFixture) addMarathon(id uint, name string) {
	fx.mar.marathons[id] = &models.Marathon{ID: id, Name: name}
	fx.metrics.names[id] = name
}

func (fx *reportFixture) addShoe(id uint, name, filename, brand string) {
	fx.det.detail[id] = append(fx.det.detail[id], analytics.DetailRow{
		MarathonID: id, MarathonName: name, Filename: filename, Brand: brandPtr(brand),
	})
	fx.det.presence[id] = append(fx.det.presence[id], analytics.PresenceRow{
		MarathonID: id, MarathonName: name, Filename: filename, HasDemographics: true,
	})
}

func (fx *reportFixture) getSummary(t *testing.T, query string) analytics.Bundle {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary"+query, nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle analytics.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	return bundle
}

func TestSummaryRepeatServedFromResponseCache(t *testing.T) {
	t.Parallel()

	fx := newReportFixture()
	fx.addMarathon(1, "Night Run")
	fx.addShoe(1, "Night Run", "frame_1.jpg", "Nike")

	first := fx.getSummary(t, "?marathon_ids=1")
	assert.Equal(t, 1, first.TotalShoesDetected)
	assert.Equal(t, 1, fx.det.rawReads)

	second := fx.getSummary(t, "?marathon_ids=1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fx.det.rawReads, "a repeat within the TTL must not touch raw tables")
}

func TestRecomputeMakesFreshMetricsVisible(t *testing.T) {
	t.Parallel()

	fx := newReportFixture()
	fx.addMarathon(1, "Night Run")
	fx.addShoe(1, "Night Run", "frame_1.jpg", "Nike")

	first := fx.getSummary(t, "?marathon_ids=1")
	require.Equal(t, 1, first.TotalShoesDetected)

	// new detections land after the summary was cached
	fx.addShoe(1, "Night Run", "frame_2.jpg", "Nike")
	fx.addShoe(1, "Night Run", "frame_3.jpg", "Adidas")

	req := httptest.NewRequest(http.MethodPost, "/api/marathons/1/metrics/recompute", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh analytics.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	require.Equal(t, 3, fresh.TotalShoesDetected)

	second := fx.getSummary(t, "?marathon_ids=1")
	assert.Equal(t, 3, second.TotalShoesDetected, "an explicit recompute must be visible on the next report")
	assert.Equal(t, "Nike", second.LeaderBrand.Name)
}

func TestInvalidateOnlyDropsSelectionsContainingMarathon(t *testing.T) {
	t.Parallel()

	fx := newReportFixture()
	fx.addMarathon(1, "First Run")
	fx.addMarathon(2, "Second Run")
	fx.addShoe(1, "First Run", "a.jpg", "Nike")
	fx.addShoe(2, "Second Run", "b.jpg", "Adidas")

	fx.getSummary(t, "?marathon_ids=1")
	fx.getSummary(t, "?marathon_ids=2")
	require.Equal(t, 2, fx.det.rawReads)

	fx.reports.Invalidate(1)

	fx.getSummary(t, "?marathon_ids=2")
	assert.Equal(t, 2, fx.det.rawReads, "the other marathon's selection stays cached")

	fx.getSummary(t, "?marathon_ids=1")
	assert.Equal(t, 3, fx.det.rawReads, "the invalidated selection is rebuilt")
}
