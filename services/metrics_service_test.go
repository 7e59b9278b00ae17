package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/models"
	"github.com/talkdigital/courtshoesbackend/repository"
)

func strPtr(s string) *string { return &s }

// fakeMetricRepo keeps cache rows in memory.
type fakeMetricRepo struct {
	rows    map[uint]repository.CachedMetric
	readErr error
	stored  []uint
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{rows: make(map[uint]repository.CachedMetric)}
}

func (f *fakeMetricRepo) Store(marathonID uint, bundle analytics.Bundle) error {
	row, err := analytics.EncodeMetric(marathonID, bundle, time.Now())
	if err != nil {
		return err
	}
	name := f.rows[marathonID].MarathonName
	if name == "" {
		name = "stored"
	}
	f.rows[marathonID] = repository.CachedMetric{Row: row, MarathonName: name}
	f.stored = append(f.stored, marathonID)
	return nil
}

func (f *fakeMetricRepo) GetByMarathonIDs(marathonIDs []uint) ([]repository.CachedMetric, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []repository.CachedMetric
	for _, id := range marathonIDs {
		if entry, ok := f.rows[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeMetricRepo) DeleteByMarathonID(marathonID uint) error {
	delete(f.rows, marathonID)
	return nil
}

// fakeDetectionRepo serves canned raw rows keyed by marathon ID and records
// which IDs were queried.
type fakeDetectionRepo struct {
	detail   map[uint][]analytics.DetailRow
	presence map[uint][]analytics.PresenceRow
	queried  [][]uint
}

func newFakeDetectionRepo() *fakeDetectionRepo {
	return &fakeDetectionRepo{
		detail:   make(map[uint][]analytics.DetailRow),
		presence: make(map[uint][]analytics.PresenceRow),
	}
}

func (f *fakeDetectionRepo) InsertParsedRecords(marathonID uint, records []importer.ImageRecord, batchSize int) (int, error) {
	return 0, nil
}

func (f *fakeDetectionRepo) DetailRows(marathonIDs []uint) ([]analytics.DetailRow, error) {
	f.queried = append(f.queried, marathonIDs)
	var out []analytics.DetailRow
	for _, id := range marathonIDs {
		out = append(out, f.detail[id]...)
	}
	return out, nil
}

func (f *fakeDetectionRepo) PresenceRows(marathonIDs []uint) ([]analytics.PresenceRow, error) {
	var out []analytics.PresenceRow
	for _, id := range marathonIDs {
		out = append(out, f.presence[id]...)
	}
	return out, nil
}

func (f *fakeDetectionRepo) ListImagesByMarathon(marathonID uint, sortOrder string) ([]models.Image, error) {
	return nil, nil
}

type fakeMarathonRepo struct {
	marathons map[uint]*models.Marathon
}

func (f *fakeMarathonRepo) Create(m *models.Marathon) error { return nil }
func (f *fakeMarathonRepo) GetByName(string) (*models.Marathon, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeMarathonRepo) ListAll() ([]models.Marathon, error) { return nil, nil }
func (f *fakeMarathonRepo) Update(m *models.Marathon) error     { return nil }
func (f *fakeMarathonRepo) MarkImportProcessing(uint) error     { return nil }
func (f *fakeMarathonRepo) SetImportResult(uint, error) error   { return nil }
func (f *fakeMarathonRepo) Delete(uint) error                   { return nil }

func (f *fakeMarathonRepo) GetByID(id uint) (*models.Marathon, error) {
	if m, ok := f.marathons[id]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// seedMarathon wires one marathon's raw rows into the fakes: n images each
// carrying one shoe of the given brand.
func seedMarathon(det *fakeDetectionRepo, mar *fakeMarathonRepo, id uint, name, brand string, n int) {
	if mar.marathons == nil {
		mar.marathons = make(map[uint]*models.Marathon)
	}
	mar.marathons[id] = &models.Marathon{ID: id, Name: name}
	for i := 0; i < n; i++ {
		filename := name + "_" + string(rune('a'+i)) + ".jpg"
		det.detail[id] = append(det.detail[id], analytics.DetailRow{
			MarathonID: id, MarathonName: name, Filename: filename, Brand: strPtr(brand),
		})
		det.presence[id] = append(det.presence[id], analytics.PresenceRow{
			MarathonID: id, MarathonName: name, Filename: filename, HasDemographics: true,
		})
	}
}

func newServiceWithFakes() (*MetricsService, *fakeMetricRepo, *fakeDetectionRepo, *fakeMarathonRepo) {
	metricRepo := newFakeMetricRepo()
	detRepo := newFakeDetectionRepo()
	marRepo := &fakeMarathonRepo{marathons: make(map[uint]*models.Marathon)}
	return NewMetricsService(metricRepo, detRepo, marRepo), metricRepo, detRepo, marRepo
}

func TestCombinedReportEmptySelection(t *testing.T) {
	t.Parallel()

	svc, _, det, _ := newServiceWithFakes()

	bundle, err := svc.CombinedReport(nil)
	require.NoError(t, err)
	assert.Equal(t, analytics.EmptyBundle(), bundle)
	assert.Empty(t, det.queried, "no raw query for an empty selection")
}

func TestCombinedReportUsesCacheOnly(t *testing.T) {
	t.Parallel()

	svc, metricRepo, det, mar := newServiceWithFakes()
	seedMarathon(det, mar, 1, "Cached Run", "Nike", 2)

	// warm the cache, then clear the raw query log
	_, err := svc.Recompute(1)
	require.NoError(t, err)
	metricRepo.rows[1] = repository.CachedMetric{Row: metricRepo.rows[1].Row, MarathonName: "Cached Run"}
	det.queried = nil

	bundle, err := svc.CombinedReport([]uint{1})
	require.NoError(t, err)
	assert.Empty(t, det.queried, "a full cache hit must not touch raw tables")
	assert.Equal(t, 2, bundle.TotalImages)
	assert.Equal(t, "Nike", bundle.LeaderBrand.Name)
	assert.Equal(t, 2, bundle.PerMarathon["Cached Run"].ImagesCount)
}

func TestCombinedReportFallsBackForMissingEntries(t *testing.T) {
	t.Parallel()

	svc, metricRepo, det, mar := newServiceWithFakes()
	seedMarathon(det, mar, 1, "Cached Run", "Nike", 2)
	seedMarathon(det, mar, 2, "Fresh Run", "Adidas", 3)
	seedMarathon(det, mar, 3, "Another Fresh", "Adidas", 1)

	_, err := svc.Recompute(1)
	require.NoError(t, err)
	metricRepo.rows[1] = repository.CachedMetric{Row: metricRepo.rows[1].Row, MarathonName: "Cached Run"}
	det.queried = nil

	bundle, err := svc.CombinedReport([]uint{1, 2, 3})
	require.NoError(t, err)

	// both misses aggregated in one raw pass
	require.Len(t, det.queried, 1)
	assert.Equal(t, []uint{2, 3}, det.queried[0])

	assert.Equal(t, 6, bundle.TotalImages)
	assert.Equal(t, 6, bundle.TotalShoesDetected)
	assert.Equal(t, map[string]int{"Nike": 2, "Adidas": 4}, bundle.BrandCounts)
	assert.Equal(t, "Adidas", bundle.LeaderBrand.Name)
	require.Len(t, bundle.PerMarathon, 3)
}

func TestCombinedReportTreatsMalformedRowAsMiss(t *testing.T) {
	t.Parallel()

	svc, metricRepo, det, mar := newServiceWithFakes()
	seedMarathon(det, mar, 1, "Broken Cache", "Nike", 2)

	_, err := svc.Recompute(1)
	require.NoError(t, err)

	entry := metricRepo.rows[1]
	entry.MarathonName = "Broken Cache"
	entry.Row.BrandCountsJSON = "{corrupt"
	metricRepo.rows[1] = entry
	det.queried = nil

	bundle, err := svc.CombinedReport([]uint{1})
	require.NoError(t, err, "a corrupt cache row degrades, it does not fail the report")
	require.Len(t, det.queried, 1, "the corrupt marathon is re-aggregated from raw rows")
	assert.Equal(t, 2, bundle.TotalImages)
	assert.Equal(t, "Nike", bundle.LeaderBrand.Name)
}

func TestCombinedReportPropagatesCacheReadError(t *testing.T) {
	t.Parallel()

	svc, metricRepo, _, _ := newServiceWithFakes()
	metricRepo.readErr = errors.New("connection refused")

	_, err := svc.CombinedReport([]uint{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics cache")
}

func TestIndividualReportsMixedHitAndMiss(t *testing.T) {
	t.Parallel()

	svc, metricRepo, det, mar := newServiceWithFakes()
	seedMarathon(det, mar, 1, "Hit Run", "Nike", 2)
	seedMarathon(det, mar, 2, "Miss Run", "Adidas", 1)

	_, err := svc.Recompute(1)
	require.NoError(t, err)
	metricRepo.rows[1] = repository.CachedMetric{Row: metricRepo.rows[1].Row, MarathonName: "Hit Run"}

	reports, err := svc.IndividualReports([]uint{1, 2})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, 2, reports["Hit Run"].TotalImages)
	assert.Equal(t, "Nike", reports["Hit Run"].LeaderBrand.Name)
	assert.Equal(t, 1, reports["Miss Run"].TotalImages)
	assert.Equal(t, "Adidas", reports["Miss Run"].LeaderBrand.Name)
}

func TestRecomputeStoresFreshRow(t *testing.T) {
	t.Parallel()

	svc, metricRepo, det, mar := newServiceWithFakes()
	seedMarathon(det, mar, 5, "Recompute Run", "Mizuno", 4)

	bundle, err := svc.Recompute(5)
	require.NoError(t, err)

	assert.Equal(t, []uint{5}, metricRepo.stored)
	assert.Equal(t, 4, bundle.TotalShoesDetected)

	row := metricRepo.rows[5].Row
	assert.Equal(t, uint(5), row.MarathonID)
	assert.Equal(t, "Mizuno", row.LeaderBrandName)
	assert.Equal(t, 4, row.TotalImages)
}
