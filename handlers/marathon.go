package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/database"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/models"
	"github.com/talkdigital/courtshoesbackend/repository"
	"github.com/talkdigital/courtshoesbackend/services"
	"github.com/talkdigital/courtshoesbackend/workers"
)

// maxImportBodyBytes caps detection export uploads (the largest observed
// production export is ~40MB).
const maxImportBodyBytes = 256 << 20

type MarathonHandler struct {
	MarathonRepo repository.MarathonRepositoryInterface
	DetRepo      repository.DetectionRepositoryInterface
	Metrics      *services.MetricsService
	Importer     *workers.ImportProcessor
	Reports      *ReportHandler
}

func NewMarathonHandler(
	marathonRepo repository.MarathonRepositoryInterface,
	detRepo repository.DetectionRepositoryInterface,
	metrics *services.MetricsService,
	importProcessor *workers.ImportProcessor,
	reports *ReportHandler,
) *MarathonHandler {
	return &MarathonHandler{
		MarathonRepo: marathonRepo,
		DetRepo:      detRepo,
		Metrics:      metrics,
		Importer:     importProcessor,
		Reports:      reports,
	}
}

type MarathonCreatePayload struct {
	Name        string   `json:"name"`
	EventDate   *string  `json:"event_date,omitempty"`
	Location    *string  `json:"location,omitempty"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
	Description *string  `json:"description,omitempty"`
}

func marathonIDFromURL(r *http.Request) (uint, error) {
	idStr := chi.URLParam(r, "marathon_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *MarathonHandler) CreateMarathon(w http.ResponseWriter, r *http.Request) {
	var payload MarathonCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	if payload.Name == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_name", "Marathon name is required")
		return
	}

	marathon := &models.Marathon{
		Name:        payload.Name,
		EventDate:   payload.EventDate,
		Location:    payload.Location,
		DistanceKM:  payload.DistanceKM,
		Description: payload.Description,
	}
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok && user != nil {
		marathon.UploadedByUserID = &user.ID
	}

	if err := h.MarathonRepo.Create(marathon); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "create_failed", "Failed to create marathon: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, marathon)
}

func (h *MarathonHandler) ListMarathons(w http.ResponseWriter, r *http.Request) {
	marathons, err := h.MarathonRepo.ListAll()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to list marathons: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, marathons)
}

func (h *MarathonHandler) GetMarathon(w http.ResponseWriter, r *http.Request) {
	id, err := marathonIDFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid marathon ID format")
		return
	}

	marathon, err := h.MarathonRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Marathon not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve marathon: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, marathon)
}

func (h *MarathonHandler) DeleteMarathon(w http.ResponseWriter, r *http.Request) {
	id, err := marathonIDFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid marathon ID format")
		return
	}

	if err := h.MarathonRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Marathon not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete marathon: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListImages returns the marathon's image rows for gallery views. The sort
// query parameter accepts the orders in database/sort_options.go; the default
// is natural filename order so frame_2 sorts before frame_10.
func (h *MarathonHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, err := marathonIDFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid marathon ID format")
		return
	}

	sortOrder := r.URL.Query().Get("sort")
	if sortOrder == "" {
		sortOrder = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(sortOrder) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_sort", "Unsupported sort order: "+sortOrder)
		return
	}

	if _, err := h.MarathonRepo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Marathon not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve marathon: "+err.Error())
		return
	}

	images, err := h.DetRepo.ListImagesByMarathon(id, sortOrder)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to list images: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// importBody reads the detection export from either a multipart "file" field
// or the raw request body.
func importBody(r *http.Request) ([]byte, *string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, nil, err
		}
		filename := header.Filename
		return data, &filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

// ImportDetections accepts a detection export (JSON), parses it synchronously
// so malformed uploads fail fast, and queues persistence plus the metrics
// recompute on the worker pool. Responds 202; progress arrives over the
// websocket.
func (h *MarathonHandler) ImportDetections(w http.ResponseWriter, r *http.Request) {
	id, err := marathonIDFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid marathon ID format")
		return
	}

	marathon, err := h.MarathonRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Marathon not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve marathon: "+err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	data, filename, err := importBody(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_upload", "Failed to read upload: "+err.Error())
		return
	}

	records, err := importer.ParseRecords(data)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_export", "Failed to parse detection export: "+err.Error())
		return
	}
	if len(records) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "empty_export", "Detection export contains no image records")
		return
	}

	if filename != nil {
		marathon.OriginalFilename = filename
		if err := h.MarathonRepo.Update(marathon); err != nil {
			WriteAPIError(w, http.StatusInternalServerError, "update_failed", "Failed to record upload filename: "+err.Error())
			return
		}
	}

	if !h.Importer.QueueJob(workers.ImportJob{MarathonID: id, Records: records}) {
		WriteAPIError(w, http.StatusConflict, "import_pending", "An import for this marathon is already queued or running")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"marathon_id":   id,
		"image_records": len(records),
		"status":        database.StatusPending,
	})
}

// RecomputeMetrics rebuilds the marathon's cached metrics row from raw
// detection rows and returns the fresh bundle.
func (h *MarathonHandler) RecomputeMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := marathonIDFromURL(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid marathon ID format")
		return
	}

	if _, err := h.MarathonRepo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Marathon not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve marathon: "+err.Error())
		return
	}

	bundle, err := h.Metrics.Recompute(id)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "recompute_failed", "Failed to recompute metrics: "+err.Error())
		return
	}
	if h.Reports != nil {
		h.Reports.Invalidate(id)
	}
	writeJSON(w, http.StatusOK, bundle)
}
