package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/talkdigital/courtshoesbackend/importer"
)

// CSVAnalysisHandler serves the stateless runner-CSV statistics endpoint:
// nothing is persisted, the upload is validated, cleaned and summarized in
// one pass.
type CSVAnalysisHandler struct{}

func NewCSVAnalysisHandler() *CSVAnalysisHandler {
	return &CSVAnalysisHandler{}
}

type CSVAnalysisResponse struct {
	Statistics  importer.RunnerStatistics `json:"statistics"`
	RowCount    int                       `json:"row_count"`
	DroppedRows int                       `json:"dropped_rows"`
}

// Analyze accepts a runner CSV as a multipart "file" field or as the raw
// request body. The optional name query parameter labels the result set.
func (h *CSVAnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var reader io.Reader = r.Body
	name := r.URL.Query().Get("name")

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_upload", "Failed to read upload: "+err.Error())
			return
		}
		defer file.Close()
		reader = file
		if name == "" {
			name = header.Filename
		}
	}
	if name == "" {
		name = "uploaded_csv"
	}

	rows, dropped, err := importer.LoadRunnerCSV(reader)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_csv", "Failed to process CSV: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CSVAnalysisResponse{
		Statistics:  importer.GenerateStatistics(rows, name),
		RowCount:    len(rows),
		DroppedRows: dropped,
	})
}
