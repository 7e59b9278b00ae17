package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runnerCSV = `bib,position,gender,run_category,shoe_brand,confidence
1,1,M,10K,Nike,0.9
2,2,F,10K,Adidas,0.8
3,?,M,21K,Nike,0.7
`

func TestCSVAnalysisRawBody(t *testing.T) {
	t.Parallel()

	handler := NewCSVAnalysisHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/csv?name=Spring%20Run", strings.NewReader(runnerCSV))
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CSVAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.RowCount)
	assert.Equal(t, 0, resp.DroppedRows)
	assert.Equal(t, "Spring Run", resp.Statistics.MarathonName)
	assert.Equal(t, "Nike", resp.Statistics.LeaderBrand.Brand)
	assert.Equal(t, 2, resp.Statistics.LeaderBrand.Count)
}

func TestCSVAnalysisMultipartUpload(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "results.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(runnerCSV))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	handler := NewCSVAnalysisHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/csv", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CSVAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "results.csv", resp.Statistics.MarathonName, "filename labels the result when no name is given")
	assert.Equal(t, 3, resp.RowCount)
}

func TestCSVAnalysisInvalidCSV(t *testing.T) {
	t.Parallel()

	handler := NewCSVAnalysisHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/csv", strings.NewReader("bib,gender\n1,M\n"))
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "invalid_csv", resp.Errors[0].Code)
}
