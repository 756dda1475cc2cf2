package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productdb-service/internal/models"
)

func newImportTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewImportHandler(nil, nil, logger)

	router := gin.New()
	router.POST("/api/v1/products/import", handler.ImportSpreadsheet)
	router.GET("/api/v1/products/import/template", handler.GetImportTemplate)
	return router
}

func multipartUpload(t *testing.T, fields map[string]string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if fileContent != nil {
		part, err := writer.CreateFormFile("file", "upload.xlsx")
		require.NoError(t, err)
		_, err = part.Write(fileContent)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestImportRequiresFile(t *testing.T) {
	router := newImportTestRouter()

	body, contentType := multipartUpload(t, map[string]string{"sheet": "products"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FILE_REQUIRED", resp.Error.Code)
}

func TestImportRejectsUnknownSheet(t *testing.T) {
	router := newImportTestRouter()

	body, contentType := multipartUpload(t, map[string]string{"sheet": "inventory"}, []byte("irrelevant"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_SHEET", resp.Error.Code)
}

func TestImportRejectsUnreadableWorkbook(t *testing.T) {
	router := newImportTestRouter()

	body, contentType := multipartUpload(t, map[string]string{"sheet": "products"}, []byte("not a spreadsheet"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_FILE_FORMAT", resp.Error.Code)
}

func TestImportTemplateJSON(t *testing.T) {
	router := newImportTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/import/template?sheet=product_migrations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool                  `json:"success"`
		Template models.ImportTemplate `json:"template"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "product_migrations", resp.Template.Sheet)
	assert.Len(t, resp.Template.Columns, 5)
}

func TestImportTemplateXLSXContainsBothSheets(t *testing.T) {
	router := newImportTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/import/template?format=xlsx", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "productdb_import_template.xlsx")
}
