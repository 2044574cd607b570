package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
)

func newUploadHandler(t *testing.T) (*UploadHandler, string) {
	t.Helper()
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Storage.Filesystem.Uploads = dir
	config.Images.MaxBytes = 1024
	return NewUploadHandler(config, arbor.NewLogger()), dir
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadImagesStoresBatch(t *testing.T) {
	handler, dir := newUploadHandler(t)

	body, contentType := multipartBody(t, map[string][]byte{
		"beach.jpg":   []byte("jpegdata"),
		"harbour.png": []byte("pngdata"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload-images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadImagesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ImagePaths []string `json:"image_paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.ImagePaths, 2)

	for _, path := range resp.ImagePaths {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUploadImagesRejectsEmptyForm(t *testing.T) {
	handler, _ := newUploadHandler(t)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload-images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadImagesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no images provided")
}

func TestUploadImagesBatchIsAtomic(t *testing.T) {
	handler, dir := newUploadHandler(t)

	// One disallowed file rejects the whole batch before anything is saved
	body, contentType := multipartBody(t, map[string][]byte{
		"beach.jpg": []byte("jpegdata"),
		"notes.txt": []byte("plaintext"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload-images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadImagesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadImagesRejectsOversizeFile(t *testing.T) {
	handler, dir := newUploadHandler(t)

	body, contentType := multipartBody(t, map[string][]byte{
		"huge.jpg": bytes.Repeat([]byte("x"), 2048),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload-images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadImagesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file too large")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadImagesRejectsWrongMethod(t *testing.T) {
	handler, _ := newUploadHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/upload-images", nil)
	rec := httptest.NewRecorder()
	handler.UploadImagesHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
