package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placetunes/internal/common"
)

// UploadHandler accepts multipart image uploads and stages them in the
// uploads directory for later music generation. The whole batch is
// accepted or rejected as a unit: one invalid file fails the request and
// no files are kept.
type UploadHandler struct {
	logger    arbor.ILogger
	uploadDir string
	maxBytes  int64
	allowed   map[string]bool
}

func NewUploadHandler(config *common.Config, logger arbor.ILogger) *UploadHandler {
	allowed := make(map[string]bool, len(config.Images.AllowedExtensions))
	for _, ext := range config.Images.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &UploadHandler{
		logger:    logger,
		uploadDir: config.Storage.Filesystem.Uploads,
		maxBytes:  config.Images.MaxBytes,
		allowed:   allowed,
	}
}

// UploadImagesHandler handles POST /api/upload-images
func (h *UploadHandler) UploadImagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	// Form budget covers the whole batch plus multipart overhead
	maxForm := h.maxBytes*8 + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxForm)

	if err := r.ParseMultipartForm(maxForm); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form or request too large")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		WriteError(w, http.StatusBadRequest, "no images provided")
		return
	}

	// Validate every file before saving any
	for _, header := range files {
		if err := h.validate(header); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error().Err(err).Str("dir", h.uploadDir).Msg("Failed to create upload directory")
		WriteError(w, http.StatusInternalServerError, "failed to store images")
		return
	}

	saved := make([]string, 0, len(files))
	for _, header := range files {
		path, err := h.save(header)
		if err != nil {
			h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to save uploaded image")
			// Batch is atomic: discard anything already written
			for _, p := range saved {
				os.Remove(p)
			}
			WriteError(w, http.StatusInternalServerError, "failed to store images")
			return
		}
		saved = append(saved, path)
	}

	h.logger.Info().Int("count", len(saved)).Msg("Stored uploaded images")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"image_paths": saved,
	})
}

func (h *UploadHandler) validate(header *multipart.FileHeader) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !h.allowed[ext] {
		return fmt.Errorf("unsupported file type %q: %s", ext, header.Filename)
	}
	if header.Size > h.maxBytes {
		return fmt.Errorf("file too large: %s (%d bytes, limit %d)", header.Filename, header.Size, h.maxBytes)
	}
	return nil
}

func (h *UploadHandler) save(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := filepath.Join(h.uploadDir, common.UniqueFilename(header.Filename))

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", err
	}

	return dstPath, nil
}
