package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

// GenerateMusicRequest is the JSON body accepted by the generate endpoint
type GenerateMusicRequest struct {
	ImagePaths []string `json:"image_paths" validate:"required,min=1,dive,required"`
	Location   string   `json:"location" validate:"required"`
	UserID     string   `json:"user_id"`
}

// TaskHandler exposes the music generation task API
type TaskHandler struct {
	tasks    interfaces.TaskManager
	logger   arbor.ILogger
	validate *validator.Validate
}

func NewTaskHandler(tasks interfaces.TaskManager, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		logger:   logger,
		validate: validator.New(),
	}
}

// GenerateMusicHandler handles POST /api/generate-music. The task is
// created and queued; processing continues in the background and the
// client follows progress via the status endpoint or WebSocket.
func (h *TaskHandler) GenerateMusicHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req GenerateMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "image_paths and location are required")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), req.ImagePaths, req.Location, req.UserID)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			WriteError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to create music task")
		WriteError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

// TaskStatusHandler handles GET /api/task-status/{id}
func (h *TaskHandler) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	taskID := pathID(r, 2)
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			WriteError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to get task")
		WriteError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	WriteJSON(w, http.StatusOK, task.ToStatusResponse())
}

// ListTasksHandler handles GET /api/tasks?user_id=&status=&limit=&offset=
func (h *TaskHandler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	status := models.TaskStatus(r.URL.Query().Get("status"))
	limit, offset := GetListParams(r)

	tasks, err := h.tasks.ListTasks(r.Context(), userID, status, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tasks")
		WriteError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	responses := make([]*models.TaskStatusResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, task.ToStatusResponse())
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":  responses,
		"count":  len(responses),
		"limit":  limit,
		"offset": offset,
	})
}

// DeleteTaskHandler handles DELETE /api/task/{id}
func (h *TaskHandler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	taskID := pathID(r, 2)
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), taskID); err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			WriteError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to delete task")
		WriteError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	WriteSuccess(w, "task deleted")
}

// CleanupFilesHandler handles POST /api/cleanup-files. Removes upload-dir
// files that no stored task references.
func (h *TaskHandler) CleanupFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	removed, err := h.tasks.CleanupOrphanFiles(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clean up orphan files")
		WriteError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// ProviderCallbackHandler handles POST /api/suno-callback/{id}. The raw
// payload is persisted for diagnostics; task state is driven by polling,
// not by the callback.
func (h *TaskHandler) ProviderCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	taskID := pathID(r, 2)
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read callback body")
		return
	}

	if err := h.tasks.RecordCallback(r.Context(), taskID, payload); err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			WriteError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to record provider callback")
		WriteError(w, http.StatusInternalServerError, "failed to record callback")
		return
	}

	h.logger.Info().Str("task_id", taskID).Int("bytes", len(payload)).Msg("Provider callback recorded")
	WriteSuccess(w, "callback recorded")
}

// pathID extracts a path segment by index, e.g. index 2 of
// /api/task-status/{id}
func pathID(r *http.Request, index int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) <= index {
		return ""
	}
	return parts[index]
}
