package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/models"
)

// mockTaskManager satisfies interfaces.TaskManager with scriptable funcs
type mockTaskManager struct {
	createTask     func(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error)
	getTask        func(ctx context.Context, id string) (*models.MusicTask, error)
	listTasks      func(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error)
	deleteTask     func(ctx context.Context, id string) error
	cleanup        func(ctx context.Context) (int, error)
	recordCallback func(ctx context.Context, taskID string, payload []byte) error
}

func (m *mockTaskManager) CreateTask(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error) {
	return m.createTask(ctx, imagePaths, location, userID)
}

func (m *mockTaskManager) GetTask(ctx context.Context, id string) (*models.MusicTask, error) {
	return m.getTask(ctx, id)
}

func (m *mockTaskManager) ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error) {
	return m.listTasks(ctx, userID, status, limit, offset)
}

func (m *mockTaskManager) DeleteTask(ctx context.Context, id string) error {
	return m.deleteTask(ctx, id)
}

func (m *mockTaskManager) CleanupOrphanFiles(ctx context.Context) (int, error) {
	return m.cleanup(ctx)
}

func (m *mockTaskManager) RecordCallback(ctx context.Context, taskID string, payload []byte) error {
	return m.recordCallback(ctx, taskID, payload)
}

func (m *mockTaskManager) Stop(ctx context.Context) error { return nil }

func notFoundErr(id string) error {
	return fmt.Errorf("%w: %s", models.ErrTaskNotFound, id)
}

func TestGenerateMusicHandlerCreatesTask(t *testing.T) {
	var gotPaths []string
	manager := &mockTaskManager{
		createTask: func(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error) {
			gotPaths = imagePaths
			return models.NewMusicTask("task-1", imagePaths, location, userID), nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	body := `{"image_paths": ["./data/uploads/a.jpg"], "location": "Sydney", "user_id": "user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-music", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.GenerateMusicHandler(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"./data/uploads/a.jpg"}, gotPaths)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp["task_id"])
	assert.Equal(t, "pending", resp["status"])
}

func TestGenerateMusicHandlerRejectsBadRequests(t *testing.T) {
	manager := &mockTaskManager{
		createTask: func(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error) {
			t.Fatal("CreateTask must not be called for invalid requests")
			return nil, nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"image_paths": [`},
		{"missing image paths", `{"location": "Sydney"}`},
		{"empty image paths", `{"image_paths": [], "location": "Sydney"}`},
		{"missing location", `{"image_paths": ["a.jpg"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/generate-music", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.GenerateMusicHandler(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGenerateMusicHandlerRejectsWrongMethod(t *testing.T) {
	handler := NewTaskHandler(&mockTaskManager{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/generate-music", nil)
	rec := httptest.NewRecorder()
	handler.GenerateMusicHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTaskStatusHandlerReturnsTask(t *testing.T) {
	task := models.NewMusicTask("task-1", []string{"a.jpg"}, "Sydney", "user-1")
	task.MarkAnalyzing()
	manager := &mockTaskManager{
		getTask: func(ctx context.Context, id string) (*models.MusicTask, error) {
			if id != "task-1" {
				return nil, notFoundErr(id)
			}
			return task, nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/task-status/task-1", nil)
	rec := httptest.NewRecorder()
	handler.TaskStatusHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.TaskStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, models.TaskStatusAnalyzing, resp.Status)
	assert.Equal(t, "Analyzing images", resp.Progress)
}

func TestTaskStatusHandlerUnknownTaskIs404(t *testing.T) {
	manager := &mockTaskManager{
		getTask: func(ctx context.Context, id string) (*models.MusicTask, error) {
			return nil, notFoundErr(id)
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/task-status/nope", nil)
	rec := httptest.NewRecorder()
	handler.TaskStatusHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskStatusHandlerMissingIDIs400(t *testing.T) {
	handler := NewTaskHandler(&mockTaskManager{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/task-status/", nil)
	rec := httptest.NewRecorder()
	handler.TaskStatusHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTasksHandlerPassesFilters(t *testing.T) {
	manager := &mockTaskManager{
		listTasks: func(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, models.TaskStatusCompleted, status)
			assert.Equal(t, 5, limit)
			assert.Equal(t, 10, offset)
			return []*models.MusicTask{
				models.NewMusicTask("task-1", []string{"a.jpg"}, "Sydney", userID),
			}, nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?user_id=user-1&status=completed&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	handler.ListTasksHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tasks  []models.TaskStatusResponse `json:"tasks"`
		Count  int                         `json:"count"`
		Limit  int                         `json:"limit"`
		Offset int                         `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 10, resp.Offset)
}

func TestDeleteTaskHandler(t *testing.T) {
	deleted := ""
	manager := &mockTaskManager{
		deleteTask: func(ctx context.Context, id string) error {
			if id != "task-1" {
				return notFoundErr(id)
			}
			deleted = id
			return nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/task/task-1", nil)
	rec := httptest.NewRecorder()
	handler.DeleteTaskHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task-1", deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/task/other", nil)
	rec = httptest.NewRecorder()
	handler.DeleteTaskHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupFilesHandlerReportsRemovedCount(t *testing.T) {
	manager := &mockTaskManager{
		cleanup: func(ctx context.Context) (int, error) { return 3, nil },
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cleanup-files", nil)
	rec := httptest.NewRecorder()
	handler.CleanupFilesHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(3), resp["removed"])
}

func TestProviderCallbackHandlerStoresPayload(t *testing.T) {
	var gotID string
	var gotPayload []byte
	manager := &mockTaskManager{
		recordCallback: func(ctx context.Context, taskID string, payload []byte) error {
			if taskID == "missing" {
				return notFoundErr(taskID)
			}
			gotID = taskID
			gotPayload = payload
			return nil
		},
	}
	handler := NewTaskHandler(manager, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/suno-callback/task-1", strings.NewReader(`{"code":200}`))
	rec := httptest.NewRecorder()
	handler.ProviderCallbackHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task-1", gotID)
	assert.JSONEq(t, `{"code":200}`, string(gotPayload))

	req = httptest.NewRequest(http.MethodPost, "/api/suno-callback/missing", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	handler.ProviderCallbackHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
