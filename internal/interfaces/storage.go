package interfaces

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/placetunes/internal/models"
)

// TaskStorage - interface for music task persistence
type TaskStorage interface {
	StoreTask(ctx context.Context, task *models.MusicTask) error
	GetTask(ctx context.Context, id string) (*models.MusicTask, error)
	ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error)
	DeleteTask(ctx context.Context, id string) error
	CountTasks(ctx context.Context) (int, error)

	// ReferencedImagePaths returns every image path referenced by any task,
	// used by the orphan-file cleanup sweep.
	ReferencedImagePaths(ctx context.Context) (map[string]struct{}, error)
}

// CallbackStorage - interface for provider callback logging
type CallbackStorage interface {
	StoreCallback(ctx context.Context, taskID string, payload json.RawMessage) error
	GetCallbacks(ctx context.Context, taskID string) ([]*models.CallbackLog, error)
}
