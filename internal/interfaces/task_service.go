package interfaces

import (
	"context"

	"github.com/ternarybob/placetunes/internal/models"
)

// TaskManager owns the server-side generation pipeline: task creation,
// per-task processing goroutines, and cleanup.
type TaskManager interface {
	// CreateTask validates the request, stores a pending task and launches
	// its processing pipeline. Returns the new task.
	CreateTask(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error)

	// GetTask returns the current task snapshot
	GetTask(ctx context.Context, id string) (*models.MusicTask, error)

	// ListTasks returns tasks filtered by user and status, newest first
	ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error)

	// DeleteTask removes the task record and its stored image files
	DeleteTask(ctx context.Context, id string) error

	// CleanupOrphanFiles removes upload-dir files no task references.
	// Returns the number of files removed.
	CleanupOrphanFiles(ctx context.Context) (int, error)

	// RecordCallback stores a raw provider callback payload for a task
	RecordCallback(ctx context.Context, taskID string, payload []byte) error

	// Stop waits for in-flight pipelines to observe cancellation
	Stop(ctx context.Context) error
}

// TaskObserver receives task snapshots as the pipeline advances.
// Used to push status updates to WebSocket clients.
type TaskObserver interface {
	OnTaskUpdate(task *models.MusicTask)
}
