// -----------------------------------------------------------------------
// Task Manager - server-side music generation pipeline
// -----------------------------------------------------------------------

package taskmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

// Manager owns task lifecycle on the server: it creates tasks, runs one
// pipeline goroutine per task (pending -> analyzing -> generating ->
// completed/failed), and sweeps orphaned upload files.
type Manager struct {
	logger    arbor.ILogger
	storage   interfaces.TaskStorage
	callbacks interfaces.CallbackStorage
	analysis  interfaces.AnalysisService
	provider  interfaces.MusicProvider
	uploadDir string

	mu        sync.Mutex
	observers []interfaces.TaskObserver

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a task manager. Pipelines launched by CreateTask run
// until Stop cancels them.
func NewManager(
	storage interfaces.TaskStorage,
	callbacks interfaces.CallbackStorage,
	analysis interfaces.AnalysisService,
	provider interfaces.MusicProvider,
	uploadDir string,
	logger arbor.ILogger,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:    logger,
		storage:   storage,
		callbacks: callbacks,
		analysis:  analysis,
		provider:  provider,
		uploadDir: uploadDir,
		rootCtx:   ctx,
		cancel:    cancel,
	}
}

// AddObserver registers a task status observer
func (m *Manager) AddObserver(observer interfaces.TaskObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// CreateTask validates the request, stores a pending task and launches
// its processing pipeline
func (m *Manager) CreateTask(ctx context.Context, imagePaths []string, location, userID string) (*models.MusicTask, error) {
	task := models.NewMusicTask(common.NewTaskID(), imagePaths, location, userID)
	if err := task.Validate(); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	if err := m.storage.StoreTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	m.logger.Info().
		Str("task_id", task.ID).
		Str("location", task.Location).
		Int("images", len(task.ImagePaths)).
		Msg("Task created")

	m.wg.Add(1)
	common.SafeGoWithContext(m.rootCtx, m.logger, "task-pipeline-"+task.ID, func() {
		defer m.wg.Done()
		m.process(m.rootCtx, task)
	})

	return task, nil
}

// GetTask returns the current task snapshot
func (m *Manager) GetTask(ctx context.Context, id string) (*models.MusicTask, error) {
	return m.storage.GetTask(ctx, id)
}

// ListTasks returns tasks filtered by user and status, newest first
func (m *Manager) ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) ([]*models.MusicTask, error) {
	return m.storage.ListTasks(ctx, userID, status, limit, offset)
}

// DeleteTask removes the task record and its stored image files
func (m *Manager) DeleteTask(ctx context.Context, id string) error {
	task, err := m.storage.GetTask(ctx, id)
	if err != nil {
		return err
	}

	for _, path := range task.ImagePaths {
		if !m.insideUploadDir(path) {
			m.logger.Warn().Str("path", path).Msg("Refusing to delete file outside upload dir")
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.Warn().Str("path", path).Err(err).Msg("Failed to delete task image")
		}
	}

	if err := m.storage.DeleteTask(ctx, id); err != nil {
		return err
	}

	m.logger.Info().Str("task_id", id).Msg("Task deleted")
	return nil
}

// CleanupOrphanFiles removes upload-dir files no task references
func (m *Manager) CleanupOrphanFiles(ctx context.Context) (int, error) {
	referenced, err := m.storage.ReferencedImagePaths(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(m.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(m.uploadDir, entry.Name())
		if _, ok := referenced[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			m.logger.Warn().Str("path", path).Err(err).Msg("Failed to remove orphan file")
			continue
		}
		removed++
	}

	m.logger.Info().Int("removed", removed).Msg("Orphan file cleanup completed")
	return removed, nil
}

// RecordCallback stores a raw provider callback payload for a task
func (m *Manager) RecordCallback(ctx context.Context, taskID string, payload []byte) error {
	if _, err := m.storage.GetTask(ctx, taskID); err != nil {
		return err
	}
	return m.callbacks.StoreCallback(ctx, taskID, json.RawMessage(payload))
}

// Stop cancels running pipelines and waits for them to exit
func (m *Manager) Stop(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task pipelines did not stop in time: %w", ctx.Err())
	}
}

// process runs one task through the full pipeline. Every stage persists
// its transition before doing work so pollers always see current state.
func (m *Manager) process(ctx context.Context, task *models.MusicTask) {
	task.MarkAnalyzing()
	m.persist(ctx, task)

	valid := make([]string, 0, len(task.ImagePaths))
	for _, path := range task.ImagePaths {
		if _, err := os.Stat(path); err == nil {
			valid = append(valid, path)
		} else {
			m.logger.Warn().Str("task_id", task.ID).Str("path", path).Msg("Image file missing")
		}
	}
	if len(valid) == 0 {
		m.fail(ctx, task, "No valid image files found")
		return
	}

	analysis, err := m.analysis.AnalyzeImages(ctx, valid, task.Location)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, task, "Task cancelled during analysis")
			return
		}
		m.fail(ctx, task, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	task.Analysis = analysis
	task.MarkGenerating()
	m.persist(ctx, task)

	generationID, err := m.provider.Submit(ctx, analysis.StylePrompt, analysis.Title)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, task, "Task cancelled during submission")
			return
		}
		m.fail(ctx, task, fmt.Sprintf("Music generation failed: %v", err))
		return
	}

	result, err := m.provider.Await(ctx, generationID)
	if err != nil {
		if ctx.Err() != nil {
			m.fail(ctx, task, "Task cancelled while waiting for generation")
			return
		}
		m.fail(ctx, task, err.Error())
		return
	}

	description := analysis.Description
	if result.Description != "" {
		description = result.Description
	}
	title := result.Title
	if title == "" {
		title = analysis.Title
	}

	task.ProviderResponse = result.Raw
	task.MarkCompleted(result.AudioURL, result.AudioURLs, title, description)
	m.persist(ctx, task)

	m.logger.Info().
		Str("task_id", task.ID).
		Str("music_url", result.AudioURL).
		Int("tracks", len(result.AudioURLs)).
		Msg("Task completed")
}

func (m *Manager) fail(ctx context.Context, task *models.MusicTask, msg string) {
	task.MarkFailed(msg)
	m.persist(ctx, task)
	m.logger.Warn().Str("task_id", task.ID).Str("error", msg).Msg("Task failed")
}

// persist stores the task snapshot and notifies observers
func (m *Manager) persist(ctx context.Context, task *models.MusicTask) {
	if err := m.storage.StoreTask(context.WithoutCancel(ctx), task); err != nil {
		m.logger.Error().Str("task_id", task.ID).Err(err).Msg("Failed to persist task state")
	}

	m.mu.Lock()
	observers := make([]interfaces.TaskObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, observer := range observers {
		observer.OnTaskUpdate(task)
	}
}

// insideUploadDir guards file deletion against paths escaping the upload dir
func (m *Manager) insideUploadDir(path string) bool {
	absDir, err := filepath.Abs(m.uploadDir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var _ interfaces.TaskManager = (*Manager)(nil)
