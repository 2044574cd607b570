// -----------------------------------------------------------------------
// Music Task - Persisted generation task with runtime lifecycle state
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a music generation task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAnalyzing  TaskStatus = "analyzing"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// MusicTask represents a music generation task stored in the database.
// The request fields (ImagePaths, Location, UserID) are an immutable snapshot
// taken at creation time; the remaining fields are runtime state updated as
// the pipeline advances.
//
// Task State Lifecycle:
//  1. pending    - created, waiting for the pipeline goroutine
//  2. analyzing  - image analysis in progress
//  3. generating - submitted to the music provider, polling for results
//  4. completed / failed - terminal, absorbing
type MusicTask struct {
	ID string `json:"task_id" badgerhold:"key"`

	// Request snapshot
	ImagePaths []string `json:"image_paths"`
	Location   string   `json:"location"` // Comma-joined composite location string
	UserID     string   `json:"user_id" badgerholdIndex:"UserID"`

	// Runtime state
	Status   TaskStatus `json:"status" badgerholdIndex:"Status"`
	Progress string     `json:"progress,omitempty"` // Human-readable progress message

	// Results
	MusicURL         string          `json:"music_url,omitempty"`
	MusicURLs        []string        `json:"music_urls,omitempty"`
	MusicTitle       string          `json:"music_title,omitempty"`
	MusicDescription string          `json:"music_description,omitempty"`
	Analysis         *ImageAnalysis  `json:"analysis,omitempty"`
	ProviderResponse json.RawMessage `json:"sono_response,omitempty"` // Raw provider payload for diagnostics
	ErrorMessage     string          `json:"error_message,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewMusicTask creates a pending task from a generation request snapshot
func NewMusicTask(id string, imagePaths []string, location, userID string) *MusicTask {
	paths := make([]string, len(imagePaths))
	copy(paths, imagePaths)

	return &MusicTask{
		ID:         id,
		ImagePaths: paths,
		Location:   location,
		UserID:     userID,
		Status:     TaskStatusPending,
		Progress:   "Task queued",
		CreatedAt:  time.Now(),
	}
}

// Validate validates the task request snapshot
func (t *MusicTask) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if len(t.ImagePaths) == 0 {
		return fmt.Errorf("task has no images")
	}
	if t.Location == "" {
		return fmt.Errorf("task has no location")
	}
	return nil
}

// MarkAnalyzing moves the task into the image-analysis stage
func (t *MusicTask) MarkAnalyzing() {
	t.Status = TaskStatusAnalyzing
	t.Progress = "Analyzing images"
	now := time.Now()
	t.StartedAt = &now
}

// MarkGenerating moves the task into the provider-generation stage
func (t *MusicTask) MarkGenerating() {
	t.Status = TaskStatusGenerating
	t.Progress = "Generating music"
}

// MarkCompleted records the generation result and finishes the task
func (t *MusicTask) MarkCompleted(musicURL string, musicURLs []string, title, description string) {
	t.Status = TaskStatusCompleted
	t.Progress = "Completed"
	t.MusicURL = musicURL
	t.MusicURLs = musicURLs
	t.MusicTitle = title
	t.MusicDescription = description
	now := time.Now()
	t.CompletedAt = &now
}

// MarkFailed finishes the task with an error message.
// The message is surfaced verbatim to polling clients.
func (t *MusicTask) MarkFailed(errorMsg string) {
	t.Status = TaskStatusFailed
	t.Progress = "Failed"
	t.ErrorMessage = errorMsg
	now := time.Now()
	t.CompletedAt = &now
}

// IsTerminal returns true if the task is in a terminal state
func (t *MusicTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// ImageAnalysis holds the image-understanding output used to drive generation
type ImageAnalysis struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	StylePrompt string `json:"style_prompt,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"` // True when analysis failed and a location-derived default was used
}

// TaskResult is the older inline-result shape the status endpoint has
// carried instead of music_url: a URL, or the audio bytes themselves.
// Clients must accept both shapes.
type TaskResult struct {
	AudioURL  string `json:"audio_url,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
}

// TaskStatusResponse is the wire shape returned by the task-status endpoint
type TaskStatusResponse struct {
	TaskID           string          `json:"task_id"`
	Status           TaskStatus      `json:"status"`
	Progress         string          `json:"progress,omitempty"`
	MusicURL         string          `json:"music_url,omitempty"`
	MusicURLs        []string        `json:"music_urls,omitempty"`
	Result           *TaskResult     `json:"result,omitempty"`
	MusicTitle       string          `json:"music_title,omitempty"`
	MusicDescription string          `json:"music_description,omitempty"`
	Analysis         *ImageAnalysis  `json:"analysis,omitempty"`
	SonoResponse     json.RawMessage `json:"sono_response,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// ToStatusResponse converts the task to its wire representation
func (t *MusicTask) ToStatusResponse() *TaskStatusResponse {
	return &TaskStatusResponse{
		TaskID:           t.ID,
		Status:           t.Status,
		Progress:         t.Progress,
		MusicURL:         t.MusicURL,
		MusicURLs:        t.MusicURLs,
		MusicTitle:       t.MusicTitle,
		MusicDescription: t.MusicDescription,
		Analysis:         t.Analysis,
		SonoResponse:     t.ProviderResponse,
		ErrorMessage:     t.ErrorMessage,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

// CallbackLog records a raw provider callback payload for a task
type CallbackLog struct {
	ID         uint64          `badgerhold:"key"`
	TaskID     string          `json:"task_id" badgerholdIndex:"TaskID"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
