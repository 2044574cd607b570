// -----------------------------------------------------------------------
// Task Client - upload, submit and poll a music generation task
// -----------------------------------------------------------------------

package taskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/httpclient"
	"github.com/ternarybob/placetunes/internal/models"
)

// State is the client-side orchestration state
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Result is the final outcome of a completed generation run
type Result struct {
	TaskID      string
	AudioURL    string
	AudioURLs   []string
	Title       string
	Description string
}

// StatusFunc observes state transitions and, while polling, the server's
// task status on every poll
type StatusFunc func(state State, taskStatus models.TaskStatus, progress string)

// Client orchestrates a music generation run against the HTTP API:
// upload images, submit the generation request, poll the task to a
// terminal state. One run at a time; Cancel aborts the active run.
type Client struct {
	mu      sync.Mutex
	logger  arbor.ILogger
	baseURL string
	http    *http.Client

	pollInterval time.Duration
	maxAttempts  int

	state    State
	cancel   context.CancelFunc
	onStatus StatusFunc
}

// NewClient creates an idle task client for the given API base URL
func NewClient(baseURL string, config *common.TasksConfig, logger arbor.ILogger) *Client {
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 100
	}

	return &Client{
		logger:       logger,
		baseURL:      baseURL,
		http:         httpclient.NewDefaultHTTPClient(60 * time.Second),
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		state:        StateIdle,
	}
}

// OnStatus registers the transition observer
func (c *Client) OnStatus(fn StatusFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// State returns the current orchestration state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel aborts the active run. The poll loop observes the cancellation
// promptly and the client returns to idle.
func (c *Client) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.logger.Info().Msg("Generation run cancelled")
	}
}

// Generate runs the full pipeline. At least one image must carry a
// location or the run fails upfront with a ValidationError.
func (c *Client) Generate(ctx context.Context, images []*models.CollectedImage, location, userID string) (*Result, error) {
	hasLocation := false
	for _, img := range images {
		if img.HasLocation() {
			hasLocation = true
			break
		}
	}
	if !hasLocation {
		return nil, &models.ValidationError{Message: "at least one image with a location is required"}
	}

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateCompleted && c.state != StateFailed {
		c.mu.Unlock()
		return nil, fmt.Errorf("a generation run is already in progress")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	result, err := c.run(runCtx, images, location, userID)
	if err != nil {
		if runCtx.Err() != nil {
			c.setState(StateIdle, "", "")
			return nil, runCtx.Err()
		}
		c.setState(StateFailed, "", err.Error())
		return nil, err
	}

	c.setState(StateCompleted, models.TaskStatusCompleted, "")
	return result, nil
}

func (c *Client) run(ctx context.Context, images []*models.CollectedImage, location, userID string) (*Result, error) {
	c.setState(StateUploading, "", "")
	imagePaths, err := c.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	c.setState(StateSubmitting, "", "")
	taskID, err := c.submit(ctx, imagePaths, location, userID)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("task_id", taskID).Msg("Generation task submitted")

	c.setState(StatePolling, models.TaskStatusPending, "")
	return c.poll(ctx, taskID)
}

// uploadImages POSTs the collected images as one multipart request
func (c *Client) uploadImages(ctx context.Context, images []*models.CollectedImage) ([]string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, img := range images {
		part, err := writer.CreateFormFile("images", img.Filename)
		if err != nil {
			return nil, &models.UploadError{Message: "failed to build upload request", Cause: err}
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, &models.UploadError{Message: "failed to build upload request", Cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &models.UploadError{Message: "failed to build upload request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-images", &body)
	if err != nil {
		return nil, &models.UploadError{Message: "failed to build upload request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &models.UploadError{Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return nil, &models.UploadError{Message: fmt.Sprintf("server returned %d: %s", resp.StatusCode, msg)}
	}

	var uploadResp struct {
		ImagePaths []string `json:"image_paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, &models.UploadError{Message: "invalid upload response", Cause: err}
	}
	if len(uploadResp.ImagePaths) == 0 {
		return nil, &models.UploadError{Message: "server accepted no images"}
	}

	c.logger.Info().Int("count", len(uploadResp.ImagePaths)).Msg("Images uploaded")
	return uploadResp.ImagePaths, nil
}

// submit POSTs the generation request and returns the new task ID
func (c *Client) submit(ctx context.Context, imagePaths []string, location, userID string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"image_paths": imagePaths,
		"location":    location,
		"user_id":     userID,
	})
	if err != nil {
		return "", &models.SubmissionError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate-music", bytes.NewReader(payload))
	if err != nil {
		return "", &models.SubmissionError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &models.SubmissionError{Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg := readErrorMessage(resp.Body)
		return "", &models.SubmissionError{Message: fmt.Sprintf("server returned %d: %s", resp.StatusCode, msg)}
	}

	var submitResp struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", &models.SubmissionError{Message: "invalid submission response", Cause: err}
	}
	if submitResp.TaskID == "" {
		return "", &models.SubmissionError{Message: "server returned no task ID"}
	}

	return submitResp.TaskID, nil
}

// poll queries the task status until a terminal state, cancellation, or
// the attempt budget runs out. Transient poll errors consume an attempt
// and the loop continues.
func (c *Client) poll(ctx context.Context, taskID string) (*Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.fetchStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Str("task_id", taskID).Int("attempt", attempt).Err(err).Msg("Status poll failed, will retry")
			continue
		}

		c.setState(StatePolling, status.Status, status.Progress)

		switch status.Status {
		case models.TaskStatusCompleted:
			return resultFromStatus(taskID, status)
		case models.TaskStatusFailed:
			return nil, &models.TaskFailedError{TaskID: taskID, Message: status.ErrorMessage}
		}
	}

	return nil, &models.PollTimeoutError{TaskID: taskID, Attempts: c.maxAttempts}
}

func (c *Client) fetchStatus(ctx context.Context, taskID string) (*models.TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/task-status/"+taskID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status models.TaskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return &status, nil
}

// resultFromStatus extracts the audio reference from the completed
// response. Preference order: music_url, the first of music_urls, the
// inline result shape (audio_url or audio_data), then the raw provider
// payload.
func resultFromStatus(taskID string, status *models.TaskStatusResponse) (*Result, error) {
	audioURL := status.MusicURL
	if audioURL == "" && len(status.MusicURLs) > 0 {
		audioURL = status.MusicURLs[0]
	}
	if audioURL == "" && status.Result != nil {
		audioURL = status.Result.AudioURL
		if audioURL == "" {
			audioURL = status.Result.AudioData
		}
	}
	if audioURL == "" && len(status.SonoResponse) > 0 {
		audioURL = audioURLFromRaw(status.SonoResponse)
	}
	if audioURL == "" {
		return nil, &models.TaskFailedError{TaskID: taskID, Message: "task completed without an audio URL"}
	}

	return &Result{
		TaskID:      taskID,
		AudioURL:    audioURL,
		AudioURLs:   status.MusicURLs,
		Title:       status.MusicTitle,
		Description: status.MusicDescription,
	}, nil
}

// audioURLFromRaw digs audio fields out of the raw provider payload.
// Handles the result.audio_url and result.audio_data shapes.
func audioURLFromRaw(raw json.RawMessage) string {
	var payload struct {
		Result struct {
			AudioURL  string `json:"audio_url"`
			AudioData string `json:"audio_data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Result.AudioURL != "" {
		return payload.Result.AudioURL
	}
	return payload.Result.AudioData
}

func (c *Client) setState(state State, taskStatus models.TaskStatus, progress string) {
	c.mu.Lock()
	c.state = state
	onStatus := c.onStatus
	c.mu.Unlock()

	c.logger.Debug().Str("state", string(state)).Str("task_status", string(taskStatus)).Msg("Task client state changed")

	if onStatus != nil {
		onStatus(state, taskStatus, progress)
	}
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(body)
}
