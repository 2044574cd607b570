package taskclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/models"
)

// fakeAPI scripts the three endpoints the client talks to
type fakeAPI struct {
	mu         sync.Mutex
	uploads    int
	submits    int
	polls      int
	uploadCode int
	statuses   []models.TaskStatusResponse
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload-images", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploads++
		code := f.uploadCode
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"error": "upload rejected"})
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		paths := make([]string, 0)
		for _, fh := range r.MultipartForm.File["images"] {
			paths = append(paths, "./data/uploads/"+fh.Filename)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"image_paths": paths})
	})
	mux.HandleFunc("/api/generate-music", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.submits++
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"task_id": "task-1", "status": "pending"})
	})
	mux.HandleFunc("/api/task-status/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		idx := f.polls
		f.polls++
		var status *models.TaskStatusResponse
		if idx < len(f.statuses) {
			status = &f.statuses[idx]
		} else if len(f.statuses) > 0 {
			status = &f.statuses[len(f.statuses)-1]
		}
		f.mu.Unlock()
		if status == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(status)
	})
	return mux
}

func newTestClient(baseURL string, maxAttempts int) *Client {
	return NewClient(baseURL, &common.TasksConfig{
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  maxAttempts,
	}, arbor.NewLogger())
}

func locatedImages() []*models.CollectedImage {
	return []*models.CollectedImage{
		{
			Filename: "beach.jpg",
			Data:     []byte("jpegdata"),
			Size:     8,
			Location: &models.ImageLocation{Point: models.LatLng{Lat: -33.8568, Lng: 151.2153}},
		},
	}
}

func TestGenerateHappyPath(t *testing.T) {
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{
			{TaskID: "task-1", Status: models.TaskStatusAnalyzing, Progress: "Analyzing images"},
			{TaskID: "task-1", Status: models.TaskStatusGenerating, Progress: "Generating music"},
			{
				TaskID:     "task-1",
				Status:     models.TaskStatusCompleted,
				MusicURL:   "https://cdn.example.com/track.mp3",
				MusicURLs:  []string{"https://cdn.example.com/track.mp3", "https://cdn.example.com/alt.mp3"},
				MusicTitle: "Journey Through Sydney",
			},
		},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 20)

	var mu sync.Mutex
	var seen []State
	client.OnStatus(func(state State, taskStatus models.TaskStatus, progress string) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})

	result, err := client.Generate(context.Background(), locatedImages(), "Sydney, Australia", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", result.TaskID)
	assert.Equal(t, "https://cdn.example.com/track.mp3", result.AudioURL)
	assert.Len(t, result.AudioURLs, 2)
	assert.Equal(t, "Journey Through Sydney", result.Title)
	assert.Equal(t, StateCompleted, client.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StateUploading, seen[0])
	assert.Contains(t, seen, StateSubmitting)
	assert.Contains(t, seen, StatePolling)
	assert.Equal(t, StateCompleted, seen[len(seen)-1])
}

func TestGenerateRequiresLocatedImage(t *testing.T) {
	client := newTestClient("http://unused", 5)

	images := []*models.CollectedImage{{Filename: "a.jpg", Data: []byte("x"), Size: 1}}
	_, err := client.Generate(context.Background(), images, "", "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StateIdle, client.State())
}

func TestGenerateUploadFailureSurfacesServerMessage(t *testing.T) {
	api := &fakeAPI{uploadCode: http.StatusBadRequest}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 5)
	_, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")

	var uerr *models.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "upload rejected")
	assert.Equal(t, StateFailed, client.State())
	api.mu.Lock()
	assert.Equal(t, 0, api.submits)
	api.mu.Unlock()
}

func TestPollRetriesTransientErrors(t *testing.T) {
	// First two polls hit an empty status script and return 500; the
	// loop retries until the completed status lands.
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	go func() {
		time.Sleep(40 * time.Millisecond)
		api.mu.Lock()
		api.statuses = []models.TaskStatusResponse{{
			TaskID:   "task-1",
			Status:   models.TaskStatusCompleted,
			MusicURL: "https://cdn.example.com/track.mp3",
		}}
		// Serve the terminal status on the next poll regardless of
		// how many attempts already failed.
		api.polls = 0
		api.mu.Unlock()
	}()

	client := newTestClient(srv.URL, 50)
	result, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/track.mp3", result.AudioURL)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Greater(t, api.polls, 0)
}

func TestPollFailedTaskReturnsServerMessage(t *testing.T) {
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{{
			TaskID:       "task-1",
			Status:       models.TaskStatusFailed,
			ErrorMessage: "No valid image files found",
		}},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 5)
	_, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")

	var ferr *models.TaskFailedError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "task-1", ferr.TaskID)
	assert.Equal(t, "No valid image files found", ferr.Message)
	assert.Equal(t, StateFailed, client.State())
}

func TestPollBudgetExhaustion(t *testing.T) {
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{{TaskID: "task-1", Status: models.TaskStatusPending}},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	_, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")

	var terr *models.PollTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Attempts)
	assert.Equal(t, StateFailed, client.State())
}

func TestCancelReturnsClientToIdle(t *testing.T) {
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{{TaskID: "task-1", Status: models.TaskStatusGenerating}},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 1000)

	polling := make(chan struct{}, 1)
	client.OnStatus(func(state State, taskStatus models.TaskStatus, progress string) {
		if state == StatePolling && taskStatus == models.TaskStatusGenerating {
			select {
			case polling <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")
		done <- err
	}()

	<-polling
	client.Cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, client.State())
}

func TestCompletedWithoutAudioURLFails(t *testing.T) {
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{{TaskID: "task-1", Status: models.TaskStatusCompleted}},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 5)
	_, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")

	var ferr *models.TaskFailedError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Message, "without an audio URL")
}

func TestCompletedWithInlineResultShape(t *testing.T) {
	// The status endpoint has historically carried the audio reference in
	// a top-level result object instead of music_url; both shapes resolve.
	tests := []struct {
		name     string
		result   *models.TaskResult
		expected string
	}{
		{
			name:     "result audio_url",
			result:   &models.TaskResult{AudioURL: "https://cdn.example.com/inline.mp3"},
			expected: "https://cdn.example.com/inline.mp3",
		},
		{
			name:     "result audio_data",
			result:   &models.TaskResult{AudioData: "data:audio/mpeg;base64,SUQz"},
			expected: "data:audio/mpeg;base64,SUQz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				statuses: []models.TaskStatusResponse{
					{TaskID: "task-1", Status: models.TaskStatusPending},
					{TaskID: "task-1", Status: models.TaskStatusPending},
					{TaskID: "task-1", Status: models.TaskStatusCompleted, Result: tt.result},
				},
			}
			srv := httptest.NewServer(api.handler())
			defer srv.Close()

			client := newTestClient(srv.URL, 20)
			result, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.AudioURL)
			assert.Equal(t, StateCompleted, client.State())
		})
	}
}

func TestResultFallsBackToRawProviderPayload(t *testing.T) {
	raw := json.RawMessage(`{"result":{"audio_url":"https://provider.example.com/raw.mp3"}}`)
	api := &fakeAPI{
		statuses: []models.TaskStatusResponse{{
			TaskID:       "task-1",
			Status:       models.TaskStatusCompleted,
			SonoResponse: raw,
		}},
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	client := newTestClient(srv.URL, 5)
	result, err := client.Generate(context.Background(), locatedImages(), "Sydney", "")
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example.com/raw.mp3", result.AudioURL)
}
