package musicprovider

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
)

// fakeProvider scripts the generate and record-info endpoints
type fakeProvider struct {
	mu          sync.Mutex
	generateOK  bool
	records     []string
	polls       int
	authHeaders []string
	lastPayload generateRequest
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&f.lastPayload)
		ok := f.generateOK
		f.mu.Unlock()
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 400, "msg": "prompt rejected"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]string{"taskId": "gen-1"},
		})
	})
	mux.HandleFunc("/api/v1/generate/record-info", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		idx := f.polls
		f.polls++
		var record string
		if idx < len(f.records) {
			record = f.records[idx]
		} else if len(f.records) > 0 {
			record = f.records[len(f.records)-1]
		}
		f.mu.Unlock()
		w.Write([]byte(record))
	})
	return mux
}

func record(status, clips string) string {
	return `{"code": 200, "data": {"taskId": "gen-1", "status": "` + status + `", "response": {"sunoData": [` + clips + `]}}}`
}

func newProviderClient(baseURL string, attempts int) *Client {
	config := &common.ProviderConfig{
		BaseURL:      baseURL,
		APIKey:       "provider-key",
		Model:        "V4",
		PollInterval: 10 * time.Millisecond,
		PollAttempts: attempts,
	}
	return NewClient(config, arbor.NewLogger()).(*Client)
}

func TestSubmitSendsAuthorizedInstrumentalRequest(t *testing.T) {
	provider := &fakeProvider{generateOK: true}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 5)
	id, err := client.Submit(context.Background(), "ambient, acoustic, warm", "Journey Through Sydney")
	require.NoError(t, err)
	assert.Equal(t, "gen-1", id)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, "Bearer provider-key", provider.authHeaders[0])
	assert.True(t, provider.lastPayload.Instrumental)
	assert.True(t, provider.lastPayload.CustomMode)
	assert.Equal(t, "V4", provider.lastPayload.Model)
	assert.Equal(t, "Journey Through Sydney", provider.lastPayload.Title)
}

func TestSubmitRejectionSurfacesProviderMessage(t *testing.T) {
	provider := &fakeProvider{generateOK: false}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 5)
	_, err := client.Submit(context.Background(), "prompt", "title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt rejected")
}

func TestAwaitPollsThroughIntermediateStatuses(t *testing.T) {
	provider := &fakeProvider{
		records: []string{
			record("PENDING", ""),
			record("TEXT_SUCCESS", ""),
			record("FIRST_SUCCESS", `{"id": "c1", "title": "Track One", "audioUrl": "https://cdn.example.com/early.mp3"}`),
			record("SUCCESS", `{"id": "c1", "title": "Track One", "sourceAudioUrl": "https://cdn.example.com/track.mp3", "tags": "ambient, acoustic"}, {"id": "c2", "audioUrl": "https://cdn.example.com/alt.mp3"}`),
		},
	}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 50)
	result, err := client.Await(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/track.mp3", result.AudioURL)
	assert.Equal(t, []string{"https://cdn.example.com/track.mp3", "https://cdn.example.com/alt.mp3"}, result.AudioURLs)
	assert.Equal(t, "Track One", result.Title)
	assert.Equal(t, "ambient, acoustic", result.Description)
	assert.NotEmpty(t, result.Raw)
}

func TestAwaitTerminalFailureStopsPolling(t *testing.T) {
	provider := &fakeProvider{
		records: []string{
			`{"code": 200, "data": {"taskId": "gen-1", "status": "SENSITIVE_WORD_ERROR", "errorMessage": "prompt contains blocked words"}}`,
		},
	}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 50)
	_, err := client.Await(context.Background(), "gen-1")
	require.Error(t, err)
	assert.Equal(t, "prompt contains blocked words", err.Error())

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, 1, provider.polls)
}

func TestAwaitSuccessWithoutClipsIsFailure(t *testing.T) {
	provider := &fakeProvider{records: []string{record("SUCCESS", "")}}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 5)
	_, err := client.Await(context.Background(), "gen-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio clips")
}

func TestAwaitAuthErrorStopsImmediately(t *testing.T) {
	var polls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newProviderClient(srv.URL, 50)
	_, err := client.Await(context.Background(), "gen-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, polls)
}

func TestAwaitExhaustsAttemptBudget(t *testing.T) {
	provider := &fakeProvider{records: []string{record("PENDING", "")}}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newProviderClient(srv.URL, 3)
	_, err := client.Await(context.Background(), "gen-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not finish within 3 polls")

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, 3, provider.polls)
}

func TestAwaitHonoursCancellation(t *testing.T) {
	provider := &fakeProvider{records: []string{record("PENDING", "")}}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newProviderClient(srv.URL, 50)
	_, err := client.Await(ctx, "gen-1")
	assert.ErrorIs(t, err, context.Canceled)
}
