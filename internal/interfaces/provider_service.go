package interfaces

import (
	"context"
	"encoding/json"
)

// GenerationResult is the terminal outcome of a provider generation run
type GenerationResult struct {
	AudioURL    string          `json:"audio_url"`
	AudioURLs   []string        `json:"audio_urls,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"` // Last raw provider payload
}

// MusicProvider submits generation requests to the external music API and
// polls until the provider reports a terminal state.
type MusicProvider interface {
	// Submit starts a generation and returns the provider's generation ID
	Submit(ctx context.Context, prompt, title string) (string, error)

	// Await polls the provider until the generation completes or fails.
	// Provider-side terminal failures return an error carrying the
	// provider's message.
	Await(ctx context.Context, generationID string) (*GenerationResult, error)
}
