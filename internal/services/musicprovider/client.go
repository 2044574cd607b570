// -----------------------------------------------------------------------
// Music Provider - Suno-style generation API client with result polling
// -----------------------------------------------------------------------

package musicprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/httpclient"
	"github.com/ternarybob/placetunes/internal/interfaces"
)

// Client implements the MusicProvider interface against a Suno-style
// generation API: submit, then poll record-info until a terminal status.
type Client struct {
	config     *common.ProviderConfig
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewClient creates a new provider client
func NewClient(config *common.ProviderConfig, logger arbor.ILogger) interfaces.MusicProvider {
	return &Client{
		config:     config,
		logger:     logger,
		httpClient: httpclient.NewDefaultHTTPClient(config.RequestTimeout),
	}
}

// Submit starts a generation and returns the provider's generation ID
func (c *Client) Submit(ctx context.Context, prompt, title string) (string, error) {
	payload := generateRequest{
		Prompt:       prompt,
		CustomMode:   true,
		Instrumental: true,
		Model:        c.config.Model,
		Style:        prompt,
		Title:        title,
		CallBackURL:  c.config.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(raw))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if genResp.Code != 200 {
		return "", fmt.Errorf("provider rejected generation: %s", genResp.Msg)
	}
	if genResp.Data.TaskID == "" {
		return "", fmt.Errorf("provider returned no generation ID")
	}

	c.logger.Info().
		Str("generation_id", genResp.Data.TaskID).
		Str("title", title).
		Msg("Generation submitted to provider")

	return genResp.Data.TaskID, nil
}

// Await polls record-info until the generation succeeds, fails, or the
// attempt budget runs out. Auth errors (401/403) end the wait immediately.
func (c *Client) Await(ctx context.Context, generationID string) (*interfaces.GenerationResult, error) {
	interval := c.config.PollInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	attempts := c.config.PollAttempts
	if attempts <= 0 {
		attempts = 30
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		data, raw, err := c.recordInfo(ctx, generationID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isAuthError(err) {
				return nil, err
			}
			c.logger.Warn().
				Str("generation_id", generationID).
				Int("attempt", attempt).
				Err(err).
				Msg("Provider poll failed, will retry")
			continue
		}

		c.logger.Debug().
			Str("generation_id", generationID).
			Str("status", data.Status).
			Int("attempt", attempt).
			Msg("Provider poll")

		if _, failed := terminalFailureStatuses[data.Status]; failed {
			msg := data.ErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("generation failed with status %s", data.Status)
			}
			return nil, fmt.Errorf("%s", msg)
		}

		if data.Status == statusSuccess {
			return resultFromClips(generationID, data, raw)
		}
		// PENDING, TEXT_SUCCESS, FIRST_SUCCESS: keep polling
	}

	return nil, fmt.Errorf("generation %s did not finish within %d polls", generationID, attempts)
}

// recordInfo fetches the current generation record
func (c *Client) recordInfo(ctx context.Context, generationID string) (*recordInfoData, json.RawMessage, error) {
	params := url.Values{}
	params.Set("taskId", generationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/generate/record-info?%s", c.config.BaseURL, params.Encode()), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil, &authError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("record-info returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	var infoResp recordInfoResponse
	if err := json.Unmarshal(raw, &infoResp); err != nil {
		return nil, nil, fmt.Errorf("invalid record-info response: %w", err)
	}
	if infoResp.Code != 200 {
		return nil, nil, fmt.Errorf("record-info error: %s", infoResp.Msg)
	}

	return &infoResp.Data, raw, nil
}

// resultFromClips extracts the audio URLs from a successful record.
// Success with no usable clips is a failure: the generation produced
// nothing playable.
func resultFromClips(generationID string, data *recordInfoData, raw json.RawMessage) (*interfaces.GenerationResult, error) {
	clips := data.Response.SunoData
	if len(clips) == 0 {
		return nil, fmt.Errorf("no audio clips received")
	}

	var urls []string
	for _, clip := range clips {
		if clip.SourceAudioURL != "" {
			urls = append(urls, clip.SourceAudioURL)
		} else if clip.AudioURL != "" {
			urls = append(urls, clip.AudioURL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no valid audio URLs received")
	}

	result := &interfaces.GenerationResult{
		AudioURL:  urls[0],
		AudioURLs: urls,
		Title:     clips[0].Title,
		Raw:       raw,
	}
	if clips[0].Tags != "" {
		result.Description = clips[0].Tags
	}
	return result, nil
}

// authError signals an unrecoverable credential problem
type authError struct {
	status int
}

func (e *authError) Error() string {
	return fmt.Sprintf("provider authentication error: %d", e.status)
}

func isAuthError(err error) bool {
	_, ok := err.(*authError)
	return ok
}
