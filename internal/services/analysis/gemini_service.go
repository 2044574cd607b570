// -----------------------------------------------------------------------
// Analysis Service - Gemini image understanding for music prompts
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

const analysisPrompt = `You are given photos of places a traveler visited, taken around: %s.
Describe the mood and character of these places and propose a piece of music that captures them.
Respond with JSON only: {"title": "...", "description": "...", "style_prompt": "..."}
where style_prompt is a short comma-separated list of musical styles and moods.`

// Service implements the AnalysisService interface using the Gemini API
type Service struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewService creates a new Gemini analysis service instance
func NewService(config *common.GeminiConfig, logger arbor.ILogger) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via PLACETUNES_GEMINI_API_KEY or gemini.api_key in config)")
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid gemini timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	logger.Info().Str("model", config.Model).Msg("Gemini analysis service initialized")

	return &Service{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// AnalyzeImages describes the uploaded images and derives the music style
// prompt. Analysis failure is recoverable: the returned analysis falls
// back to a location-derived default with Fallback set.
func (s *Service) AnalyzeImages(ctx context.Context, imagePaths []string, location string) (*models.ImageAnalysis, error) {
	analysisCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	analysis, err := s.analyze(analysisCtx, imagePaths, location)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Str("location", location).Msg("Image analysis failed, using location fallback")
		return FallbackAnalysis(location), nil
	}
	return analysis, nil
}

func (s *Service) analyze(ctx context.Context, imagePaths []string, location string) (*models.ImageAnalysis, error) {
	parts := []*genai.Part{genai.NewPartFromText(fmt.Sprintf(analysisPrompt, location))}

	loaded := 0
	for _, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("Skipping unreadable image")
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(data, imageMIMEType(path)))
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no readable images among %d paths", len(imagePaths))
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	var text strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("model returned no text")
	}

	analysis, err := parseAnalysis(text.String())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("images", loaded).
		Str("title", analysis.Title).
		Msg("Image analysis completed")

	return analysis, nil
}

// parseAnalysis extracts the JSON object from the model response, which
// may be wrapped in a markdown code fence
func parseAnalysis(text string) (*models.ImageAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var analysis models.ImageAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	if analysis.StylePrompt == "" {
		return nil, fmt.Errorf("analysis is missing a style prompt")
	}
	return &analysis, nil
}

// FallbackAnalysis builds a location-derived default when image analysis
// is unavailable
func FallbackAnalysis(location string) *models.ImageAnalysis {
	title := "Journey Through " + location
	if location == "" {
		title = "Travel Memories"
	}
	return &models.ImageAnalysis{
		Title:       title,
		Description: fmt.Sprintf("A musical impression of %s", location),
		StylePrompt: "ambient, acoustic, warm, travel, reflective",
		Fallback:    true,
	}
}

// imageMIMEType resolves the MIME type from the file extension
func imageMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "image/jpeg"
}

// Close releases the client reference
func (s *Service) Close() {
	s.client = nil
}

var _ interfaces.AnalysisService = (*Service)(nil)
