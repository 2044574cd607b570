package analysis

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

// FallbackService is used when no Gemini API key is configured. Every
// request gets the location-derived default analysis.
type FallbackService struct {
	logger arbor.ILogger
}

func NewFallbackService(logger arbor.ILogger) *FallbackService {
	return &FallbackService{logger: logger}
}

func (s *FallbackService) AnalyzeImages(ctx context.Context, imagePaths []string, location string) (*models.ImageAnalysis, error) {
	s.logger.Debug().Str("location", location).Msg("Image analysis unavailable, using fallback")
	return FallbackAnalysis(location), nil
}

var _ interfaces.AnalysisService = (*FallbackService)(nil)
