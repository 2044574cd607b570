package interfaces

import (
	"context"

	"github.com/ternarybob/placetunes/internal/models"
)

// AnalysisService describes uploaded place images and derives the music
// style prompt for generation. Analysis failure is recoverable: callers
// receive a location-derived fallback with Fallback set.
type AnalysisService interface {
	AnalyzeImages(ctx context.Context, imagePaths []string, location string) (*models.ImageAnalysis, error)
}
