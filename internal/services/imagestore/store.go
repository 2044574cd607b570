// -----------------------------------------------------------------------
// Image Collection - ordered image set queued for a generation run
// -----------------------------------------------------------------------

package imagestore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/models"
)

// Store holds the images collected for the next music generation run.
// Images keep insertion order; all operations are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	logger  arbor.ILogger
	images  []*models.CollectedImage
	byID    map[string]*models.CollectedImage
	maxSize int64
	allowed map[string]struct{}
}

// NewStore creates an image collection constrained by config
func NewStore(config *common.ImagesConfig, logger arbor.ILogger) *Store {
	allowed := make(map[string]struct{}, len(config.AllowedExtensions))
	for _, ext := range config.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &Store{
		logger:  logger,
		byID:    make(map[string]*models.CollectedImage),
		maxSize: config.MaxBytes,
		allowed: allowed,
	}
}

// Validate checks a single image against the allow-list and size cap
// without adding it.
func (s *Store) Validate(img *models.CollectedImage) error {
	ext := img.Extension()
	if _, ok := s.allowed[ext]; !ok {
		return &models.ValidationError{Message: fmt.Sprintf("file type %q is not allowed: %s", ext, img.Filename)}
	}
	if s.maxSize > 0 && img.Size > s.maxSize {
		return &models.ValidationError{Message: fmt.Sprintf("file %s exceeds the %d byte limit", img.Filename, s.maxSize)}
	}
	return nil
}

// Add validates and appends one image to the collection
func (s *Store) Add(img *models.CollectedImage) error {
	return s.AddBatch([]*models.CollectedImage{img})
}

// AddBatch appends images atomically: the first invalid image fails the
// whole batch and the collection is left unchanged.
func (s *Store) AddBatch(imgs []*models.CollectedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range imgs {
		if err := s.Validate(img); err != nil {
			s.logger.Warn().Str("filename", img.Filename).Err(err).Msg("Rejected image batch")
			return err
		}
	}

	for _, img := range imgs {
		if img.ID == "" {
			img.ID = common.NewImageID()
		}
		s.images = append(s.images, img)
		s.byID[img.ID] = img
	}

	s.logger.Info().Int("added", len(imgs)).Int("total", len(s.images)).Msg("Images added to collection")
	return nil
}

// Remove releases the image's preview resource and drops it from the
// collection. The release function runs exactly once; removing an unknown
// ID is an error and releases nothing.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("image %s not in collection", id)
	}

	s.release(img)
	delete(s.byID, id)
	for i, candidate := range s.images {
		if candidate.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			break
		}
	}

	s.logger.Debug().Str("image_id", id).Int("remaining", len(s.images)).Msg("Image removed from collection")
	return nil
}

// Clear releases every preview and empties the collection
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range s.images {
		s.release(img)
	}
	s.images = nil
	s.byID = make(map[string]*models.CollectedImage)
}

// List returns the images in insertion order
func (s *Store) List() []*models.CollectedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.CollectedImage, len(s.images))
	copy(out, s.images)
	return out
}

// Len returns the number of collected images
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// LocationsSummary deduplicates image locations within the coordinate
// tolerance, keeping first-seen order and counting the images attached to
// each, and joins the named locations into the composite string submitted
// with a generation request.
func (s *Store) LocationsSummary() *models.LocationsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &models.LocationsSummary{}
	for _, img := range s.images {
		if !img.HasLocation() {
			continue
		}

		seen := false
		for i := range summary.Locations {
			if summary.Locations[i].Point.NearlyEqual(img.Location.Point) {
				summary.Locations[i].Count++
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		summary.Locations = append(summary.Locations, models.LocationEntry{ImageLocation: *img.Location, Count: 1})
	}

	names := make([]string, 0, len(summary.Locations))
	for _, loc := range summary.Locations {
		name := loc.Name
		if name == "" {
			name = fmt.Sprintf("%.4f,%.4f", loc.Point.Lat, loc.Point.Lng)
		}
		names = append(names, name)
	}
	summary.Composite = strings.Join(names, ", ")

	return summary
}

// release invokes the preview release hook once, then disarms it
func (s *Store) release(img *models.CollectedImage) {
	if img.Release != nil {
		img.Release()
		img.Release = nil
	}
	img.PreviewURL = ""
}
