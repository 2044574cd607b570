package playback

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/models"
)

// Slideshow cycles the collected images at a fixed interval while music
// plays, independent of the marker route. Wraps around at the end.
type Slideshow struct {
	mu       sync.Mutex
	logger   arbor.ILogger
	interval time.Duration

	images []*models.CollectedImage
	index  int

	cancel context.CancelFunc
	done   chan struct{}

	onSlide func(index int, image *models.CollectedImage)
}

// NewSlideshow creates an idle slideshow with the configured interval
func NewSlideshow(interval time.Duration, logger arbor.ILogger) *Slideshow {
	return &Slideshow{
		logger:   logger,
		interval: interval,
	}
}

// OnSlide registers the slide-advance callback
func (s *Slideshow) OnSlide(fn func(index int, image *models.CollectedImage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSlide = fn
}

// Start begins cycling images from the first slide. Restarting replaces
// the image set.
func (s *Slideshow) Start(images []*models.CollectedImage) {
	s.Stop()

	s.mu.Lock()
	s.images = make([]*models.CollectedImage, len(images))
	copy(s.images, images)
	s.index = 0

	if len(s.images) == 0 {
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// Stop cancels the slide timer. Idempotent.
func (s *Slideshow) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Index returns the current slide index
func (s *Slideshow) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Slideshow) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if len(s.images) == 0 {
				s.mu.Unlock()
				return
			}
			s.index = (s.index + 1) % len(s.images)
			idx := s.index
			img := s.images[idx]
			onSlide := s.onSlide
			s.mu.Unlock()

			if onSlide != nil {
				onSlide(idx, img)
			}
		}
	}
}
