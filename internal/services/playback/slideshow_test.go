package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/models"
)

func slideImages(n int) []*models.CollectedImage {
	images := make([]*models.CollectedImage, n)
	for i := range images {
		images[i] = &models.CollectedImage{
			ID:       "img_" + string(rune('a'+i)),
			Filename: "photo.jpg",
		}
	}
	return images
}

func TestSlideshowWrapsAround(t *testing.T) {
	s := NewSlideshow(20*time.Millisecond, arbor.NewLogger())
	defer s.Stop()

	var mu sync.Mutex
	var order []int
	s.OnSlide(func(index int, image *models.CollectedImage) {
		mu.Lock()
		order = append(order, index)
		mu.Unlock()
	})

	s.Start(slideImages(3))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) >= 4
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	// Starts at slide 0, so the first advance lands on 1, then wraps
	assert.Equal(t, []int{1, 2, 0, 1}, order[:4])
}

func TestSlideshowStopIsIdempotent(t *testing.T) {
	s := NewSlideshow(20*time.Millisecond, arbor.NewLogger())
	s.Start(slideImages(2))
	s.Stop()
	s.Stop()
	assert.GreaterOrEqual(t, s.Index(), 0)
}

func TestSlideshowWithNoImagesDoesNothing(t *testing.T) {
	s := NewSlideshow(20*time.Millisecond, arbor.NewLogger())

	called := false
	s.OnSlide(func(index int, image *models.CollectedImage) { called = true })

	s.Start(nil)
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	assert.False(t, called)
	assert.Equal(t, 0, s.Index())
}
