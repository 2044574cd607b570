// -----------------------------------------------------------------------
// Playback Synchronizer - advances numbered markers in time with a track
// -----------------------------------------------------------------------

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/models"
)

// Track is an audio result being played back. Release frees the track's
// object-URL analogue; the synchronizer guarantees it runs exactly once.
type Track struct {
	URL      string
	Title    string
	Duration time.Duration

	Release func()
}

// AdvanceFunc is invoked on the synchronizer goroutine each time the
// highlighted marker changes. index is the zero-based marker position.
type AdvanceFunc func(index int, marker models.Marker)

// Synchronizer drives a marker slideshow in time with an audio track.
// The track duration is sliced evenly across the markers; the highlighted
// index advances monotonically and clamps at the last marker. Pausing
// freezes the slide clock, so a resumed slideshow picks up exactly where
// the listener left it rather than where wall time would place it.
type Synchronizer struct {
	mu     sync.Mutex
	logger arbor.ILogger

	slideInterval time.Duration

	track   *Track
	markers []models.Marker
	slice   time.Duration
	index   int

	elapsed   time.Duration // Accumulated play time before the current run
	runStart  time.Time     // Wall time the current run started
	running   bool
	cancelRun context.CancelFunc
	done      chan struct{}

	onAdvance AdvanceFunc
}

// NewSynchronizer creates an idle synchronizer
func NewSynchronizer(config *common.PlaybackConfig, logger arbor.ILogger) *Synchronizer {
	interval := config.SlideInterval
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	return &Synchronizer{
		logger:        logger,
		slideInterval: interval,
		index:         -1,
	}
}

// OnAdvance registers the marker-advance callback
func (s *Synchronizer) OnAdvance(fn AdvanceFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdvance = fn
}

// Start begins playback of a track over a marker route. A previous track's
// Release hook runs before the new track is installed. Markers receive
// numbered labels in route order.
func (s *Synchronizer) Start(track *Track, markers []models.Marker) error {
	if track == nil || track.Duration <= 0 {
		return fmt.Errorf("track with a positive duration is required")
	}
	if len(markers) == 0 {
		return fmt.Errorf("at least one marker is required")
	}

	s.stop()

	s.mu.Lock()
	if s.track != nil {
		s.releaseTrack(s.track)
	}

	routed := make([]models.Marker, len(markers))
	copy(routed, markers)
	for i := range routed {
		routed[i].Label = fmt.Sprintf("%d", i+1)
	}

	s.track = track
	s.markers = routed
	s.slice = track.Duration / time.Duration(len(routed))
	s.index = -1
	s.elapsed = 0
	s.mu.Unlock()

	s.logger.Info().
		Str("title", track.Title).
		Dur("duration", track.Duration).
		Int("markers", len(routed)).
		Dur("slice", s.slice).
		Msg("Playback started")

	s.resumeRun()
	return nil
}

// Pause stops the slide clock, recording elapsed play time
func (s *Synchronizer) Pause() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.elapsed += time.Since(s.runStart)
	s.mu.Unlock()

	s.stop()
	s.logger.Debug().Dur("elapsed", s.elapsed).Msg("Playback paused")
}

// Resume restarts the slide clock from the recorded offset
func (s *Synchronizer) Resume() {
	s.mu.Lock()
	if s.running || s.track == nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.resumeRun()
	s.logger.Debug().Dur("elapsed", s.elapsed).Msg("Playback resumed")
}

// Stop cancels the slideshow timer. Idempotent: stopping an idle
// synchronizer does nothing. The track stays installed so playback can be
// restarted; its Release runs on replacement or Close.
func (s *Synchronizer) Stop() {
	s.stop()

	s.mu.Lock()
	s.elapsed = 0
	s.index = -1
	s.mu.Unlock()
}

// Close stops playback and releases the current track
func (s *Synchronizer) Close() {
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track != nil {
		s.releaseTrack(s.track)
		s.track = nil
	}
	s.markers = nil
	s.index = -1
	s.elapsed = 0
}

// Index returns the currently highlighted marker index, -1 before the
// first advance
func (s *Synchronizer) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Running reports whether the slide clock is live
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Markers returns the numbered route markers
func (s *Synchronizer) Markers() []models.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// resumeRun starts the ticker goroutine for the current track
func (s *Synchronizer) resumeRun() {
	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.done = make(chan struct{})
	s.running = true
	s.runStart = time.Now()
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// run advances the marker index on a short tick until the track ends or
// the run is cancelled
func (s *Synchronizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if finished := s.advance(); finished {
				s.mu.Lock()
				s.running = false
				s.mu.Unlock()
				s.logger.Debug().Msg("Playback finished")
				return
			}
		}
	}
}

// advance recomputes the marker index from accumulated play time.
// Returns true when the track has run its full duration.
func (s *Synchronizer) advance() bool {
	s.mu.Lock()

	played := s.elapsed + time.Since(s.runStart)
	finished := played >= s.track.Duration

	target := int(played / s.slice)
	if target > len(s.markers)-1 {
		target = len(s.markers) - 1
	}

	var fire []struct {
		idx    int
		marker models.Marker
	}
	// Monotonic: never move backwards, surface each step once
	for s.index < target {
		s.index++
		fire = append(fire, struct {
			idx    int
			marker models.Marker
		}{s.index, s.markers[s.index]})
	}
	onAdvance := s.onAdvance
	s.mu.Unlock()

	if onAdvance != nil {
		for _, f := range fire {
			onAdvance(f.idx, f.marker)
		}
	}

	return finished
}

// stop cancels the run goroutine and waits for it to exit
func (s *Synchronizer) stop() {
	s.mu.Lock()
	if !s.running && s.cancelRun == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelRun
	done := s.done
	s.cancelRun = nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// releaseTrack runs the release hook once, then disarms it.
// Callers hold s.mu.
func (s *Synchronizer) releaseTrack(t *Track) {
	if t.Release != nil {
		t.Release()
		t.Release = nil
	}
}
