package session

import (
	"context"
	"fmt"

	"github.com/ternarybob/placetunes/internal/models"
)

// Mode selects which dispatcher handles map input
type Mode string

const (
	ModeSelect   Mode = "select"   // Click identifies the place at a point
	ModeFilter   Mode = "filter"   // Marker click shows place info
	ModePlayback Mode = "playback" // Input ignored except stop
)

// Dispatcher routes map input for one mode. Teardown runs exactly once
// when the session leaves the mode.
type Dispatcher interface {
	HandleMapClick(ctx context.Context, point models.LatLng) error
	HandleMarkerClick(ctx context.Context, markerID string) error
	Teardown()
}

// SetMode swaps the active dispatcher. The previous mode's Teardown is
// invoked exactly once before the new dispatcher takes over. Every
// transition drops the current selection; entering playback additionally
// tears down the filter overlay so the two never own markers at once.
func (s *MapSession) SetMode(mode Mode) error {
	s.mu.Lock()
	if mode == s.mode {
		s.mu.Unlock()
		return nil
	}

	var next Dispatcher
	switch mode {
	case ModeSelect:
		next = &selectDispatcher{session: s}
	case ModeFilter:
		next = &filterDispatcher{session: s}
	case ModePlayback:
		next = &playbackDispatcher{session: s}
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown mode: %s", mode)
	}

	prev := s.dispatcher
	prevMode := s.mode
	s.dispatcher = next
	s.mode = mode
	s.clearSelectionLocked()
	if mode == ModePlayback {
		s.clearFiltersLocked()
	}
	s.mu.Unlock()

	if prev != nil {
		prev.Teardown()
	}

	s.logger.Info().Str("from", string(prevMode)).Str("to", string(mode)).Msg("Map mode changed")
	return nil
}

// Mode returns the active input mode
func (s *MapSession) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// HandleMapClick routes a map click through the active dispatcher
func (s *MapSession) HandleMapClick(ctx context.Context, point models.LatLng) error {
	s.mu.Lock()
	d := s.dispatcher
	s.mu.Unlock()
	return d.HandleMapClick(ctx, point)
}

// HandleMarkerClick routes a marker click through the active dispatcher
func (s *MapSession) HandleMarkerClick(ctx context.Context, markerID string) error {
	s.mu.Lock()
	d := s.dispatcher
	s.mu.Unlock()
	return d.HandleMarkerClick(ctx, markerID)
}

// selectDispatcher: a click identifies the place at that point
type selectDispatcher struct {
	session *MapSession
}

func (d *selectDispatcher) HandleMapClick(ctx context.Context, point models.LatLng) error {
	_, err := d.session.Select(ctx, point)
	return err
}

func (d *selectDispatcher) HandleMarkerClick(ctx context.Context, markerID string) error {
	marker, ok := d.session.findMarker(markerID)
	if !ok {
		return fmt.Errorf("marker %s not found", markerID)
	}
	_, err := d.session.Select(ctx, marker.Place.Location)
	return err
}

func (d *selectDispatcher) Teardown() {
	// Abandon any in-flight identification
	d.session.mu.Lock()
	d.session.clearSelectionLocked()
	d.session.mu.Unlock()
}

// filterDispatcher: marker clicks select the marker's place directly,
// map clicks are ignored
type filterDispatcher struct {
	session *MapSession
}

func (d *filterDispatcher) HandleMapClick(ctx context.Context, point models.LatLng) error {
	return nil
}

func (d *filterDispatcher) HandleMarkerClick(ctx context.Context, markerID string) error {
	marker, ok := d.session.findMarker(markerID)
	if !ok {
		return fmt.Errorf("marker %s not found", markerID)
	}

	place := marker.Place
	selection := &PlaceSelection{
		Point:       place.Location,
		Place:       &place,
		DisplayName: place.Name,
		PhotoURL:    place.PhotoURL,
	}

	d.session.mu.Lock()
	d.session.selectionGen++
	d.session.selection = selection
	d.session.mu.Unlock()
	return nil
}

func (d *filterDispatcher) Teardown() {
	// Leaving filter mode tears down the category overlay entirely
	d.session.mu.Lock()
	d.session.clearFiltersLocked()
	d.session.mu.Unlock()
}

// playbackDispatcher: all interaction is suppressed while playback runs
type playbackDispatcher struct {
	session *MapSession
}

func (d *playbackDispatcher) HandleMapClick(ctx context.Context, point models.LatLng) error {
	return nil
}

func (d *playbackDispatcher) HandleMarkerClick(ctx context.Context, markerID string) error {
	return nil
}

func (d *playbackDispatcher) Teardown() {}
