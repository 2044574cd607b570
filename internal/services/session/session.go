// -----------------------------------------------------------------------
// Map Session - selection state, filter reconciliation, mode dispatch
// -----------------------------------------------------------------------

package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
	"github.com/ternarybob/placetunes/internal/services/places"
)

// PlaceSelection is the resolved outcome of identifying a clicked point
type PlaceSelection struct {
	Point       models.LatLng   `json:"point"`
	Address     *models.Address `json:"address,omitempty"`
	Place       *models.Place   `json:"place,omitempty"`
	DisplayName string          `json:"display_name"`
	PhotoURL    string          `json:"photo_url,omitempty"`
}

// detailFields are the place-details fields fetched for a selection
var detailFields = []string{"name", "formatted_address", "photos", "place_id", "types", "vicinity"}

// MapSession owns the interactive map state: the current selection, the
// active filter categories with their markers, and the input mode. One
// session per map view; all methods are safe for concurrent use.
type MapSession struct {
	mu     sync.Mutex
	logger arbor.ILogger
	places interfaces.PlacesService
	config *common.PlacesConfig

	// Selection state. selectionGen increments on every Select so a
	// superseded identification can detect it lost the race.
	selection    *PlaceSelection
	selectionGen uint64
	cancelSelect context.CancelFunc

	// Filter state. Markers are owned by the category that produced them.
	activeFilters map[string]struct{}
	markers       map[string][]models.Marker

	// Viewport center used for category searches
	center models.LatLng

	mode       Mode
	dispatcher Dispatcher
}

// NewMapSession creates a session in select mode with no filters
func NewMapSession(places interfaces.PlacesService, config *common.PlacesConfig, logger arbor.ILogger) *MapSession {
	s := &MapSession{
		logger:        logger,
		places:        places,
		config:        config,
		activeFilters: make(map[string]struct{}),
		markers:       make(map[string][]models.Marker),
	}
	s.mode = ModeSelect
	s.dispatcher = &selectDispatcher{session: s}
	return s
}

// SetCenter updates the viewport center used for category searches
func (s *MapSession) SetCenter(point models.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = point
}

// Selection returns the current selection, or nil when nothing is selected
func (s *MapSession) Selection() *PlaceSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// clearSelectionLocked drops the current selection and invalidates any
// in-flight identification. Caller holds s.mu.
func (s *MapSession) clearSelectionLocked() {
	s.selectionGen++
	s.selection = nil
	if s.cancelSelect != nil {
		s.cancelSelect()
		s.cancelSelect = nil
	}
}

// clearFiltersLocked drops every active category and its markers. Caller
// holds s.mu.
func (s *MapSession) clearFiltersLocked() {
	s.activeFilters = make(map[string]struct{})
	s.markers = make(map[string][]models.Marker)
}

// Select identifies the place at a clicked point and makes it the current
// selection. The newest call wins: any in-flight identification for a
// previous selection is cancelled and its result discarded.
func (s *MapSession) Select(ctx context.Context, point models.LatLng) (*PlaceSelection, error) {
	s.mu.Lock()
	if s.cancelSelect != nil {
		s.cancelSelect()
	}
	selectCtx, cancel := context.WithCancel(ctx)
	s.cancelSelect = cancel
	s.selectionGen++
	gen := s.selectionGen
	s.mu.Unlock()

	selection, err := s.identify(selectCtx, point)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.selectionGen {
		// A newer Select replaced this one while it was identifying
		return nil, selectCtx.Err()
	}
	s.selection = selection

	s.logger.Info().
		Float64("lat", point.Lat).
		Float64("lng", point.Lng).
		Str("display_name", selection.DisplayName).
		Msg("Place selected")

	return selection, nil
}

// identify resolves a clicked point to an address and, where possible, a
// concrete place. Geocode and places failures are recoverable: the
// selection degrades to whatever resolved.
func (s *MapSession) identify(ctx context.Context, point models.LatLng) (*PlaceSelection, error) {
	selection := &PlaceSelection{Point: point}

	address, err := s.places.ReverseGeocode(ctx, point.Lat, point.Lng)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("Reverse geocode failed, continuing with coordinates only")
	} else {
		selection.Address = address
	}

	nearby, err := s.places.NearbySearch(ctx, point.Lat, point.Lng, s.config.IdentifyRadius)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("Nearby search failed, falling back to geocoded address")
	}

	if len(nearby) > 0 {
		best := nearby[0]
		if details, err := s.places.PlaceDetails(ctx, best.PlaceID, detailFields); err == nil {
			selection.Place = details
		} else {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Str("place_id", best.PlaceID).Err(err).Msg("Place details failed, using search result")
			selection.Place = &best
		}
	}

	selection.DisplayName = places.DisplayName(selection.Place, selection.Address)
	if selection.Place != nil && selection.Place.PhotoURL != "" {
		selection.PhotoURL = selection.Place.PhotoURL
	} else {
		selection.PhotoURL = s.places.StreetViewURL(point.Lat, point.Lng)
	}

	return selection, nil
}

// SetFilters reconciles the marker registry against a new category set.
// Newly-added categories are searched and their markers created; removed
// categories lose exactly their markers. Any change to the set also
// clears the current selection. An identical set is a no-op and the
// empty set clears everything.
func (s *MapSession) SetFilters(ctx context.Context, categories []string) error {
	next := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		next[c] = struct{}{}
	}

	s.mu.Lock()
	var added, removed []string
	for c := range next {
		if _, ok := s.activeFilters[c]; !ok {
			added = append(added, c)
		}
	}
	for c := range s.activeFilters {
		if _, ok := next[c]; !ok {
			removed = append(removed, c)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		s.mu.Unlock()
		return nil
	}

	// The previously selected place may not be addressable under the new
	// category set, so any filter transition drops the selection.
	s.clearSelectionLocked()

	for _, c := range removed {
		delete(s.markers, c)
		delete(s.activeFilters, c)
	}
	center := s.center
	s.mu.Unlock()

	for _, c := range added {
		results, err := s.places.NearbySearchByType(ctx, center.Lat, center.Lng, s.config.CategoryRadius, c)
		if err != nil {
			s.logger.Warn().Str("category", c).Err(err).Msg("Category search failed, category stays inactive")
			continue
		}

		markers := make([]models.Marker, 0, len(results))
		for _, p := range results {
			markers = append(markers, models.Marker{
				ID:       "marker_" + uuid.New().String(),
				Category: c,
				Place:    p,
			})
		}

		s.mu.Lock()
		s.markers[c] = markers
		s.activeFilters[c] = struct{}{}
		s.mu.Unlock()
	}

	s.mu.Lock()
	total := 0
	for _, ms := range s.markers {
		total += len(ms)
	}
	active := len(s.activeFilters)
	s.mu.Unlock()

	s.logger.Info().
		Int("added", len(added)).
		Int("removed", len(removed)).
		Int("active_filters", active).
		Int("markers", total).
		Msg("Filters reconciled")

	return nil
}

// ActiveFilters returns the currently active category set
func (s *MapSession) ActiveFilters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.activeFilters))
	for c := range s.activeFilters {
		out = append(out, c)
	}
	return out
}

// Markers returns all live markers across active categories
func (s *MapSession) Markers() []models.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Marker
	for _, ms := range s.markers {
		out = append(out, ms...)
	}
	return out
}

// MarkersForCategory returns the markers owned by one category
func (s *MapSession) MarkersForCategory(category string) []models.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.markers[category]
	out := make([]models.Marker, len(ms))
	copy(out, ms)
	return out
}

// findMarker looks a marker up by ID across all categories
func (s *MapSession) findMarker(id string) (models.Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ms := range s.markers {
		for _, m := range ms {
			if m.ID == id {
				return m, true
			}
		}
	}
	return models.Marker{}, false
}
