package interfaces

import (
	"context"

	"github.com/ternarybob/placetunes/internal/models"
)

// PlacesService defines the interface for the Google Maps web service adapter.
// All operations return recoverable typed errors (models.GeocodeError,
// models.PlacesError) on non-OK API statuses; ZERO_RESULTS is success with
// empty data.
type PlacesService interface {
	// ReverseGeocode resolves coordinates to the first formatted address
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)

	// NearbySearch finds places around a point. A small radius (~50m)
	// identifies the place at a clicked point; a large radius (~1000m)
	// populates category filter markers.
	NearbySearch(ctx context.Context, lat, lng float64, radiusMeters int) ([]models.Place, error)

	// NearbySearchByType finds places of a single category around a point
	NearbySearchByType(ctx context.Context, lat, lng float64, radiusMeters int, placeType string) ([]models.Place, error)

	// PlaceDetails fetches detail fields for a place ID
	PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error)

	// StreetViewURL builds the Street View fallback image URL for a point
	StreetViewURL(lat, lng float64) string
}
