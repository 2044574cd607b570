package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/placetunes/internal/common"
	"github.com/ternarybob/placetunes/internal/httpclient"
	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

const (
	geocodeURL      = "https://maps.googleapis.com/maps/api/geocode/json"
	nearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	detailsURL      = "https://maps.googleapis.com/maps/api/place/details/json"
	photoURL        = "https://maps.googleapis.com/maps/api/place/photo"
	streetViewURL   = "https://maps.googleapis.com/maps/api/streetview"
)

// Service implements the PlacesService interface against the Google Maps
// web service endpoints.
type Service struct {
	config     *common.PlacesConfig
	logger     arbor.ILogger
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewService creates a new Places service instance
func NewService(config *common.PlacesConfig, logger arbor.ILogger) interfaces.PlacesService {
	interval := rate.Inf
	if config.RateLimit > 0 {
		interval = rate.Every(config.RateLimit)
	}

	return &Service{
		config:     config,
		logger:     logger,
		apiKey:     config.APIKey,
		httpClient: httpclient.NewDefaultHTTPClient(config.RequestTimeout),
		limiter:    rate.NewLimiter(interval, 1),
	}
}

// ReverseGeocode resolves coordinates to the first formatted address
func (s *Service) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", s.apiKey)

	logURL := fmt.Sprintf("%s?latlng=%f,%f&key=***REDACTED***", geocodeURL, lat, lng)
	s.logger.Debug().Str("url", logURL).Msg("Calling Google Geocoding API")

	var apiResp GeocodeResponse
	if err := s.getJSON(ctx, geocodeURL, params, &apiResp); err != nil {
		return nil, &models.GeocodeError{Status: "REQUEST_FAILED", Message: err.Error()}
	}

	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, &models.GeocodeError{Status: apiResp.Status, Message: apiResp.ErrorMessage}
	}
	if len(apiResp.Results) == 0 {
		return nil, &models.GeocodeError{Status: "ZERO_RESULTS", Message: "no address at location"}
	}

	first := apiResp.Results[0]
	addr := &models.Address{
		Formatted: first.FormattedAddress,
		Location:  models.LatLng{Lat: lat, Lng: lng},
	}
	if first.Geometry != nil && first.Geometry.Location != nil {
		addr.Location = models.LatLng{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng}
	}

	s.logger.Debug().
		Str("address", addr.Formatted).
		Msg("Reverse geocode completed")

	return addr, nil
}

// NearbySearch finds places around a point
func (s *Service) NearbySearch(ctx context.Context, lat, lng float64, radiusMeters int) ([]models.Place, error) {
	return s.nearbySearch(ctx, lat, lng, radiusMeters, "")
}

// NearbySearchByType finds places of a single category around a point
func (s *Service) NearbySearchByType(ctx context.Context, lat, lng float64, radiusMeters int, placeType string) ([]models.Place, error) {
	return s.nearbySearch(ctx, lat, lng, radiusMeters, placeType)
}

func (s *Service) nearbySearch(ctx context.Context, lat, lng float64, radiusMeters int, placeType string) ([]models.Place, error) {
	if radiusMeters <= 0 {
		radiusMeters = s.config.IdentifyRadius
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	if placeType != "" {
		params.Set("type", placeType)
	}
	params.Set("key", s.apiKey)

	logURL := fmt.Sprintf("%s?location=%f,%f&radius=%d", nearbySearchURL, lat, lng, radiusMeters)
	if placeType != "" {
		logURL += "&type=" + placeType
	}
	logURL += "&key=***REDACTED***"
	s.logger.Debug().Str("url", logURL).Msg("Calling Google Places Nearby Search API")

	var apiResp PlacesNearbySearchResponse
	if err := s.getJSON(ctx, nearbySearchURL, params, &apiResp); err != nil {
		return nil, &models.PlacesError{Status: "REQUEST_FAILED", Message: err.Error()}
	}

	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, &models.PlacesError{Status: apiResp.Status, Message: apiResp.ErrorMessage}
	}

	results := apiResp.Results
	if s.config.MaxResultsLimit > 0 && len(results) > s.config.MaxResultsLimit {
		results = results[:s.config.MaxResultsLimit]
	}

	places := make([]models.Place, 0, len(results))
	for _, r := range results {
		places = append(places, s.convertToPlace(r))
	}

	s.logger.Info().
		Float64("latitude", lat).
		Float64("longitude", lng).
		Int("radius", radiusMeters).
		Str("type_filter", placeType).
		Int("results_count", len(places)).
		Str("status", apiResp.Status).
		Msg("Nearby search completed")

	return places, nil
}

// PlaceDetails fetches detail fields for a place ID
func (s *Service) PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	params.Set("key", s.apiKey)

	logURL := fmt.Sprintf("%s?place_id=%s&key=***REDACTED***", detailsURL, placeID)
	s.logger.Debug().Str("url", logURL).Msg("Calling Google Place Details API")

	var apiResp PlaceDetailsResponse
	if err := s.getJSON(ctx, detailsURL, params, &apiResp); err != nil {
		return nil, &models.PlacesError{Status: "REQUEST_FAILED", Message: err.Error()}
	}

	if apiResp.Status != "OK" {
		return nil, &models.PlacesError{Status: apiResp.Status, Message: apiResp.ErrorMessage}
	}

	place := s.convertToPlace(apiResp.Result)
	return &place, nil
}

// StreetViewURL builds the Street View fallback image URL for a point
func (s *Service) StreetViewURL(lat, lng float64) string {
	size := s.config.StreetViewSize
	if size == "" {
		size = "300x200"
	}
	params := url.Values{}
	params.Set("size", size)
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", s.apiKey)
	return fmt.Sprintf("%s?%s", streetViewURL, params.Encode())
}

// getJSON performs a rate-limited GET and decodes the JSON response
func (s *Service) getJSON(ctx context.Context, apiURL string, params url.Values, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", apiURL, params.Encode()), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Google Maps API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Google Maps API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

// convertToPlace converts a Google Places API result to a Place model
func (s *Service) convertToPlace(r PlaceResult) models.Place {
	place := models.Place{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Vicinity:         r.Vicinity,
		Types:            r.Types,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
	}

	if r.Geometry != nil && r.Geometry.Location != nil {
		place.Location = models.LatLng{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
	}

	if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
		place.PhotoURL = s.placePhotoURL(r.Photos[0].PhotoReference)
	} else {
		place.PhotoURL = s.StreetViewURL(place.Location.Lat, place.Location.Lng)
	}

	return place
}

// placePhotoURL resolves a photo reference to a fetchable image URL
func (s *Service) placePhotoURL(photoReference string) string {
	params := url.Values{}
	params.Set("maxwidth", "400")
	params.Set("photo_reference", photoReference)
	params.Set("key", s.apiKey)
	return fmt.Sprintf("%s?%s", photoURL, params.Encode())
}
