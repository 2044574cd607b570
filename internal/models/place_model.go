package models

import "math"

// locationEpsilon is the coordinate tolerance (in degrees) under which two
// points are considered the same location, roughly 11 metres.
const locationEpsilon = 1e-4

// LatLng represents geographic coordinates
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearlyEqual reports whether two points fall within the dedup tolerance
func (p LatLng) NearlyEqual(other LatLng) bool {
	return math.Abs(p.Lat-other.Lat) < locationEpsilon &&
		math.Abs(p.Lng-other.Lng) < locationEpsilon
}

// Address represents a reverse-geocoded street address
type Address struct {
	Formatted string `json:"formatted_address"`
	Location  LatLng `json:"location"`
}

// FirstSegment returns the leading comma-separated address component,
// e.g. "12 Example St" from "12 Example St, Springfield, OH".
func (a *Address) FirstSegment() string {
	for i := 0; i < len(a.Formatted); i++ {
		if a.Formatted[i] == ',' {
			return a.Formatted[:i]
		}
	}
	return a.Formatted
}

// Place represents an individual place from the Places API
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Vicinity         string   `json:"vicinity,omitempty"`
	Location         LatLng   `json:"location"`
	Types            []string `json:"types,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	PhotoURL         string   `json:"photo_url,omitempty"` // Resolved place photo or Street View fallback
}

// HasType reports whether the place carries the given type tag
func (p *Place) HasType(t string) bool {
	for _, pt := range p.Types {
		if pt == t {
			return true
		}
	}
	return false
}

// Marker represents a map marker tied to a place, owned by a filter category
type Marker struct {
	ID       string `json:"id"`
	Category string `json:"category"` // Filter category that produced this marker
	Place    Place  `json:"place"`
	Label    string `json:"label,omitempty"` // Numbered label during playback
}
