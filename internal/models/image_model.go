package models

import "strings"

// ImageLocation ties a collected image to the place it was captured for
type ImageLocation struct {
	Name  string `json:"name,omitempty"`
	Point LatLng `json:"point"`
}

// CollectedImage is an image queued for a music generation run.
// Release frees the image's preview resource; the store guarantees it is
// called exactly once.
type CollectedImage struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Size       int64          `json:"size"`
	PreviewURL string         `json:"preview_url,omitempty"`
	Location   *ImageLocation `json:"location,omitempty"`
	Data       []byte         `json:"-"`

	Release func() `json:"-"`
}

// HasLocation reports whether the image carries usable coordinates
func (i *CollectedImage) HasLocation() bool {
	return i.Location != nil
}

// Extension returns the lowercase filename extension without the dot
func (i *CollectedImage) Extension() string {
	idx := strings.LastIndexByte(i.Filename, '.')
	if idx < 0 || idx == len(i.Filename)-1 {
		return ""
	}
	return strings.ToLower(i.Filename[idx+1:])
}

// LocationEntry is one deduplicated location and the number of collected
// images attached to it.
type LocationEntry struct {
	ImageLocation
	Count int `json:"count"`
}

// LocationsSummary is the deduplicated location set for a generation run.
// Locations keeps first-seen order; Composite is the comma-joined string
// submitted with the generation request.
type LocationsSummary struct {
	Locations []LocationEntry `json:"locations"`
	Composite string          `json:"composite"`
}
