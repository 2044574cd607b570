package places

import (
	"fmt"

	"github.com/ternarybob/placetunes/internal/models"
)

// DisplayName resolves the label shown for an identified place. Nearby
// results sometimes carry no name, or a name that merely repeats the
// geocoded address; in both cases a type-derived label reads better on
// the map.
func DisplayName(place *models.Place, address *models.Address) string {
	name := ""
	if place != nil {
		name = place.Name
	}

	// A name that just repeats the street portion of the address adds
	// nothing, so it gets the same treatment as a missing name.
	duplicate := address != nil && name != "" && name == address.FirstSegment()
	if name != "" && !duplicate {
		return name
	}

	segment := ""
	if address != nil {
		segment = address.FirstSegment()
	}

	if place != nil {
		if place.HasType("church") {
			return fmt.Sprintf("Church near %s", segment)
		}
		if place.HasType("tourist_attraction") {
			return fmt.Sprintf("Tourist Attraction: %s", segment)
		}
	}

	if segment != "" {
		return segment
	}
	return "Unknown Place"
}
