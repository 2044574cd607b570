package places

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/placetunes/internal/models"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		place    *models.Place
		address  *models.Address
		expected string
	}{
		{
			name:     "named place wins",
			place:    &models.Place{Name: "Corner Cafe"},
			address:  &models.Address{Formatted: "12 Example St, Springfield"},
			expected: "Corner Cafe",
		},
		{
			name:     "name repeating the street segment falls through",
			place:    &models.Place{Name: "12 Example St"},
			address:  &models.Address{Formatted: "12 Example St, Springfield"},
			expected: "12 Example St",
		},
		{
			name:     "typed place named after the street segment gets the type label",
			place:    &models.Place{Name: "123 Main St", Types: []string{"church"}},
			address:  &models.Address{Formatted: "123 Main St, Springfield"},
			expected: "Church near 123 Main St",
		},
		{
			name:     "unnamed church gets a type label",
			place:    &models.Place{Types: []string{"church", "place_of_worship"}},
			address:  &models.Address{Formatted: "Rue du Cloitre, Paris"},
			expected: "Church near Rue du Cloitre",
		},
		{
			name:     "unnamed tourist attraction gets a type label",
			place:    &models.Place{Types: []string{"tourist_attraction"}},
			address:  &models.Address{Formatted: "Champ de Mars, Paris"},
			expected: "Tourist Attraction: Champ de Mars",
		},
		{
			name:     "no place falls back to the address segment",
			place:    nil,
			address:  &models.Address{Formatted: "Champ de Mars, Paris"},
			expected: "Champ de Mars",
		},
		{
			name:     "nothing resolved",
			place:    nil,
			address:  nil,
			expected: "Unknown Place",
		},
		{
			name:     "untyped unnamed place with no address",
			place:    &models.Place{},
			address:  nil,
			expected: "Unknown Place",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayName(tt.place, tt.address))
		})
	}
}
