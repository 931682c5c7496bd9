package locale

import (
	"math"
	"strings"

	"yogaportal/pkg/model"
)

const (
	DefaultTimezone   = "Europe/Zurich"
	DefaultLocationID = "zurich"
	PhoneRegion       = "CH"
)

var locations = []model.Location{
	{ID: "zurich", Name: "Zürich", Slug: "zurich", Canton: "ZH", Lat: 47.3769, Lng: 8.5417, Timezone: DefaultTimezone},
	{ID: "geneva", Name: "Genève", Slug: "geneva", Canton: "GE", Lat: 46.2044, Lng: 6.1432, Timezone: DefaultTimezone},
	{ID: "basel", Name: "Basel", Slug: "basel", Canton: "BS", Lat: 47.5596, Lng: 7.5886, Timezone: DefaultTimezone},
	{ID: "bern", Name: "Bern", Slug: "bern", Canton: "BE", Lat: 46.9480, Lng: 7.4474, Timezone: DefaultTimezone},
	{ID: "lausanne", Name: "Lausanne", Slug: "lausanne", Canton: "VD", Lat: 46.5197, Lng: 6.6323, Timezone: DefaultTimezone},
}

// Locations returns a copy of the supported cities in display order.
func Locations() []model.Location {
	out := make([]model.Location, len(locations))
	copy(out, locations)
	return out
}

// Find matches on id or slug, case-insensitively.
func Find(idOrSlug string) (model.Location, bool) {
	key := strings.ToLower(strings.TrimSpace(idOrSlug))
	for _, l := range locations {
		if l.ID == key || l.Slug == key {
			return l, true
		}
	}
	return model.Location{}, false
}

func Default() model.Location {
	l, _ := Find(DefaultLocationID)
	return l
}

// Nearest returns the supported city closest to the given coordinates.
func Nearest(lat, lng float64) model.Location {
	best := locations[0]
	bestDist := math.Inf(1)
	for _, l := range locations {
		d := haversineKm(lat, lng, l.Lat, l.Lng)
		if d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func IDs() []string {
	ids := make([]string, len(locations))
	for i, l := range locations {
		ids[i] = l.ID
	}
	return ids
}
