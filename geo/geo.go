// Package geo resolves free-text place names to coordinates for the weather
// modules and provides the great-circle distance used by the address tools.
//
// Resolution tries, in order: the country's static gazetteer, a literal
// "lat,lon" pair, and finally a geocoder restricted to the country. Nothing
// is cached between calls.
package geo

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
)

// EarthRadius is the mean Earth radius in metres used by Haversine.
const EarthRadius = 6371000.0

// Location is a resolved place. Values are immutable and live for one call.
type Location struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// Gazetteer maps lowercase place names (including ASCII-folded aliases) to
// fixed coordinates.
type Gazetteer map[string]Location

// Place is a geocoder hit.
type Place struct {
	Location
	CountryCode string
}

// Geocoder looks up a place name. It returns nil, nil when nothing matched.
type Geocoder interface {
	Search(ctx context.Context, name string) (*Place, error)
}

var coordPattern = regexp.MustCompile(`^(-?\d+\.?\d*)\s*,\s*(-?\d+\.?\d*)$`)

// ParseCoordinates matches a literal "lat,lon" pair. No range check is done.
// The display name keeps the input's own digits: "55.6761°N, 12.5683°E".
func ParseCoordinates(text string) (Location, bool) {
	m := coordPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return Location{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Location{}, false
	}
	return Location{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: fmt.Sprintf("%s°N, %s°E", m[1], m[2]),
	}, true
}

// Haversine returns the great-circle distance between two points in metres,
// rounded to the nearest metre.
func Haversine(lat1, lon1, lat2, lon2 float64) int {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return int(math.Round(2 * EarthRadius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))))
}

// Resolver turns free text into a Location within one country.
type Resolver struct {
	// CountryCode is the ISO code geocoder hits must carry, e.g. "DK"
	CountryCode string
	// CountryName is used in the not-found message, e.g. "Denmark"
	CountryName string
	// Hint completes the not-found message after "Try "
	Hint      string
	Gazetteer Gazetteer
	Geocoder  Geocoder
}

// DefaultHint is the not-found suggestion for countries without postal-code support.
const DefaultHint = "a city name or lat,lon coordinates"

// Resolve tries the gazetteer, then literal coordinates, then the geocoder.
// Geocoder transport errors are returned as-is; every other miss becomes a
// LocationNotFound error carrying the input.
func (r *Resolver) Resolve(ctx context.Context, text string) (Location, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if loc, ok := r.Gazetteer[key]; ok {
		return loc, nil
	}

	if loc, ok := ParseCoordinates(text); ok {
		return loc, nil
	}

	if r.Geocoder != nil {
		place, err := r.Geocoder.Search(ctx, text)
		if err != nil {
			return Location{}, err
		}
		if place != nil && strings.ToUpper(place.CountryCode) == strings.ToUpper(r.CountryCode) {
			return place.Location, nil
		}
	}

	hint := r.Hint
	if hint == "" {
		hint = DefaultHint
	}
	return Location{}, core.NewLocationNotFound(text,
		fmt.Sprintf("Could not find location %q in %s. Try %s.", text, r.CountryName, hint))
}
