package geo

import (
	"context"
	"errors"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/upstream"
)

// DefaultGeocodingURL is the Open-Meteo geocoding search endpoint root.
const DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1"

// OpenMeteoGeocoder queries the Open-Meteo geocoding API and returns the
// first hit only.
type OpenMeteoGeocoder struct {
	client *upstream.Client
}

type geocodingResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		CountryCode string  `json:"country_code"`
	} `json:"results"`
}

// NewOpenMeteoGeocoder creates a geocoder from the module environment.
func NewOpenMeteoGeocoder(env core.ModuleEnv) *OpenMeteoGeocoder {
	base := env.GeocodingURL
	if base == "" {
		base = DefaultGeocodingURL
	}
	return &OpenMeteoGeocoder{client: upstream.FromEnv("Open-Meteo geocoding", base, env)}
}

// Search looks up name. An upstream error status counts as no match;
// transport failures are returned.
func (g *OpenMeteoGeocoder) Search(ctx context.Context, name string) (*Place, error) {
	var resp geocodingResponse
	err := g.client.Fetch(ctx, "/search", upstream.Params{
		"name":     name,
		"count":    1,
		"language": "en",
		"format":   "json",
	}, &resp)
	if err != nil {
		if errors.Is(err, core.ErrUpstream) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	return &Place{
		Location: Location{
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			DisplayName: r.Name,
		},
		CountryCode: r.CountryCode,
	}, nil
}
