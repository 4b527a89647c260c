// Package openmeteo is the Open-Meteo forecast client shared by the Danish
// and Finnish weather modules, plus the WMO weather-code table.
package openmeteo

import (
	"context"
	"strconv"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
)

// DefaultBaseURL is the Open-Meteo API root.
const DefaultBaseURL = "https://api.open-meteo.com/v1"

// Client fetches forecasts for one timezone and, optionally, one model.
type Client struct {
	api      *upstream.Client
	timezone string
	model    string
}

// Options configures a Client
type Options struct {
	BaseURL  string
	Timezone string // e.g. "Europe/Copenhagen"
	Model    string // e.g. "dmi_harmonie_arome_europe"; empty uses Open-Meteo's best match
}

// New creates a forecast client from the module environment.
func New(env core.ModuleEnv, opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		api:      upstream.FromEnv("Open-Meteo", base, env),
		timezone: opts.Timezone,
		model:    opts.Model,
	}
}

// Current holds the "current" block. Fields that were not requested stay zero.
type Current struct {
	Time                string  `json:"time"`
	Temperature         float64 `json:"temperature_2m"`
	RelativeHumidity    float64 `json:"relative_humidity_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	Precipitation       float64 `json:"precipitation"`
	Snowfall            float64 `json:"snowfall"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed           float64 `json:"wind_speed_10m"`
	WindDirection       float64 `json:"wind_direction_10m"`
	WindGusts           float64 `json:"wind_gusts_10m"`
	SurfacePressure     float64 `json:"surface_pressure"`
	CloudCover          float64 `json:"cloud_cover"`
}

// Hourly holds the parallel arrays of the "hourly" block.
type Hourly struct {
	Time                []string  `json:"time"`
	Temperature         []float64 `json:"temperature_2m"`
	ApparentTemperature []float64 `json:"apparent_temperature"`
	Precipitation       []float64 `json:"precipitation"`
	Snowfall            []float64 `json:"snowfall"`
	WeatherCode         []int     `json:"weather_code"`
	WindSpeed           []float64 `json:"wind_speed_10m"`
	WindGusts           []float64 `json:"wind_gusts_10m"`
	CloudCover          []float64 `json:"cloud_cover"`
}

// Daily holds the parallel arrays of the "daily" block.
type Daily struct {
	Time                   []string  `json:"time"`
	WeatherCode            []int     `json:"weather_code"`
	TemperatureMax         []float64 `json:"temperature_2m_max"`
	TemperatureMin         []float64 `json:"temperature_2m_min"`
	ApparentTemperatureMax []float64 `json:"apparent_temperature_max"`
	ApparentTemperatureMin []float64 `json:"apparent_temperature_min"`
	Sunrise                []string  `json:"sunrise"`
	Sunset                 []string  `json:"sunset"`
	PrecipitationSum       []float64 `json:"precipitation_sum"`
	SnowfallSum            []float64 `json:"snowfall_sum"`
	WindSpeedMax           []float64 `json:"wind_speed_10m_max"`
	WindGustsMax           []float64 `json:"wind_gusts_10m_max"`
	WindDirectionDominant  []float64 `json:"wind_direction_10m_dominant"`
}

// Forecast is the decoded forecast response.
type Forecast struct {
	Current      Current           `json:"current"`
	CurrentUnits map[string]string `json:"current_units"`
	Hourly       Hourly            `json:"hourly"`
	Daily        Daily             `json:"daily"`
}

// Request selects the variables to fetch for one location.
type Request struct {
	Current []string
	Hourly  []string
	Daily   []string
	// Days is forecast_days; zero leaves it to the API default
	Days int
}

// Fetch requests a forecast for loc.
func (c *Client) Fetch(ctx context.Context, loc geo.Location, req Request) (*Forecast, error) {
	params := upstream.Params{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	}
	if len(req.Current) > 0 {
		params["current"] = strings.Join(req.Current, ",")
	}
	if len(req.Hourly) > 0 {
		params["hourly"] = strings.Join(req.Hourly, ",")
	}
	if len(req.Daily) > 0 {
		params["daily"] = strings.Join(req.Daily, ",")
	}
	if req.Days > 0 {
		params["forecast_days"] = req.Days
	}
	if c.model != "" {
		params["models"] = c.model
	}
	if c.timezone != "" {
		params["timezone"] = c.timezone
	}

	var f Forecast
	if err := c.api.Fetch(ctx, "/forecast", params, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// At returns s[i], or zero when the array is short.
func At[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}

// HourLabel renders an hourly timestamp as "Thu 15 Oct 14:00". Unparseable
// input is returned unchanged.
func HourLabel(ts string) string {
	if t, ok := textfmt.ParseLocal(ts); ok {
		return textfmt.Hour(t)
	}
	return ts
}

// DayLabel renders a daily date as "Thursday 15 October".
func DayLabel(ts string) string {
	if t, ok := textfmt.ParseLocal(ts); ok {
		return textfmt.Day(t)
	}
	return ts
}

// Clock returns the time part of "2026-10-15T07:42".
func Clock(ts string) string {
	if _, after, ok := strings.Cut(ts, "T"); ok {
		return after
	}
	return ""
}

var wmoCodes = map[int]string{
	0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Rime fog",
	51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle",
	56: "Freezing drizzle (light)", 57: "Freezing drizzle (dense)",
	61: "Slight rain", 63: "Moderate rain", 65: "Heavy rain",
	66: "Freezing rain (light)", 67: "Freezing rain (heavy)",
	71: "Slight snow", 73: "Moderate snow", 75: "Heavy snow", 77: "Snow grains",
	80: "Rain showers (slight)", 81: "Rain showers (moderate)", 82: "Rain showers (violent)",
	85: "Snow showers (slight)", 86: "Snow showers (heavy)",
	95: "Thunderstorm", 96: "Thunderstorm with slight hail", 99: "Thunderstorm with heavy hail",
}

// Describe returns the WMO description, or "Code N" for unknown codes.
func Describe(code int) string {
	if s, ok := wmoCodes[code]; ok {
		return s
	}
	return "Code " + strconv.Itoa(code)
}

// DescribeOrEmpty returns the WMO description, or "" for unknown codes.
// Listings and comparison tables use this form.
func DescribeOrEmpty(code int) string {
	return wmoCodes[code]
}
