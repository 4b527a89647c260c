// Package seweather serves Swedish weather from the SMHI Open Data point
// forecast (pmp3g).
package seweather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "se-weather"
	Description    = "Swedish weather (SMHI Open Data)"
	DefaultBaseURL = "https://opendata-download-metfcst.smhi.se/api/category/pmp3g/version/2/geotype/point"

	timezone = "Europe/Stockholm"

	// closestWindow bounds the search for the entry nearest to now.
	closestWindow = 10
)

var Gazetteer = geo.Gazetteer{
	"stockholm":   {Latitude: 59.329, Longitude: 18.069, DisplayName: "Stockholm"},
	"gothenburg":  {Latitude: 57.709, Longitude: 11.975, DisplayName: "Gothenburg"},
	"göteborg":    {Latitude: 57.709, Longitude: 11.975, DisplayName: "Gothenburg"},
	"malmö":       {Latitude: 55.605, Longitude: 13.000, DisplayName: "Malmö"},
	"malmo":       {Latitude: 55.605, Longitude: 13.000, DisplayName: "Malmö"},
	"uppsala":     {Latitude: 59.859, Longitude: 17.639, DisplayName: "Uppsala"},
	"linköping":   {Latitude: 58.411, Longitude: 15.622, DisplayName: "Linköping"},
	"linkoping":   {Latitude: 58.411, Longitude: 15.622, DisplayName: "Linköping"},
	"västerås":    {Latitude: 59.611, Longitude: 16.545, DisplayName: "Västerås"},
	"vasteras":    {Latitude: 59.611, Longitude: 16.545, DisplayName: "Västerås"},
	"örebro":      {Latitude: 59.275, Longitude: 15.214, DisplayName: "Örebro"},
	"orebro":      {Latitude: 59.275, Longitude: 15.214, DisplayName: "Örebro"},
	"norrköping":  {Latitude: 58.588, Longitude: 16.192, DisplayName: "Norrköping"},
	"norrkoping":  {Latitude: 58.588, Longitude: 16.192, DisplayName: "Norrköping"},
	"helsingborg": {Latitude: 56.047, Longitude: 12.694, DisplayName: "Helsingborg"},
	"jönköping":   {Latitude: 57.783, Longitude: 14.161, DisplayName: "Jönköping"},
	"jonkoping":   {Latitude: 57.783, Longitude: 14.161, DisplayName: "Jönköping"},
	"umeå":        {Latitude: 63.826, Longitude: 20.264, DisplayName: "Umeå"},
	"umea":        {Latitude: 63.826, Longitude: 20.264, DisplayName: "Umeå"},
	"lund":        {Latitude: 55.705, Longitude: 13.193, DisplayName: "Lund"},
	"gävle":       {Latitude: 60.675, Longitude: 17.142, DisplayName: "Gävle"},
	"gavle":       {Latitude: 60.675, Longitude: 17.142, DisplayName: "Gävle"},
	"sundsvall":   {Latitude: 62.391, Longitude: 17.307, DisplayName: "Sundsvall"},
	"luleå":       {Latitude: 65.584, Longitude: 22.147, DisplayName: "Luleå"},
	"lulea":       {Latitude: 65.584, Longitude: 22.147, DisplayName: "Luleå"},
	"kiruna":      {Latitude: 67.857, Longitude: 20.225, DisplayName: "Kiruna"},
	"visby":       {Latitude: 57.639, Longitude: 18.296, DisplayName: "Visby (Gotland)"},
	"kalmar":      {Latitude: 56.661, Longitude: 16.362, DisplayName: "Kalmar"},
	"karlstad":    {Latitude: 59.379, Longitude: 13.504, DisplayName: "Karlstad"},
	"växjö":       {Latitude: 56.879, Longitude: 14.806, DisplayName: "Växjö"},
	"vaxjo":       {Latitude: 56.879, Longitude: 14.806, DisplayName: "Växjö"},
	"halmstad":    {Latitude: 56.674, Longitude: 12.857, DisplayName: "Halmstad"},
	"trollhättan": {Latitude: 58.284, Longitude: 12.289, DisplayName: "Trollhättan"},
	"borås":       {Latitude: 57.721, Longitude: 12.940, DisplayName: "Borås"},
	"boras":       {Latitude: 57.721, Longitude: 12.940, DisplayName: "Borås"},
	"are":         {Latitude: 63.399, Longitude: 13.081, DisplayName: "Åre"},
	"åre":         {Latitude: 63.399, Longitude: 13.081, DisplayName: "Åre"},
}

// wsymb2 holds the SMHI Wsymb2 weather codes.
var wsymb2 = map[int]string{
	1: "Clear sky", 2: "Nearly clear sky", 3: "Variable cloudiness",
	4: "Halfclear sky", 5: "Cloudy sky", 6: "Overcast",
	7: "Fog", 8: "Light rain showers", 9: "Moderate rain showers",
	10: "Heavy rain showers", 11: "Thunderstorm", 12: "Light sleet showers",
	13: "Moderate sleet showers", 14: "Heavy sleet showers",
	15: "Light snow showers", 16: "Moderate snow showers", 17: "Heavy snow showers",
	18: "Light rain", 19: "Moderate rain", 20: "Heavy rain",
	21: "Thunder", 22: "Light sleet", 23: "Moderate sleet", 24: "Heavy sleet",
	25: "Light snowfall", 26: "Moderate snowfall", 27: "Heavy snowfall",
}

var errNoForecast error = core.NewNoData("SMHI", "No forecast data")

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return newModule(baseURL, time.Now)
}

func newModule(baseURL string, now func() time.Time) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{
				api: upstream.FromEnv("SMHI", baseURL, env),
				resolver: &geo.Resolver{
					CountryCode: "SE",
					CountryName: "Sweden",
					Gazetteer:   Gazetteer,
					Geocoder:    geo.NewOpenMeteoGeocoder(env),
				},
				zone: textfmt.InZone(timezone),
				now:  now,
			}
			return s.tools()
		},
	}
}

type service struct {
	api      *upstream.Client
	resolver *geo.Resolver
	zone     *time.Location
	now      func() time.Time
}

type parameter struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type entry struct {
	ValidTime  time.Time   `json:"validTime"`
	Parameters []parameter `json:"parameters"`
}

type forecast struct {
	TimeSeries []entry `json:"timeSeries"`
}

// param returns the first value of the named parameter, nil when absent.
func (e entry) param(name string) *float64 {
	for _, p := range e.Parameters {
		if p.Name == name && len(p.Values) > 0 {
			v := p.Values[0]
			return &v
		}
	}
	return nil
}

// Symbol describes a Wsymb2 code, or "" when unknown.
func Symbol(code *float64) string {
	if code == nil {
		return ""
	}
	return wsymb2[int(*code)]
}

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("se_current_weather",
			mcp.WithDescription("Get current weather for a location in Sweden using SMHI (Swedish Meteorological and Hydrological Institute). Includes temperature, wind, precipitation, humidity."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Swedish city name (e.g. 'Stockholm', 'Malmö', 'Gothenburg', 'Kiruna') or lat,lon coordinates")),
		), s.current),

		core.NewTool(mcp.NewTool("se_weather_forecast",
			mcp.WithDescription("Get weather forecast for a location in Sweden using SMHI. Returns hourly data for the next N hours."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Swedish city name or lat,lon coordinates")),
			mcp.WithNumber("hours", mcp.Description("Hours ahead (default 24, max 72)"),
				mcp.Min(1), mcp.Max(72), mcp.DefaultNumber(24)),
		), s.forecastTool),
	}
}

func (s *service) fetch(ctx context.Context, location string) (geo.Location, []entry, error) {
	loc, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return loc, nil, err
	}
	// SMHI only accepts coordinates with at most six decimals
	path := fmt.Sprintf("/lon/%s/lat/%s/data.json",
		textfmt.Fixed(loc.Longitude, 6), textfmt.Fixed(loc.Latitude, 6))
	var f forecast
	if err := s.api.Fetch(ctx, path, nil, &f); err != nil {
		return loc, nil, err
	}
	return loc, f.TimeSeries, nil
}

// closest picks the entry nearest to now among the first few.
func closest(series []entry, now time.Time) entry {
	best := series[0]
	bestDiff := absDuration(best.ValidTime.Sub(now))
	for _, e := range series[1:min(len(series), closestWindow)] {
		if d := absDuration(e.ValidTime.Sub(now)); d < bestDiff {
			best, bestDiff = e, d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (s *service) current(ctx context.Context, args core.Args) (string, error) {
	loc, series, err := s.fetch(ctx, args.String("location"))
	if err != nil {
		return "", err
	}
	if len(series) == 0 {
		return "", errNoForecast
	}

	e := closest(series, s.now())
	conditions := Symbol(e.param("Wsymb2"))
	if conditions == "" {
		conditions = "Code " + textfmt.NumPtr(e.param("Wsymb2"), "N/A")
	}
	cloud := "N/A"
	if c := e.param("tcc_mean"); c != nil {
		// tcc_mean is in octas
		cloud = fmt.Sprintf("%d%%", int(math.Round(*c*12.5)))
	}

	var l textfmt.Lines
	l.Add(
		fmt.Sprintf("## %s — Current Weather", loc.DisplayName),
		"**Conditions:** "+conditions,
		fmt.Sprintf("**Temperature:** %s°C", textfmt.NumPtr(e.param("t"), "N/A")),
		fmt.Sprintf("**Humidity:** %s%%", textfmt.NumPtr(e.param("r"), "N/A")),
		fmt.Sprintf("**Wind:** %s m/s from %s° (gusts %s m/s)",
			textfmt.NumPtr(e.param("ws"), "N/A"), textfmt.NumPtr(e.param("wd"), "N/A"),
			textfmt.NumPtr(e.param("gust"), "N/A")),
		fmt.Sprintf("**Pressure:** %s hPa", textfmt.NumPtr(e.param("msl"), "N/A")),
		"**Cloud cover:** "+cloud,
	)
	if p := e.param("pmean"); p != nil {
		l.Add(fmt.Sprintf("**Precipitation:** %s mm/h", textfmt.Num(*p)))
	}
	l.Add(fmt.Sprintf("\n*SMHI — %s*", e.ValidTime.UTC().Format(time.RFC3339)))
	return l.String(), nil
}

func (s *service) forecastTool(ctx context.Context, args core.Args) (string, error) {
	hours := args.Int("hours", 24)
	loc, series, err := s.fetch(ctx, args.String("location"))
	if err != nil {
		return "", err
	}

	now := s.now()
	from := now.Add(-time.Hour)
	cutoff := now.Add(time.Duration(hours) * time.Hour)

	var l textfmt.Lines
	l.Add(fmt.Sprintf("## %s — %dh Forecast\n", loc.DisplayName, hours))
	for _, e := range series {
		if e.ValidTime.After(cutoff) {
			break
		}
		if e.ValidTime.Before(from) {
			continue
		}
		row := fmt.Sprintf("**%s:** %s°C, %s, wind %s m/s",
			textfmt.Hour(e.ValidTime.In(s.zone)),
			textfmt.NumPtr(e.param("t"), "N/A"), Symbol(e.param("Wsymb2")),
			textfmt.NumPtr(e.param("ws"), "N/A"))
		if p := e.param("pmean"); p != nil && *p > 0 {
			row += fmt.Sprintf(", %s mm/h", textfmt.Num(*p))
		}
		l.Add(row)
	}
	l.Add("\n*SMHI Open Data*")
	return l.String(), nil
}
