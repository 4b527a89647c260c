// Package noweather serves Norwegian weather from MET Norway's
// Locationforecast 2.0, the API behind yr.no.
package noweather

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "no-weather"
	Description    = "Norwegian weather (MET Norway/yr.no Locationforecast 2.0)"
	DefaultBaseURL = "https://api.met.no/weatherapi/locationforecast/2.0"

	timezone = "Europe/Oslo"
	footer   = "*MET Norway Locationforecast 2.0*"
)

var Gazetteer = geo.Gazetteer{
	"oslo":         {Latitude: 59.913, Longitude: 10.752, DisplayName: "Oslo"},
	"bergen":       {Latitude: 60.393, Longitude: 5.324, DisplayName: "Bergen"},
	"trondheim":    {Latitude: 63.431, Longitude: 10.395, DisplayName: "Trondheim"},
	"stavanger":    {Latitude: 58.970, Longitude: 5.733, DisplayName: "Stavanger"},
	"drammen":      {Latitude: 59.744, Longitude: 10.204, DisplayName: "Drammen"},
	"fredrikstad":  {Latitude: 59.221, Longitude: 10.935, DisplayName: "Fredrikstad"},
	"kristiansand": {Latitude: 58.147, Longitude: 7.996, DisplayName: "Kristiansand"},
	"tromsø":       {Latitude: 69.649, Longitude: 18.956, DisplayName: "Tromsø"},
	"tromso":       {Latitude: 69.649, Longitude: 18.956, DisplayName: "Tromsø"},
	"sandnes":      {Latitude: 58.852, Longitude: 5.735, DisplayName: "Sandnes"},
	"bodø":         {Latitude: 67.280, Longitude: 14.405, DisplayName: "Bodø"},
	"bodo":         {Latitude: 67.280, Longitude: 14.405, DisplayName: "Bodø"},
	"ålesund":      {Latitude: 62.472, Longitude: 6.150, DisplayName: "Ålesund"},
	"alesund":      {Latitude: 62.472, Longitude: 6.150, DisplayName: "Ålesund"},
	"haugesund":    {Latitude: 59.414, Longitude: 5.268, DisplayName: "Haugesund"},
	"tønsberg":     {Latitude: 59.267, Longitude: 10.408, DisplayName: "Tønsberg"},
	"moss":         {Latitude: 59.434, Longitude: 10.659, DisplayName: "Moss"},
	"porsgrunn":    {Latitude: 59.141, Longitude: 9.656, DisplayName: "Porsgrunn"},
	"skien":        {Latitude: 59.210, Longitude: 9.609, DisplayName: "Skien"},
	"molde":        {Latitude: 62.737, Longitude: 7.159, DisplayName: "Molde"},
	"harstad":      {Latitude: 68.798, Longitude: 16.542, DisplayName: "Harstad"},
	"lillehammer":  {Latitude: 61.115, Longitude: 10.466, DisplayName: "Lillehammer"},
	"narvik":       {Latitude: 68.438, Longitude: 17.427, DisplayName: "Narvik"},
	"hammerfest":   {Latitude: 70.664, Longitude: 23.682, DisplayName: "Hammerfest"},
	"kirkenes":     {Latitude: 69.727, Longitude: 30.045, DisplayName: "Kirkenes"},
	"longyearbyen": {Latitude: 78.223, Longitude: 15.627, DisplayName: "Longyearbyen (Svalbard)"},
	"lofoten":      {Latitude: 68.209, Longitude: 13.611, DisplayName: "Lofoten (Svolvær)"},
	"svolvær":      {Latitude: 68.234, Longitude: 14.568, DisplayName: "Svolvær"},
	"nordkapp":     {Latitude: 71.169, Longitude: 25.784, DisplayName: "Nordkapp"},
	"flåm":         {Latitude: 60.863, Longitude: 7.114, DisplayName: "Flåm"},
	"flam":         {Latitude: 60.863, Longitude: 7.114, DisplayName: "Flåm"},
	"geilo":        {Latitude: 60.534, Longitude: 8.206, DisplayName: "Geilo"},
	"voss":         {Latitude: 60.629, Longitude: 6.413, DisplayName: "Voss"},
}

var symbols = map[string]string{
	"clearsky":                   "Clear sky",
	"fair":                       "Fair",
	"partlycloudy":               "Partly cloudy",
	"cloudy":                     "Cloudy",
	"fog":                        "Fog",
	"lightrain":                  "Light rain",
	"rain":                       "Rain",
	"heavyrain":                  "Heavy rain",
	"lightrainshowers":           "Light rain showers",
	"rainshowers":                "Rain showers",
	"heavyrainshowers":           "Heavy rain showers",
	"lightsleet":                 "Light sleet",
	"sleet":                      "Sleet",
	"heavysleet":                 "Heavy sleet",
	"lightsnow":                  "Light snow",
	"snow":                       "Snow",
	"heavysnow":                  "Heavy snow",
	"lightsnowshowers":           "Light snow showers",
	"snowshowers":                "Snow showers",
	"heavysnowshowers":           "Heavy snow showers",
	"rainandthunder":             "Rain and thunder",
	"heavyrainandthunder":        "Heavy rain and thunder",
	"lightrainandthunder":        "Light rain and thunder",
	"sleetandthunder":            "Sleet and thunder",
	"snowandthunder":             "Snow and thunder",
	"lightrainshowersandthunder": "Light rain showers and thunder",
	"rainshowersandthunder":      "Rain showers and thunder",
	"heavyrainshowersandthunder": "Heavy rain showers and thunder",
}

// errNoForecast is returned for an empty timeseries.
var errNoForecast error = core.NewNoData("MET Norway", "No forecast data available")

var variantSuffix = regexp.MustCompile(`_(day|night|polartwilight)$`)

// Symbol describes a MET symbol code. The _day/_night/_polartwilight variant
// is ignored and unknown codes are returned bare.
func Symbol(code string) string {
	if code == "" {
		return "Unknown"
	}
	base := variantSuffix.ReplaceAllString(code, "")
	if text, ok := symbols[base]; ok {
		return text
	}
	return base
}

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{
				api: upstream.FromEnv("MET Norway", baseURL, env),
				resolver: &geo.Resolver{
					CountryCode: "NO",
					CountryName: "Norway",
					Gazetteer:   Gazetteer,
					Geocoder:    geo.NewOpenMeteoGeocoder(env),
				},
				zone: textfmt.InZone(timezone),
			}
			return s.tools()
		},
	}
}

type service struct {
	api      *upstream.Client
	resolver *geo.Resolver
	zone     *time.Location
}

type period struct {
	Summary *struct {
		SymbolCode string `json:"symbol_code"`
	} `json:"summary"`
	Details *struct {
		PrecipitationAmount *float64 `json:"precipitation_amount"`
	} `json:"details"`
}

type entry struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details struct {
				AirTemperature        *float64 `json:"air_temperature"`
				RelativeHumidity      *float64 `json:"relative_humidity"`
				WindSpeed             *float64 `json:"wind_speed"`
				WindFromDirection     *float64 `json:"wind_from_direction"`
				WindSpeedOfGust       *float64 `json:"wind_speed_of_gust"`
				AirPressureAtSeaLevel *float64 `json:"air_pressure_at_sea_level"`
				CloudAreaFraction     *float64 `json:"cloud_area_fraction"`
			} `json:"details"`
		} `json:"instant"`
		Next1Hours *period `json:"next_1_hours"`
		Next6Hours *period `json:"next_6_hours"`
	} `json:"data"`
}

type forecast struct {
	Properties struct {
		Timeseries []entry `json:"timeseries"`
	} `json:"properties"`
}

// symbolCode prefers the next-hour summary over the six-hour one.
func (e entry) symbolCode() string {
	for _, p := range []*period{e.Data.Next1Hours, e.Data.Next6Hours} {
		if p != nil && p.Summary != nil && p.Summary.SymbolCode != "" {
			return p.Summary.SymbolCode
		}
	}
	return ""
}

// precipitation is the next-hour amount, nil when not forecast.
func (e entry) precipitation() *float64 {
	if p := e.Data.Next1Hours; p != nil && p.Details != nil {
		return p.Details.PrecipitationAmount
	}
	return nil
}

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("no_current_weather",
			mcp.WithDescription("Get current weather for a location in Norway using MET Norway (yr.no). Includes temperature, wind, precipitation, humidity, and cloud cover."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Norwegian city name (e.g. 'Oslo', 'Bergen', 'Tromsø', 'Lofoten') or lat,lon coordinates")),
		), s.current),

		core.NewTool(mcp.NewTool("no_weather_forecast",
			mcp.WithDescription("Get weather forecast for a location in Norway using MET Norway (yr.no). Returns hourly data for the next N hours."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Norwegian city name or lat,lon coordinates")),
			mcp.WithNumber("hours", mcp.Description("Hours ahead to forecast (default 24, max 72)"),
				mcp.Min(1), mcp.Max(72), mcp.DefaultNumber(24)),
		), s.forecastTool),
	}
}

func (s *service) fetch(ctx context.Context, location string) (geo.Location, []entry, error) {
	loc, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return loc, nil, err
	}
	var f forecast
	if err := s.api.Fetch(ctx, "/complete", upstream.Params{
		"lat": textfmt.Fixed(loc.Latitude, 4),
		"lon": textfmt.Fixed(loc.Longitude, 4),
	}, &f); err != nil {
		return loc, nil, err
	}
	return loc, f.Properties.Timeseries, nil
}

func (s *service) current(ctx context.Context, args core.Args) (string, error) {
	loc, series, err := s.fetch(ctx, args.String("location"))
	if err != nil {
		return "", err
	}
	if len(series) == 0 {
		return "", errNoForecast
	}

	now := series[0]
	d := now.Data.Instant.Details
	var l textfmt.Lines
	l.Add(
		fmt.Sprintf("## %s — Current Weather", loc.DisplayName),
		"**Conditions:** "+Symbol(now.symbolCode()),
		fmt.Sprintf("**Temperature:** %s°C", textfmt.NumPtr(d.AirTemperature, "N/A")),
		fmt.Sprintf("**Humidity:** %s%%", textfmt.NumPtr(d.RelativeHumidity, "N/A")),
		fmt.Sprintf("**Wind:** %s m/s from %s° (gusts %s m/s)",
			textfmt.NumPtr(d.WindSpeed, "N/A"), textfmt.NumPtr(d.WindFromDirection, "N/A"),
			textfmt.NumPtr(d.WindSpeedOfGust, "N/A")),
		fmt.Sprintf("**Pressure:** %s hPa", textfmt.NumPtr(d.AirPressureAtSeaLevel, "N/A")),
		fmt.Sprintf("**Cloud cover:** %s%%", textfmt.NumPtr(d.CloudAreaFraction, "N/A")),
	)
	if p := now.precipitation(); p != nil {
		l.Add(fmt.Sprintf("**Precipitation (next hour):** %s mm", textfmt.Num(*p)))
	}
	l.Add(fmt.Sprintf("\n*MET Norway Locationforecast 2.0 — %s*", now.Time.UTC().Format(time.RFC3339)))
	return l.String(), nil
}

func (s *service) forecastTool(ctx context.Context, args core.Args) (string, error) {
	hours := args.Int("hours", 24)
	loc, series, err := s.fetch(ctx, args.String("location"))
	if err != nil {
		return "", err
	}
	if len(series) > hours {
		series = series[:hours]
	}

	var l textfmt.Lines
	l.Add(fmt.Sprintf("## %s — %dh Forecast\n", loc.DisplayName, hours))
	for _, e := range series {
		d := e.Data.Instant.Details
		row := fmt.Sprintf("**%s:** %s°C, %s, wind %s m/s",
			textfmt.Hour(e.Time.In(s.zone)),
			textfmt.NumPtr(d.AirTemperature, "N/A"), Symbol(e.symbolCode()),
			textfmt.NumPtr(d.WindSpeed, "N/A"))
		if p := e.precipitation(); p != nil {
			row += fmt.Sprintf(", %s mm", textfmt.Num(*p))
		}
		l.Add(row)
	}
	l.Add("\n" + footer)
	return l.String(), nil
}
