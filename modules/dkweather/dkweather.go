// Package dkweather serves Danish weather from the DMI HARMONIE AROME model
// through Open-Meteo.
package dkweather

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/openmeteo"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"
)

const (
	Flag        = "dk-weather"
	Description = "Danish weather (DMI HARMONIE 2km via Open-Meteo)"

	model    = "dmi_harmonie_arome_europe"
	timezone = "Europe/Copenhagen"
)

// Gazetteer holds the Danish places resolved without a geocoder call.
var Gazetteer = geo.Gazetteer{
	"copenhagen":    {Latitude: 55.676, Longitude: 12.568, DisplayName: "Copenhagen"},
	"københavn":     {Latitude: 55.676, Longitude: 12.568, DisplayName: "Copenhagen"},
	"aarhus":        {Latitude: 56.163, Longitude: 10.204, DisplayName: "Aarhus"},
	"århus":         {Latitude: 56.163, Longitude: 10.204, DisplayName: "Aarhus"},
	"odense":        {Latitude: 55.396, Longitude: 10.389, DisplayName: "Odense"},
	"aalborg":       {Latitude: 57.048, Longitude: 9.922, DisplayName: "Aalborg"},
	"esbjerg":       {Latitude: 55.467, Longitude: 8.452, DisplayName: "Esbjerg"},
	"randers":       {Latitude: 56.461, Longitude: 10.036, DisplayName: "Randers"},
	"kolding":       {Latitude: 55.490, Longitude: 9.472, DisplayName: "Kolding"},
	"horsens":       {Latitude: 55.861, Longitude: 9.850, DisplayName: "Horsens"},
	"vejle":         {Latitude: 55.711, Longitude: 9.536, DisplayName: "Vejle"},
	"roskilde":      {Latitude: 55.642, Longitude: 12.087, DisplayName: "Roskilde"},
	"herning":       {Latitude: 56.139, Longitude: 8.974, DisplayName: "Herning"},
	"silkeborg":     {Latitude: 56.170, Longitude: 9.545, DisplayName: "Silkeborg"},
	"næstved":       {Latitude: 55.230, Longitude: 11.760, DisplayName: "Næstved"},
	"fredericia":    {Latitude: 55.566, Longitude: 9.752, DisplayName: "Fredericia"},
	"viborg":        {Latitude: 56.453, Longitude: 9.402, DisplayName: "Viborg"},
	"køge":          {Latitude: 55.458, Longitude: 12.182, DisplayName: "Køge"},
	"holstebro":     {Latitude: 56.360, Longitude: 8.616, DisplayName: "Holstebro"},
	"slagelse":      {Latitude: 55.403, Longitude: 11.354, DisplayName: "Slagelse"},
	"hillerød":      {Latitude: 55.927, Longitude: 12.311, DisplayName: "Hillerød"},
	"helsingør":     {Latitude: 56.036, Longitude: 12.614, DisplayName: "Helsingør"},
	"frederikshavn": {Latitude: 57.441, Longitude: 10.537, DisplayName: "Frederikshavn"},
	"gilleleje":     {Latitude: 56.122, Longitude: 12.311, DisplayName: "Gilleleje"},
	"solrød":        {Latitude: 55.533, Longitude: 12.183, DisplayName: "Solrød"},
	"ølsemagle":     {Latitude: 55.490, Longitude: 12.175, DisplayName: "Ølsemagle"},
	"hellerup":      {Latitude: 55.730, Longitude: 12.572, DisplayName: "Hellerup"},
	"frederiksberg": {Latitude: 55.680, Longitude: 12.531, DisplayName: "Frederiksberg"},
	"gentofte":      {Latitude: 55.752, Longitude: 12.549, DisplayName: "Gentofte"},
	"lyngby":        {Latitude: 55.771, Longitude: 12.504, DisplayName: "Lyngby"},
	"taastrup":      {Latitude: 55.652, Longitude: 12.299, DisplayName: "Taastrup"},
	"glostrup":      {Latitude: 55.664, Longitude: 12.398, DisplayName: "Glostrup"},
	"ballerup":      {Latitude: 55.732, Longitude: 12.364, DisplayName: "Ballerup"},
	"hvidovre":      {Latitude: 55.641, Longitude: 12.474, DisplayName: "Hvidovre"},
	"brøndby":       {Latitude: 55.649, Longitude: 12.420, DisplayName: "Brøndby"},
	"ishøj":         {Latitude: 55.615, Longitude: 12.351, DisplayName: "Ishøj"},
	"greve":         {Latitude: 55.583, Longitude: 12.300, DisplayName: "Greve"},
	"nørrebro":      {Latitude: 55.696, Longitude: 12.552, DisplayName: "Nørrebro"},
	"vesterbro":     {Latitude: 55.670, Longitude: 12.553, DisplayName: "Vesterbro"},
	"amager":        {Latitude: 55.644, Longitude: 12.601, DisplayName: "Amager"},
}

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation",
		"weather_code", "wind_speed_10m", "wind_direction_10m", "wind_gusts_10m",
		"surface_pressure", "cloud_cover",
	}
	hourlyFields = []string{
		"temperature_2m", "apparent_temperature", "precipitation", "weather_code",
		"wind_speed_10m", "wind_gusts_10m", "cloud_cover",
	}
	dailyFields = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min",
		"apparent_temperature_max", "apparent_temperature_min", "sunrise", "sunset",
		"precipitation_sum", "wind_speed_10m_max", "wind_gusts_10m_max", "wind_direction_10m_dominant",
	}
	compareFields = []string{
		"temperature_2m", "apparent_temperature", "precipitation", "weather_code",
		"wind_speed_10m", "cloud_cover",
	}
)

// Module returns the dk-weather module bound to the public API.
func Module() core.Module {
	return New(openmeteo.DefaultBaseURL)
}

// New returns the module with forecasts fetched from baseURL.
func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Resources:   []core.Resource{usage},
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{
				forecast: openmeteo.New(env, openmeteo.Options{BaseURL: baseURL, Timezone: timezone, Model: model}),
				resolver: &geo.Resolver{
					CountryCode: "DK",
					CountryName: "Denmark",
					Hint:        "a city name, postal code, or lat,lon coordinates",
					Gazetteer:   Gazetteer,
					Geocoder:    geo.NewOpenMeteoGeocoder(env),
				},
			}
			return s.tools()
		},
	}
}

type service struct {
	forecast *openmeteo.Client
	resolver *geo.Resolver
}

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("dk_current_weather",
			mcp.WithDescription("Get current weather conditions for a location in Denmark. Uses DMI HARMONIE high-resolution model (2km). Accepts city names, coordinates, or postal codes."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Danish city name (e.g. 'Copenhagen', 'Aarhus', 'Gilleleje'), postal code, or lat,lon coordinates")),
		), s.current),

		core.NewTool(mcp.NewTool("dk_weather_forecast",
			mcp.WithDescription("Get hourly or daily weather forecast for a location in Denmark. Uses DMI HARMONIE 2km model for the first 2.5 days, then ECMWF for up to 16 days."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Danish city name, postal code, or lat,lon coordinates")),
			mcp.WithNumber("days", mcp.Description("Forecast days (default 3, max 16)"),
				mcp.Min(1), mcp.Max(16), mcp.DefaultNumber(3)),
			mcp.WithString("mode", mcp.Description("Hourly detail or daily summary (default: daily)"),
				mcp.Enum("hourly", "daily"), mcp.DefaultString("daily")),
		), s.forecastTool),

		core.NewTool(mcp.NewTool("dk_compare_weather",
			mcp.WithDescription("Compare current weather between two Danish locations side by side. Useful for deciding between destinations or comparing conditions across the country."),
			mcp.WithString("location1", mcp.Required(),
				mcp.Description("First location (city name, postal code, or coordinates)")),
			mcp.WithString("location2", mcp.Required(), mcp.Description("Second location")),
		), s.compare),
	}
}

func (s *service) current(ctx context.Context, args core.Args) (string, error) {
	loc, err := s.resolver.Resolve(ctx, args.String("location"))
	if err != nil {
		return "", err
	}
	f, err := s.forecast.Fetch(ctx, loc, openmeteo.Request{Current: currentFields})
	if err != nil {
		return "", err
	}
	return formatCurrent(loc, f), nil
}

func (s *service) forecastTool(ctx context.Context, args core.Args) (string, error) {
	loc, err := s.resolver.Resolve(ctx, args.String("location"))
	if err != nil {
		return "", err
	}
	days := args.Int("days", 3)
	hourly := args.String("mode") == "hourly"

	req := openmeteo.Request{Days: days}
	if hourly {
		req.Hourly = hourlyFields
	} else {
		req.Daily = dailyFields
	}
	f, err := s.forecast.Fetch(ctx, loc, req)
	if err != nil {
		return "", err
	}
	return formatForecast(loc, days, hourly, f), nil
}

func (s *service) compare(ctx context.Context, args core.Args) (string, error) {
	inputs := [2]string{args.String("location1"), args.String("location2")}
	var locs [2]geo.Location
	var data [2]*openmeteo.Forecast

	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			loc, err := s.resolver.Resolve(gctx, inputs[i])
			if err != nil {
				return err
			}
			f, err := s.forecast.Fetch(gctx, loc, openmeteo.Request{Current: compareFields})
			if err != nil {
				return err
			}
			locs[i], data[i] = loc, f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return formatCompare(locs, data), nil
}

func formatCurrent(loc geo.Location, f *openmeteo.Forecast) string {
	c := f.Current
	return strings.Join([]string{
		fmt.Sprintf("## %s — Current Weather", loc.DisplayName),
		"**Conditions:** " + openmeteo.Describe(c.WeatherCode),
		fmt.Sprintf("**Temperature:** %s°C (feels like %s°C)", textfmt.Num(c.Temperature), textfmt.Num(c.ApparentTemperature)),
		fmt.Sprintf("**Humidity:** %s%%", textfmt.Num(c.RelativeHumidity)),
		fmt.Sprintf("**Wind:** %s km/h from %s° (gusts %s km/h)", textfmt.Num(c.WindSpeed), textfmt.Num(c.WindDirection), textfmt.Num(c.WindGusts)),
		fmt.Sprintf("**Pressure:** %s hPa", textfmt.Num(c.SurfacePressure)),
		fmt.Sprintf("**Cloud cover:** %s%%", textfmt.Num(c.CloudCover)),
		fmt.Sprintf("**Precipitation:** %s mm", textfmt.Num(c.Precipitation)),
		fmt.Sprintf("\n*DMI HARMONIE model, %s %s*", f.CurrentUnits["time"], c.Time),
	}, "\n")
}

func formatForecast(loc geo.Location, days int, hourly bool, f *openmeteo.Forecast) string {
	var l textfmt.Lines
	l.Add(fmt.Sprintf("## %s — %d-Day Forecast\n", loc.DisplayName, days))

	if hourly {
		h := f.Hourly
		for i, ts := range h.Time {
			l.Add(fmt.Sprintf("**%s:** %s°C (feels %s°C), %s, wind %s km/h, precip %s mm",
				openmeteo.HourLabel(ts),
				textfmt.Num(openmeteo.At(h.Temperature, i)),
				textfmt.Num(openmeteo.At(h.ApparentTemperature, i)),
				openmeteo.DescribeOrEmpty(openmeteo.At(h.WeatherCode, i)),
				textfmt.Num(openmeteo.At(h.WindSpeed, i)),
				textfmt.Num(openmeteo.At(h.Precipitation, i))))
		}
	} else {
		d := f.Daily
		for i, ts := range d.Time {
			l.Add("### "+openmeteo.DayLabel(ts),
				fmt.Sprintf("%s | %s°C to %s°C (feels %s° to %s°)",
					openmeteo.DescribeOrEmpty(openmeteo.At(d.WeatherCode, i)),
					textfmt.Num(openmeteo.At(d.TemperatureMin, i)),
					textfmt.Num(openmeteo.At(d.TemperatureMax, i)),
					textfmt.Num(openmeteo.At(d.ApparentTemperatureMin, i)),
					textfmt.Num(openmeteo.At(d.ApparentTemperatureMax, i))),
				fmt.Sprintf("Wind: up to %s km/h (gusts %s km/h) from %s°",
					textfmt.Num(openmeteo.At(d.WindSpeedMax, i)),
					textfmt.Num(openmeteo.At(d.WindGustsMax, i)),
					textfmt.Num(openmeteo.At(d.WindDirectionDominant, i))),
				fmt.Sprintf("Precipitation: %s mm | ☀️ %s — %s\n",
					textfmt.Num(openmeteo.At(d.PrecipitationSum, i)),
					openmeteo.Clock(openmeteo.At(d.Sunrise, i)),
					openmeteo.Clock(openmeteo.At(d.Sunset, i))))
		}
	}

	l.Add("*DMI HARMONIE 2km model via Open-Meteo*")
	return l.String()
}

func formatCompare(locs [2]geo.Location, data [2]*openmeteo.Forecast) string {
	c1, c2 := data[0].Current, data[1].Current
	row := func(label, a, b string) string {
		return fmt.Sprintf("| **%s** | %s | %s |", label, a, b)
	}
	return strings.Join([]string{
		"## Weather Comparison\n",
		fmt.Sprintf("| | %s | %s |", locs[0].DisplayName, locs[1].DisplayName),
		"|---|---|---|",
		row("Conditions", openmeteo.DescribeOrEmpty(c1.WeatherCode), openmeteo.DescribeOrEmpty(c2.WeatherCode)),
		row("Temperature", textfmt.Num(c1.Temperature)+"°C", textfmt.Num(c2.Temperature)+"°C"),
		row("Feels like", textfmt.Num(c1.ApparentTemperature)+"°C", textfmt.Num(c2.ApparentTemperature)+"°C"),
		row("Wind", textfmt.Num(c1.WindSpeed)+" km/h", textfmt.Num(c2.WindSpeed)+" km/h"),
		row("Cloud cover", textfmt.Num(c1.CloudCover)+"%", textfmt.Num(c2.CloudCover)+"%"),
		row("Precipitation", textfmt.Num(c1.Precipitation)+" mm", textfmt.Num(c2.Precipitation)+" mm"),
		"\n*DMI HARMONIE 2km model*",
	}, "\n")
}
