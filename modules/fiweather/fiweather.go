// Package fiweather serves Finnish weather from Open-Meteo's best-match
// models, with snowfall reported wherever it is non-zero.
package fiweather

import (
	"context"
	"fmt"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/openmeteo"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"
)

const (
	Flag        = "fi-weather"
	Description = "Finnish weather (Open-Meteo)"

	timezone = "Europe/Helsinki"
)

var Gazetteer = geo.Gazetteer{
	"helsinki":      {Latitude: 60.170, Longitude: 24.941, DisplayName: "Helsinki"},
	"espoo":         {Latitude: 60.206, Longitude: 24.656, DisplayName: "Espoo"},
	"tampere":       {Latitude: 61.498, Longitude: 23.761, DisplayName: "Tampere"},
	"vantaa":        {Latitude: 60.293, Longitude: 25.044, DisplayName: "Vantaa"},
	"oulu":          {Latitude: 65.012, Longitude: 25.465, DisplayName: "Oulu"},
	"turku":         {Latitude: 60.452, Longitude: 22.267, DisplayName: "Turku"},
	"åbo":           {Latitude: 60.452, Longitude: 22.267, DisplayName: "Turku"},
	"jyväskylä":     {Latitude: 62.243, Longitude: 25.747, DisplayName: "Jyväskylä"},
	"jyvaskyla":     {Latitude: 62.243, Longitude: 25.747, DisplayName: "Jyväskylä"},
	"lahti":         {Latitude: 60.984, Longitude: 25.656, DisplayName: "Lahti"},
	"kuopio":        {Latitude: 62.893, Longitude: 27.678, DisplayName: "Kuopio"},
	"pori":          {Latitude: 61.485, Longitude: 21.797, DisplayName: "Pori"},
	"joensuu":       {Latitude: 62.601, Longitude: 29.763, DisplayName: "Joensuu"},
	"lappeenranta":  {Latitude: 61.059, Longitude: 28.187, DisplayName: "Lappeenranta"},
	"hämeenlinna":   {Latitude: 60.997, Longitude: 24.465, DisplayName: "Hämeenlinna"},
	"hameenlinna":   {Latitude: 60.997, Longitude: 24.465, DisplayName: "Hämeenlinna"},
	"vaasa":         {Latitude: 63.096, Longitude: 21.616, DisplayName: "Vaasa"},
	"seinäjoki":     {Latitude: 62.790, Longitude: 22.840, DisplayName: "Seinäjoki"},
	"seinajoki":     {Latitude: 62.790, Longitude: 22.840, DisplayName: "Seinäjoki"},
	"rovaniemi":     {Latitude: 66.500, Longitude: 25.717, DisplayName: "Rovaniemi"},
	"kokkola":       {Latitude: 63.838, Longitude: 23.130, DisplayName: "Kokkola"},
	"kotka":         {Latitude: 60.467, Longitude: 26.946, DisplayName: "Kotka"},
	"mikkeli":       {Latitude: 61.688, Longitude: 27.272, DisplayName: "Mikkeli"},
	"porvoo":        {Latitude: 60.395, Longitude: 25.665, DisplayName: "Porvoo"},
	"rauma":         {Latitude: 61.128, Longitude: 21.511, DisplayName: "Rauma"},
	"kajaani":       {Latitude: 64.227, Longitude: 27.728, DisplayName: "Kajaani"},
	"savonlinna":    {Latitude: 61.869, Longitude: 28.878, DisplayName: "Savonlinna"},
	"kouvola":       {Latitude: 60.869, Longitude: 26.704, DisplayName: "Kouvola"},
	"levi":          {Latitude: 67.800, Longitude: 24.813, DisplayName: "Levi"},
	"saariselkä":    {Latitude: 68.415, Longitude: 27.413, DisplayName: "Saariselkä"},
	"saariselka":    {Latitude: 68.415, Longitude: 27.413, DisplayName: "Saariselkä"},
	"inari":         {Latitude: 69.071, Longitude: 27.028, DisplayName: "Inari"},
	"sodankylä":     {Latitude: 67.418, Longitude: 26.590, DisplayName: "Sodankylä"},
	"sodankyla":     {Latitude: 67.418, Longitude: 26.590, DisplayName: "Sodankylä"},
	"ivalo":         {Latitude: 68.659, Longitude: 27.553, DisplayName: "Ivalo"},
	"muonio":        {Latitude: 67.923, Longitude: 23.685, DisplayName: "Muonio"},
	"enontekiö":     {Latitude: 68.394, Longitude: 23.635, DisplayName: "Enontekiö"},
	"kilpisjärvi":   {Latitude: 69.048, Longitude: 20.789, DisplayName: "Kilpisjärvi"},
	"kilpisjarvi":   {Latitude: 69.048, Longitude: 20.789, DisplayName: "Kilpisjärvi"},
	"utsjoki":       {Latitude: 69.908, Longitude: 27.028, DisplayName: "Utsjoki"},
	"hanko":         {Latitude: 59.824, Longitude: 22.969, DisplayName: "Hanko"},
	"naantali":      {Latitude: 60.468, Longitude: 22.026, DisplayName: "Naantali"},
	"mariehamn":     {Latitude: 60.097, Longitude: 19.935, DisplayName: "Mariehamn (Åland)"},
	"maarianhamina": {Latitude: 60.097, Longitude: 19.935, DisplayName: "Mariehamn (Åland)"},
}

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation",
		"weather_code", "wind_speed_10m", "wind_direction_10m", "wind_gusts_10m",
		"surface_pressure", "cloud_cover", "snowfall",
	}
	hourlyFields = []string{
		"temperature_2m", "apparent_temperature", "precipitation", "snowfall", "weather_code",
		"wind_speed_10m", "wind_gusts_10m", "cloud_cover",
	}
	dailyFields = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min",
		"apparent_temperature_max", "apparent_temperature_min", "sunrise", "sunset",
		"precipitation_sum", "snowfall_sum", "wind_speed_10m_max", "wind_gusts_10m_max",
		"wind_direction_10m_dominant",
	}
	compareFields = []string{
		"temperature_2m", "apparent_temperature", "precipitation", "snowfall", "weather_code",
		"wind_speed_10m", "cloud_cover",
	}
)

func Module() core.Module {
	return New(openmeteo.DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{
				forecast: openmeteo.New(env, openmeteo.Options{BaseURL: baseURL, Timezone: timezone}),
				resolver: &geo.Resolver{
					CountryCode: "FI",
					CountryName: "Finland",
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
		core.NewTool(mcp.NewTool("fi_current_weather",
			mcp.WithDescription("Get current weather conditions for a location in Finland. Includes temperature, wind, precipitation, humidity, and cloud cover."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Finnish city name (e.g. 'Helsinki', 'Tampere', 'Rovaniemi', 'Levi') or lat,lon coordinates")),
		), s.current),

		core.NewTool(mcp.NewTool("fi_weather_forecast",
			mcp.WithDescription("Get hourly or daily weather forecast for a location in Finland. Up to 16 days ahead."),
			mcp.WithString("location", mcp.Required(),
				mcp.Description("Finnish city name or lat,lon coordinates")),
			mcp.WithNumber("days", mcp.Description("Forecast days (default 3, max 16)"),
				mcp.Min(1), mcp.Max(16), mcp.DefaultNumber(3)),
			mcp.WithString("mode", mcp.Description("Hourly detail or daily summary (default: daily)"),
				mcp.Enum("hourly", "daily"), mcp.DefaultString("daily")),
		), s.forecastTool),

		core.NewTool(mcp.NewTool("fi_compare_weather",
			mcp.WithDescription("Compare current weather between two Finnish locations side by side."),
			mcp.WithString("location1", mcp.Required(),
				mcp.Description("First location (city name or coordinates)")),
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

	c := f.Current
	var l textfmt.Lines
	l.Add(
		fmt.Sprintf("## %s — Current Weather", loc.DisplayName),
		"**Conditions:** "+openmeteo.Describe(c.WeatherCode),
		fmt.Sprintf("**Temperature:** %s°C (feels like %s°C)", textfmt.Num(c.Temperature), textfmt.Num(c.ApparentTemperature)),
		fmt.Sprintf("**Humidity:** %s%%", textfmt.Num(c.RelativeHumidity)),
		fmt.Sprintf("**Wind:** %s km/h from %s° (gusts %s km/h)", textfmt.Num(c.WindSpeed), textfmt.Num(c.WindDirection), textfmt.Num(c.WindGusts)),
		fmt.Sprintf("**Pressure:** %s hPa", textfmt.Num(c.SurfacePressure)),
		fmt.Sprintf("**Cloud cover:** %s%%", textfmt.Num(c.CloudCover)),
		fmt.Sprintf("**Precipitation:** %s mm", textfmt.Num(c.Precipitation)),
	)
	l.AddIf(c.Snowfall > 0, fmt.Sprintf("**Snowfall:** %s cm", textfmt.Num(c.Snowfall)))
	l.Add(fmt.Sprintf("\n*Open-Meteo — %s (%s)*", c.Time, timezone))
	return l.String(), nil
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

	var l textfmt.Lines
	l.Add(fmt.Sprintf("## %s — %d-Day Forecast\n", loc.DisplayName, days))
	if hourly {
		h := f.Hourly
		for i, ts := range h.Time {
			snow := ""
			if v := openmeteo.At(h.Snowfall, i); v > 0 {
				snow = fmt.Sprintf(", snow %s cm", textfmt.Num(v))
			}
			l.Add(fmt.Sprintf("**%s:** %s°C (feels %s°C), %s, wind %s km/h, precip %s mm%s",
				openmeteo.HourLabel(ts),
				textfmt.Num(openmeteo.At(h.Temperature, i)),
				textfmt.Num(openmeteo.At(h.ApparentTemperature, i)),
				openmeteo.DescribeOrEmpty(openmeteo.At(h.WeatherCode, i)),
				textfmt.Num(openmeteo.At(h.WindSpeed, i)),
				textfmt.Num(openmeteo.At(h.Precipitation, i)),
				snow))
		}
	} else {
		d := f.Daily
		for i, ts := range d.Time {
			snow := ""
			if v := openmeteo.At(d.SnowfallSum, i); v > 0 {
				snow = fmt.Sprintf("\nSnowfall: %s cm", textfmt.Num(v))
			}
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
				fmt.Sprintf("Precipitation: %s mm%s | ☀️ %s — %s\n",
					textfmt.Num(openmeteo.At(d.PrecipitationSum, i)),
					snow,
					openmeteo.Clock(openmeteo.At(d.Sunrise, i)),
					openmeteo.Clock(openmeteo.At(d.Sunset, i))))
		}
	}
	l.Add(fmt.Sprintf("*Open-Meteo forecast (%s)*", timezone))
	return l.String(), nil
}

func (s *service) compare(ctx context.Context, args core.Args) (string, error) {
	inputs := [2]string{args.String("location1"), args.String("location2")}
	var locs [2]geo.Location
	var cur [2]openmeteo.Current

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
			locs[i], cur[i] = loc, f.Current
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	c1, c2 := cur[0], cur[1]
	row := func(label, a, b string) string {
		return fmt.Sprintf("| **%s** | %s | %s |", label, a, b)
	}
	var l textfmt.Lines
	l.Add(
		"## Weather Comparison\n",
		fmt.Sprintf("| | %s | %s |", locs[0].DisplayName, locs[1].DisplayName),
		"|---|---|---|",
		row("Conditions", openmeteo.DescribeOrEmpty(c1.WeatherCode), openmeteo.DescribeOrEmpty(c2.WeatherCode)),
		row("Temperature", textfmt.Num(c1.Temperature)+"°C", textfmt.Num(c2.Temperature)+"°C"),
		row("Feels like", textfmt.Num(c1.ApparentTemperature)+"°C", textfmt.Num(c2.ApparentTemperature)+"°C"),
		row("Wind", textfmt.Num(c1.WindSpeed)+" km/h", textfmt.Num(c2.WindSpeed)+" km/h"),
		row("Cloud cover", textfmt.Num(c1.CloudCover)+"%", textfmt.Num(c2.CloudCover)+"%"),
		row("Precipitation", textfmt.Num(c1.Precipitation)+" mm", textfmt.Num(c2.Precipitation)+" mm"),
	)
	l.AddIf(c1.Snowfall > 0 || c2.Snowfall > 0,
		row("Snowfall", textfmt.Num(c1.Snowfall)+" cm", textfmt.Num(c2.Snowfall)+" cm"))
	l.Add("\n*Open-Meteo*")
	return l.String(), nil
}
