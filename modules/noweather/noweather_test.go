package noweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	path      string
	query     url.Values
	userAgent string
}

func setup(t *testing.T, forecast string) (map[string]*core.Tool, *[]request) {
	t.Helper()
	var seen []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, request{path: r.URL.Path, query: r.URL.Query(), userAgent: r.Header.Get("User-Agent")})
		switch r.URL.Path {
		case "/complete":
			_, _ = w.Write([]byte(forecast))
		case "/search":
			_, _ = w.Write([]byte(`{"results": [{"name": "Gothenburg", "latitude": 57.7, "longitude": 11.97, "country_code": "SE"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	env := core.ModuleEnv{UserAgent: "mcp-nordic-test", GeocodingURL: srv.URL}
	tools := map[string]*core.Tool{}
	for _, tool := range New(srv.URL).Tools(env) {
		tools[tool.Name()] = tool
	}
	return tools, &seen
}

const series = `{"properties": {"timeseries": [
	{"time": "2026-10-15T12:00:00Z", "data": {
		"instant": {"details": {"air_temperature": 9.4, "relative_humidity": 81.2, "wind_speed": 4.1,
			"wind_from_direction": 225.3, "air_pressure_at_sea_level": 1012.6, "cloud_area_fraction": 75}},
		"next_1_hours": {"summary": {"symbol_code": "lightrain"}, "details": {"precipitation_amount": 0.3}},
		"next_6_hours": {"summary": {"symbol_code": "rain"}}
	}},
	{"time": "2026-10-15T13:00:00Z", "data": {
		"instant": {"details": {"air_temperature": 9.8, "wind_speed": 3.6}},
		"next_6_hours": {"summary": {"symbol_code": "partlycloudy_day"}}
	}},
	{"time": "2026-10-15T14:00:00Z", "data": {
		"instant": {"details": {"air_temperature": 10.1, "wind_speed": 3.2}}
	}}
]}}`

func TestSymbol(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"clearsky_day", "Clear sky"},
		{"fair_night", "Fair"},
		{"lightsnowshowers_polartwilight", "Light snow showers"},
		{"heavyrainshowersandthunder", "Heavy rain showers and thunder"},
		{"mystery_day", "mystery"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Symbol(tt.code))
		})
	}
}

func TestCurrentWeather(t *testing.T) {
	tools, seen := setup(t, series)

	text, err := tools["no_current_weather"].Call(context.Background(), map[string]interface{}{"location": "Bergen"})
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	r := (*seen)[0]
	assert.Equal(t, "/complete", r.path)
	assert.Equal(t, "60.3930", r.query.Get("lat"))
	assert.Equal(t, "5.3240", r.query.Get("lon"))
	assert.Equal(t, "mcp-nordic-test", r.userAgent)

	assert.Equal(t, "## Bergen — Current Weather\n"+
		"**Conditions:** Light rain\n"+
		"**Temperature:** 9.4°C\n"+
		"**Humidity:** 81.2%\n"+
		"**Wind:** 4.1 m/s from 225.3° (gusts N/A m/s)\n"+
		"**Pressure:** 1012.6 hPa\n"+
		"**Cloud cover:** 75%\n"+
		"**Precipitation (next hour):** 0.3 mm\n"+
		"\n*MET Norway Locationforecast 2.0 — 2026-10-15T12:00:00Z*", text)
}

func TestCurrentWeather_NoData(t *testing.T) {
	tools, _ := setup(t, `{"properties": {"timeseries": []}}`)

	text, err := tools["no_current_weather"].Call(context.Background(), map[string]interface{}{"location": "oslo"})
	require.Error(t, err)
	result := core.ToResult(text, err)
	assert.True(t, result.IsError)
	assert.ErrorIs(t, err, core.ErrNoData)
	assert.Equal(t, "No forecast data available", err.Error())
	assert.Equal(t, "Error: No forecast data available", result.Content[0].(mcp.TextContent).Text)
}

func TestCurrentWeather_OutsideNorway(t *testing.T) {
	tools, seen := setup(t, series)

	_, err := tools["no_current_weather"].Call(context.Background(), map[string]interface{}{"location": "Gothenburg"})
	assert.ErrorIs(t, err, core.ErrLocationNotFound)
	assert.Equal(t, `Could not find location "Gothenburg" in Norway. Try a city name or lat,lon coordinates.`, err.Error())
	for _, r := range *seen {
		assert.NotEqual(t, "/complete", r.path)
	}
}

func TestForecast(t *testing.T) {
	tools, _ := setup(t, series)

	text, err := tools["no_weather_forecast"].Call(context.Background(), map[string]interface{}{
		"location": "59.9, 10.75",
		"hours":    float64(2),
	})
	require.NoError(t, err)

	assert.Equal(t, "## 59.9°N, 10.75°E — 2h Forecast\n\n"+
		"**Thu 15 Oct 14:00:** 9.4°C, Light rain, wind 4.1 m/s, 0.3 mm\n"+
		"**Thu 15 Oct 15:00:** 9.8°C, Partly cloudy, wind 3.6 m/s\n"+
		"\n*MET Norway Locationforecast 2.0*", text)
}

func TestForecast_DefaultHours(t *testing.T) {
	tools, _ := setup(t, series)

	text, err := tools["no_weather_forecast"].Call(context.Background(), map[string]interface{}{"location": "Tromso"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "## Tromsø — 24h Forecast\n"))
	assert.Contains(t, text, "**Thu 15 Oct 16:00:** 10.1°C, Unknown, wind 3.2 m/s\n")
}

func TestForecast_HoursOutOfRange(t *testing.T) {
	tools, seen := setup(t, series)

	_, err := tools["no_weather_forecast"].Call(context.Background(), map[string]interface{}{
		"location": "oslo",
		"hours":    float64(96),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, *seen)
}
