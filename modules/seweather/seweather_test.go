package seweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 15, 12, 20, 0, 0, time.UTC)

func setup(t *testing.T, status int, body string) (map[string]*core.Tool, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/search" {
			_, _ = w.Write([]byte(`{"results": [{"name": "Oslo", "latitude": 59.91, "longitude": 10.75, "country_code": "NO"}]}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	env := core.ModuleEnv{GeocodingURL: srv.URL}
	tools := map[string]*core.Tool{}
	for _, tool := range newModule(srv.URL, func() time.Time { return fixedNow }).Tools(env) {
		tools[tool.Name()] = tool
	}
	return tools, &paths
}

const series = `{"timeSeries": [
	{"validTime": "2026-10-15T11:00:00Z", "parameters": [
		{"name": "t", "values": [8.1]}, {"name": "Wsymb2", "values": [1]}, {"name": "ws", "values": [2]}
	]},
	{"validTime": "2026-10-15T12:00:00Z", "parameters": [
		{"name": "t", "values": [9.3]}, {"name": "ws", "values": [3.4]}, {"name": "gust", "values": [7.9]},
		{"name": "wd", "values": [240]}, {"name": "r", "values": [78]}, {"name": "msl", "values": [1015.2]},
		{"name": "tcc_mean", "values": [5]}, {"name": "Wsymb2", "values": [18]}, {"name": "pmean", "values": [0.4]}
	]},
	{"validTime": "2026-10-15T13:00:00Z", "parameters": [
		{"name": "t", "values": [9.9]}, {"name": "ws", "values": [3.1]}, {"name": "Wsymb2", "values": [3]},
		{"name": "pmean", "values": [0]}
	]},
	{"validTime": "2026-10-16T13:00:00Z", "parameters": [
		{"name": "t", "values": [6]}, {"name": "ws", "values": [1]}, {"name": "Wsymb2", "values": [6]}
	]}
]}`

func TestSymbol(t *testing.T) {
	code := func(v float64) *float64 { return &v }
	assert.Equal(t, "Clear sky", Symbol(code(1)))
	assert.Equal(t, "Heavy snowfall", Symbol(code(27)))
	assert.Equal(t, "", Symbol(code(99)))
	assert.Equal(t, "", Symbol(nil))
}

func TestClosest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var entries []entry
	for i := 0; i < 15; i++ {
		entries = append(entries, entry{ValidTime: base.Add(time.Duration(i) * time.Hour)})
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", base.Add(-5 * time.Hour), base},
		{"nearest", base.Add(3*time.Hour + 10*time.Minute), base.Add(3 * time.Hour)},
		{"window ends at tenth entry", base.Add(14 * time.Hour), base.Add(9 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, closest(entries, tt.now).ValidTime)
		})
	}
}

func TestCurrentWeather(t *testing.T) {
	tools, paths := setup(t, http.StatusOK, series)

	text, err := tools["se_current_weather"].Call(context.Background(), map[string]interface{}{"location": "Stockholm"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lon/18.069000/lat/59.329000/data.json"}, *paths)

	assert.Equal(t, "## Stockholm — Current Weather\n"+
		"**Conditions:** Light rain\n"+
		"**Temperature:** 9.3°C\n"+
		"**Humidity:** 78%\n"+
		"**Wind:** 3.4 m/s from 240° (gusts 7.9 m/s)\n"+
		"**Pressure:** 1015.2 hPa\n"+
		"**Cloud cover:** 63%\n"+
		"**Precipitation:** 0.4 mm/h\n"+
		"\n*SMHI — 2026-10-15T12:00:00Z*", text)
}

func TestCurrentWeather_UnknownCode(t *testing.T) {
	tools, _ := setup(t, http.StatusOK, `{"timeSeries": [{"validTime": "2026-10-15T12:00:00Z", "parameters": [{"name": "Wsymb2", "values": [42]}]}]}`)

	text, err := tools["se_current_weather"].Call(context.Background(), map[string]interface{}{"location": "lund"})
	require.NoError(t, err)
	assert.Contains(t, text, "**Conditions:** Code 42\n")
	assert.Contains(t, text, "**Cloud cover:** N/A")
	assert.NotContains(t, text, "Precipitation")
}

func TestCurrentWeather_NoData(t *testing.T) {
	tools, _ := setup(t, http.StatusOK, `{"timeSeries": []}`)

	_, err := tools["se_current_weather"].Call(context.Background(), map[string]interface{}{"location": "kiruna"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoData)
	assert.False(t, core.IsRetryable(err))
	result := core.ToResult("", err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: No forecast data", result.Content[0].(mcp.TextContent).Text)
}

func TestCurrentWeather_OutsideSweden(t *testing.T) {
	tools, paths := setup(t, http.StatusOK, series)

	_, err := tools["se_current_weather"].Call(context.Background(), map[string]interface{}{"location": "Oslo"})
	assert.ErrorIs(t, err, core.ErrLocationNotFound)
	assert.Equal(t, []string{"/search"}, *paths)
}

func TestForecast(t *testing.T) {
	tools, _ := setup(t, http.StatusOK, series)

	text, err := tools["se_weather_forecast"].Call(context.Background(), map[string]interface{}{"location": "57.7, 11.97"})
	require.NoError(t, err)
	assert.Equal(t, "## 57.7°N, 11.97°E — 24h Forecast\n\n"+
		"**Thu 15 Oct 14:00:** 9.3°C, Light rain, wind 3.4 m/s, 0.4 mm/h\n"+
		"**Thu 15 Oct 15:00:** 9.9°C, Variable cloudiness, wind 3.1 m/s\n"+
		"\n*SMHI Open Data*", text)
}

func TestForecast_UpstreamError(t *testing.T) {
	tools, _ := setup(t, http.StatusNotFound, `{"error": "out of area"}`)

	_, err := tools["se_weather_forecast"].Call(context.Background(), map[string]interface{}{"location": "malmo"})
	require.Error(t, err)
	assert.Equal(t, `SMHI API error (404): {"error": "out of area"}`, err.Error())
	assert.False(t, core.IsRetryable(err))
}
