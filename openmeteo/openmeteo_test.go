package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		code int
		want string
		opt  string
	}{
		{0, "Clear sky", "Clear sky"},
		{63, "Moderate rain", "Moderate rain"},
		{99, "Thunderstorm with heavy hail", "Thunderstorm with heavy hail"},
		{4, "Code 4", ""},
		{100, "Code 100", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.code))
		assert.Equal(t, tt.opt, DescribeOrEmpty(tt.code))
	}
}

func TestAt(t *testing.T) {
	s := []float64{1.5, 2.5}
	assert.Equal(t, 2.5, At(s, 1))
	assert.Equal(t, 0.0, At(s, 2))
	assert.Equal(t, "", At([]string(nil), 0))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Thu 15 Oct 14:00", HourLabel("2026-10-15T14:00"))
	assert.Equal(t, "garbage", HourLabel("garbage"))
	assert.Equal(t, "Thursday 15 October", DayLabel("2026-10-15"))
	assert.Equal(t, "07:58", Clock("2026-10-15T07:58"))
	assert.Equal(t, "", Clock(""))
}

func TestClient_Fetch(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{
			"current_units": {"time": "iso8601"},
			"current": {"time": "2026-10-15T14:00", "temperature_2m": 11.3, "weather_code": 3, "wind_speed_10m": 18.4},
			"daily": {"time": ["2026-10-15"], "temperature_2m_max": [12.1]}
		}`))
	}))
	defer srv.Close()

	c := New(core.ModuleEnv{}, Options{
		BaseURL:  srv.URL,
		Timezone: "Europe/Copenhagen",
		Model:    "dmi_harmonie_arome_europe",
	})
	f, err := c.Fetch(context.Background(),
		geo.Location{Latitude: 55.676, Longitude: 12.568},
		Request{Current: []string{"temperature_2m", "weather_code"}, Days: 3})
	require.NoError(t, err)

	assert.Equal(t, "55.676", query["latitude"])
	assert.Equal(t, "12.568", query["longitude"])
	assert.Equal(t, "temperature_2m,weather_code", query["current"])
	assert.Equal(t, "3", query["forecast_days"])
	assert.Equal(t, "dmi_harmonie_arome_europe", query["models"])
	assert.Equal(t, "Europe/Copenhagen", query["timezone"])
	_, hasHourly := query["hourly"]
	assert.False(t, hasHourly)

	assert.Equal(t, 11.3, f.Current.Temperature)
	assert.Equal(t, 3, f.Current.WeatherCode)
	assert.Equal(t, "iso8601", f.CurrentUnits["time"])
	assert.Equal(t, []float64{12.1}, f.Daily.TemperatureMax)
}
