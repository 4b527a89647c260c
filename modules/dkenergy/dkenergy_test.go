package dkenergy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheapestHours(t *testing.T) {
	points := []PricePoint{
		{"2026-10-15T00:00:00", 10},
		{"2026-10-15T01:00:00", 5},
		{"2026-10-15T02:00:00", 8},
		{"2026-10-15T03:00:00", 3},
		{"2026-10-15T04:00:00", 7},
	}

	got := CheapestHours(points, 3)
	assert.Equal(t, []PricePoint{
		{"2026-10-15T03:00:00", 3},
		{"2026-10-15T01:00:00", 5},
		{"2026-10-15T04:00:00", 7},
	}, got)
	assert.Equal(t, 10.0, points[0].Price, "input must stay in chronological order")

	assert.Len(t, CheapestHours(points, 10), 5)
}

func TestCheapestHours_TiesKeepChronologicalOrder(t *testing.T) {
	got := CheapestHours([]PricePoint{{"a", 4}, {"b", 2}, {"c", 2}, {"d", 1}}, 3)
	assert.Equal(t, []string{"d", "b", "c"}, []string{got[0].Time, got[1].Time, got[2].Time})
}

func TestCheapestWindow(t *testing.T) {
	series := func(prices ...float64) []PricePoint {
		out := make([]PricePoint, len(prices))
		for i, p := range prices {
			out[i] = PricePoint{Time: string(rune('a' + i)), Price: p}
		}
		return out
	}

	tests := []struct {
		name      string
		prices    []float64
		n         int
		wantStart int
		wantAvg   float64
		wantOK    bool
	}{
		{"monotonic increasing", []float64{1, 2, 3, 4, 5, 6}, 3, 0, 2, true},
		{"dip in the middle", []float64{9, 8, 1, 2, 9}, 2, 2, 1.5, true},
		{"first minimal window wins", []float64{1, 3, 5, 3, 1}, 2, 0, 2, true},
		{"whole series", []float64{4, 2}, 2, 0, 3, true},
		{"too few points", []float64{4, 2}, 3, 0, 0, false},
		{"zero width", []float64{4, 2}, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, avg, ok := CheapestWindow(series(tt.prices...), tt.n)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStart, start)
			assert.InDelta(t, tt.wantAvg, avg, 1e-9)
		})
	}
}

func TestRenewableShare(t *testing.T) {
	assert.Equal(t, 0.0, RenewableShare(0, 0))
	assert.Equal(t, 0.0, RenewableShare(120, 0))
	assert.InDelta(t, 75.0, RenewableShare(300, 400), 1e-9)
}

func TestResolveArea(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"dk1", "DK1", true},
		{" DK2 ", "DK2", true},
		{"Aarhus", "DK1", true},
		{"jutland", "DK1", true},
		{"København", "DK2", true},
		{"BORNHOLM", "DK2", true},
		{"Malmö", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ResolveArea(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCo2Label(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	assert.Equal(t, "🔴 High emissions", co2Label(f(301)))
	assert.Equal(t, "🟡 Moderate", co2Label(f(300)))
	assert.Equal(t, "🟢 Clean", co2Label(f(101)))
	assert.Equal(t, "🟢 Very clean", co2Label(f(100)))
	assert.Equal(t, "🟢 Very clean", co2Label(nil))
}

func setup(t *testing.T, datasets map[string]string) (map[string]*core.Tool, *[]url.Values) {
	t.Helper()
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query())
		body, ok := datasets[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"dataset not found"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	tools := map[string]*core.Tool{}
	for _, tool := range New(srv.URL).Tools(core.ModuleEnv{}) {
		tools[tool.Name()] = tool
	}
	return tools, &seen
}

const elspot = `{"records": [
	{"HourDK": "2026-10-15T00:00:00", "PriceArea": "DK1", "SpotPriceDKK": 1000},
	{"HourDK": "2026-10-15T01:00:00", "PriceArea": "DK1", "SpotPriceDKK": 500},
	{"HourDK": "2026-10-15T02:00:00", "PriceArea": "DK1", "SpotPriceDKK": 800},
	{"HourDK": "2026-10-15T03:00:00", "PriceArea": "DK1", "SpotPriceDKK": 300},
	{"HourDK": "2026-10-15T04:00:00", "PriceArea": "DK1", "SpotPriceDKK": 700},
	{"HourDK": "2026-10-15T05:00:00", "PriceArea": "DK1", "SpotPriceDKK": null}
]}`

func TestCheapestHoursTool_Ranked(t *testing.T) {
	tools, seen := setup(t, map[string]string{"Elspotprices": elspot})

	text, err := tools["dk_cheapest_hours"].Call(context.Background(), map[string]interface{}{
		"area":  "Odense",
		"count": float64(3),
	})
	require.NoError(t, err)

	q := (*seen)[0]
	assert.Equal(t, "48", q.Get("limit"))
	assert.Equal(t, "HourDK asc", q.Get("sort"))
	assert.Equal(t, "now-PT1H", q.Get("start"))
	assert.Equal(t, `{"PriceArea":"DK1"}`, q.Get("filter"))
	assert.Equal(t, "json", q.Get("format"))

	assert.Contains(t, text, "# Cheapest Hours — DK1 (Western Denmark (west of Storebælt))\n\n**3 cheapest hours:**\n\n")
	assert.Contains(t, text, "| 1 | 2026-10-15 03:00 | 30.0 øre/kWh (300.0 DKK/MWh) |\n"+
		"| 2 | 2026-10-15 01:00 | 50.0 øre/kWh (500.0 DKK/MWh) |\n"+
		"| 3 | 2026-10-15 04:00 | 70.0 øre/kWh (700.0 DKK/MWh) |\n")
}

func TestCheapestHoursTool_Consecutive(t *testing.T) {
	tools, _ := setup(t, map[string]string{"Elspotprices": elspot})

	text, err := tools["dk_cheapest_hours"].Call(context.Background(), map[string]interface{}{
		"area":        "DK1",
		"count":       float64(2),
		"consecutive": true,
	})
	require.NoError(t, err)
	assert.Contains(t, text, "**Best 2-hour block:**\n"+
		"**Start:** 2026-10-15 03:00\n"+
		"**End:** 2026-10-15 04:00 + 1h\n"+
		"**Average price:** 50.0 øre/kWh (500.0 DKK/MWh)\n")
}

func TestCheapestHoursTool_CountRange(t *testing.T) {
	tools, _ := setup(t, map[string]string{"Elspotprices": elspot})

	// The tool looks 48 hours ahead, so a count above 24 is valid
	text, err := tools["dk_cheapest_hours"].Call(context.Background(), map[string]interface{}{
		"area":  "DK1",
		"count": float64(36),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "**36 cheapest hours:**\n\n")
	assert.Contains(t, text, "| 4 | 2026-10-15 02:00 | 80.0 øre/kWh (800.0 DKK/MWh) |\n")

	_, err = tools["dk_cheapest_hours"].Call(context.Background(), map[string]interface{}{
		"area":  "DK1",
		"count": float64(49),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCheapestHoursTool_UnknownArea(t *testing.T) {
	tools, seen := setup(t, nil)

	text, err := tools["dk_cheapest_hours"].Call(context.Background(), map[string]interface{}{"area": "Oslo"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Could not determine price area."))
	assert.Empty(t, *seen)
}

func TestElectricityPrices_BothAreas(t *testing.T) {
	tools, seen := setup(t, map[string]string{"Elspotprices": `{"records": [
		{"HourDK": "2026-10-15T01:00:00", "PriceArea": "DK2", "SpotPriceDKK": 612.4},
		{"HourDK": "2026-10-15T01:00:00", "PriceArea": "DK1", "SpotPriceDKK": 580},
		{"HourDK": "2026-10-15T00:00:00", "PriceArea": "DK2", "SpotPriceDKK": 587.6}
	]}`})

	text, err := tools["dk_electricity_prices"].Call(context.Background(), map[string]interface{}{"hours": float64(2)})
	require.NoError(t, err)

	q := (*seen)[0]
	assert.Equal(t, "4", q.Get("limit"))
	assert.Empty(t, q.Get("filter"))
	assert.Equal(t, "now-P1D", q.Get("start"))

	dk2 := strings.Index(text, "## DK2 — Eastern Denmark")
	dk1 := strings.Index(text, "## DK1 — Western Denmark")
	require.True(t, dk2 >= 0 && dk1 >= 0)
	assert.Less(t, dk2, dk1, "areas appear in order of first record")

	assert.Contains(t, text, "**Average:** 60.0 øre/kWh (600.0 DKK/MWh)\n")
	assert.Contains(t, text, "**Range:** 58.8 øre/kWh (587.6 DKK/MWh) — 61.2 øre/kWh (612.4 DKK/MWh)\n")
	assert.Contains(t, text, "| 2026-10-15 01:00 | 58.0 øre/kWh (580.0 DKK/MWh) |")
}

func TestElectricityPrices_Empty(t *testing.T) {
	tools, _ := setup(t, map[string]string{"Elspotprices": `{"records": []}`})

	text, err := tools["dk_electricity_prices"].Call(context.Background(), map[string]interface{}{"area": "DK1"})
	result := core.ToResult(text, err)
	assert.False(t, result.IsError)
	assert.ErrorIs(t, err, core.ErrEmptyResult)
}

func TestCO2Emissions(t *testing.T) {
	tools, seen := setup(t, map[string]string{"CO2Emis": `{"records": [
		{"Minutes5DK": "2026-10-15T14:05:00", "PriceArea": "DK2", "CO2Emission": 212},
		{"Minutes5DK": "2026-10-15T14:00:00", "PriceArea": "DK2", "CO2Emission": 201}
	]}`})

	_, err := tools["dk_co2_emissions"].Call(context.Background(), map[string]interface{}{
		"area":  "zealand",
		"hours": float64(30),
	})
	require.Error(t, err, "hours above 24 is rejected")
	assert.Empty(t, *seen)

	text, err := tools["dk_co2_emissions"].Call(context.Background(), map[string]interface{}{"area": "zealand"})
	require.NoError(t, err)
	assert.Equal(t, "12", (*seen)[0].Get("limit"))
	assert.Contains(t, text, "**Current:** 212 g CO2/kWh (2026-10-15 14:05)\n")
	assert.Contains(t, text, "**Average (last 1h):** 207 g CO2/kWh\n")
	assert.Contains(t, text, "**Status:** 🟡 Moderate\n")
}

func TestEnergyMix(t *testing.T) {
	tools, seen := setup(t, map[string]string{"ElectricityProdex5MinRealtime": `{"records": [{
		"Minutes5DK": "2026-10-15T14:05:00", "PriceArea": "DK1",
		"OffshoreWindPower": 900, "OnshoreWindPower": 1200.25, "SolarPower": 100,
		"ProductionLt100MW": 1500, "ProductionGe100MW": 1000,
		"ExchangeGermany": -850.5, "ExchangeNorway": 400, "ExchangeGreatBelt": 0,
		"ExchangeSweden": null
	}]}`})

	text, err := tools["dk_energy_mix"].Call(context.Background(), map[string]interface{}{"area": "DK1"})
	require.NoError(t, err)
	assert.Equal(t, "1", (*seen)[0].Get("limit"))

	assert.Contains(t, text, "## DK1 — Western Denmark (west of Storebælt)\n*2026-10-15 14:05*\n\n")
	assert.Contains(t, text, "| 🌬️ Onshore wind | 1200.3 |\n")
	assert.Contains(t, text, "| **Total** | **2500.0** |\n")
	assert.Contains(t, text, "| **Renewable share** | **88.0%** |\n")
	assert.Contains(t, text, "| 🇩🇪 Germany | 850.5 | ← Export |\n")
	assert.Contains(t, text, "| 🇳🇴 Norway | 400.0 | → Import |\n")
	assert.Contains(t, text, "| 🌉 Great Belt | 0.0 | — |\n")
	assert.NotContains(t, text, "Sweden")
	assert.NotContains(t, text, "Netherlands")
}

func TestEnergyMix_NoProduction(t *testing.T) {
	tools, _ := setup(t, map[string]string{"ElectricityProdex5MinRealtime": `{"records": [
		{"Minutes5DK": "2026-10-15T14:05:00", "PriceArea": "DK2"}
	]}`})

	text, err := tools["dk_energy_mix"].Call(context.Background(), map[string]interface{}{"area": "DK2"})
	require.NoError(t, err)
	assert.Contains(t, text, "| **Renewable share** | **0.0%** |")
	assert.NotContains(t, text, "Cross-border")
}

func TestUpstreamNotFound(t *testing.T) {
	tools, _ := setup(t, nil)

	text, err := tools["dk_energy_mix"].Call(context.Background(), nil)
	result := core.ToResult(text, err)
	assert.True(t, result.IsError)
	assert.Contains(t, err.Error(), "404")
}
