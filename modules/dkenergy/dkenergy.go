// Package dkenergy reports Danish electricity spot prices, CO2 intensity and
// the production mix from Energinet's Energi Data Service.
package dkenergy

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "dk-energy"
	Description    = "Danish energy prices & CO2 (Energi Data Service)"
	DefaultBaseURL = "https://api.energidataservice.dk/dataset"
)

// PriceAreas names the two Danish bidding zones.
var PriceAreas = map[string]string{
	"DK1": "Western Denmark (west of Storebælt)",
	"DK2": "Eastern Denmark (east of Storebælt)",
}

var areaAliases = map[string]string{}

func init() {
	for _, s := range []string{"west", "western", "jylland", "jutland", "fyn", "funen", "esbjerg", "aarhus",
		"aalborg", "odense", "herning", "vejle", "kolding", "horsens", "randers", "viborg", "silkeborg"} {
		areaAliases[s] = "DK1"
	}
	for _, s := range []string{"east", "eastern", "sjælland", "zealand", "copenhagen", "københavn", "amager",
		"roskilde", "helsingør", "hillerød", "næstved", "køge", "lolland", "falster", "bornholm"} {
		areaAliases[s] = "DK2"
	}
}

// ResolveArea maps DK1/DK2 or a region or city name to a price area.
func ResolveArea(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}
	if up := strings.ToUpper(s); up == "DK1" || up == "DK2" {
		return up, true
	}
	area, ok := areaAliases[strings.ToLower(s)]
	return area, ok
}

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{api: upstream.FromEnv("Energi Data Service", baseURL, env)}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
}

type priceRecord struct {
	HourDK       string   `json:"HourDK"`
	PriceArea    string   `json:"PriceArea"`
	SpotPriceDKK *float64 `json:"SpotPriceDKK"`
}

type co2Record struct {
	Minutes5DK  string   `json:"Minutes5DK"`
	PriceArea   string   `json:"PriceArea"`
	CO2Emission *float64 `json:"CO2Emission"`
}

type productionRecord struct {
	Minutes5DK          string   `json:"Minutes5DK"`
	PriceArea           string   `json:"PriceArea"`
	OffshoreWindPower   *float64 `json:"OffshoreWindPower"`
	OnshoreWindPower    *float64 `json:"OnshoreWindPower"`
	SolarPower          *float64 `json:"SolarPower"`
	ProductionLt100MW   *float64 `json:"ProductionLt100MW"`
	ProductionGe100MW   *float64 `json:"ProductionGe100MW"`
	ExchangeGermany     *float64 `json:"ExchangeGermany"`
	ExchangeNetherlands *float64 `json:"ExchangeNetherlands"`
	ExchangeGreatBrit   *float64 `json:"ExchangeGreatBritain"`
	ExchangeNorway      *float64 `json:"ExchangeNorway"`
	ExchangeSweden      *float64 `json:"ExchangeSweden"`
	ExchangeGreatBelt   *float64 `json:"ExchangeGreatBelt"`
}

type dataset[T any] struct {
	Records []T `json:"records"`
}

func (s *service) tools() []*core.Tool {
	areaDesc := "Price area: DK1 (western Denmark) or DK2 (eastern Denmark), or a city/region name. Default: both areas."
	return []*core.Tool{
		core.NewTool(mcp.NewTool("dk_electricity_prices",
			mcp.WithDescription("Get current and upcoming Danish electricity spot prices (Elspot). Returns hourly prices for today and tomorrow (when available). Prices include the raw spot price, not taxes/tariffs."),
			mcp.WithString("area", mcp.Description(areaDesc)),
			mcp.WithNumber("hours", mcp.Description("Number of hours to return (default: 24, max: 168 for a full week)"),
				mcp.Min(1), mcp.Max(168), mcp.DefaultNumber(24)),
		), s.prices),

		core.NewTool(mcp.NewTool("dk_co2_emissions",
			mcp.WithDescription("Get real-time CO2 emission intensity of Danish electricity production (g CO2/kWh). Updated every 5 minutes. Useful for timing energy-intensive tasks to low-carbon periods."),
			mcp.WithString("area", mcp.Description("Price area: DK1 or DK2, or a city/region name. Default: both areas.")),
			mcp.WithNumber("hours", mcp.Description("Hours of history to return (default: 1, max: 24)"),
				mcp.Min(1), mcp.Max(24), mcp.DefaultNumber(1)),
		), s.co2),

		core.NewTool(mcp.NewTool("dk_energy_mix",
			mcp.WithDescription("Get the real-time Danish electricity production mix: wind (offshore/onshore), solar, conventional, and cross-border exchange. Updated every 5 minutes."),
			mcp.WithString("area", mcp.Description("Price area: DK1 or DK2, or a city/region name. Default: both areas.")),
		), s.mix),

		core.NewTool(mcp.NewTool("dk_cheapest_hours",
			mcp.WithDescription("Find the cheapest hours to use electricity today/tomorrow. Useful for scheduling EV charging, laundry, dishwasher, heat pumps, etc."),
			mcp.WithString("area", mcp.Required(), mcp.Description("Price area: DK1 or DK2, or a city/region name.")),
			mcp.WithNumber("count", mcp.Description("Number of cheapest hours to return (default: 5)"),
				mcp.Min(1), mcp.Max(48), mcp.DefaultNumber(5)),
			mcp.WithBoolean("consecutive", mcp.Description("If true, find the cheapest consecutive block of 'count' hours (default: false)"),
				mcp.DefaultBool(false)),
		), s.cheapest),
	}
}

// fetch queries one dataset. filterArea, when set, becomes {"PriceArea": area}.
func fetch[T any](ctx context.Context, s *service, name, filterArea string, params upstream.Params) ([]T, error) {
	params["format"] = "json"
	if filterArea != "" {
		b, err := json.Marshal(map[string]string{"PriceArea": filterArea})
		if err != nil {
			return nil, err
		}
		params["filter"] = string(b)
	}
	var ds dataset[T]
	if err := s.api.Fetch(ctx, "/"+name, params, &ds); err != nil {
		return nil, err
	}
	return ds.Records, nil
}

func (s *service) prices(ctx context.Context, args core.Args) (string, error) {
	area, _ := ResolveArea(args.String("area"))
	hours := args.Int("hours", 24)
	limit := hours
	if area == "" {
		limit = hours * 2
	}

	records, err := fetch[priceRecord](ctx, s, "Elspotprices", area, upstream.Params{
		"limit": limit,
		"sort":  "HourDK desc",
		"start": "now-P1D",
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", core.NewEmptyResult("No price data available for the requested period.")
	}

	var b strings.Builder
	b.WriteString("# Danish Electricity Spot Prices\n\n")
	for _, g := range groupByArea(records, func(r priceRecord) string { return r.PriceArea }) {
		fmt.Fprintf(&b, "## %s — %s\n\n", g.area, areaName(g.area))

		var prices []float64
		for _, r := range g.records {
			if r.SpotPriceDKK != nil {
				prices = append(prices, *r.SpotPriceDKK)
			}
		}
		if len(prices) > 0 {
			lo, hi := minMax(prices)
			avg := mean(prices)
			fmt.Fprintf(&b, "**Average:** %s\n", formatPrice(&avg))
			fmt.Fprintf(&b, "**Range:** %s — %s\n\n", formatPrice(&lo), formatPrice(&hi))
		}

		b.WriteString("| Time (DK) | Price |\n|---|---|\n")
		for i, r := range g.records {
			if i == 48 {
				break
			}
			fmt.Fprintf(&b, "| %s | %s |\n", stamp(r.HourDK), formatPrice(r.SpotPriceDKK))
		}
		b.WriteString("\n")
	}
	b.WriteString("*Source: Energi Data Service (Energinet). Prices are spot prices excl. taxes, tariffs, and VAT.*\n")
	return b.String(), nil
}

func (s *service) co2(ctx context.Context, args core.Args) (string, error) {
	area, _ := ResolveArea(args.String("area"))
	hours := args.Int("hours", 1)
	limit := min(hours*12, 288)
	if area == "" {
		limit *= 2
	}

	records, err := fetch[co2Record](ctx, s, "CO2Emis", area, upstream.Params{
		"limit": limit,
		"sort":  "Minutes5DK desc",
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", core.NewEmptyResult("No CO2 emission data available.")
	}

	var b strings.Builder
	b.WriteString("# Danish CO2 Emission Intensity\n\n")
	for _, g := range groupByArea(records, func(r co2Record) string { return r.PriceArea }) {
		latest := g.records[0]
		var values []float64
		for _, r := range g.records {
			if r.CO2Emission != nil {
				values = append(values, *r.CO2Emission)
			}
		}

		fmt.Fprintf(&b, "## %s — %s\n\n", g.area, areaName(g.area))
		fmt.Fprintf(&b, "**Current:** %s g CO2/kWh (%s)\n", textfmt.NumPtr(latest.CO2Emission, "N/A"), stamp(latest.Minutes5DK))
		if len(values) > 0 {
			fmt.Fprintf(&b, "**Average (last %dh):** %s g CO2/kWh\n", hours, textfmt.Fixed(mean(values), 0))
		}
		fmt.Fprintf(&b, "**Status:** %s\n\n", co2Label(latest.CO2Emission))
	}
	b.WriteString("*Source: Energi Data Service (Energinet). Real-time 5-minute resolution.*\n")
	return b.String(), nil
}

// co2Label classifies an intensity in g/kWh. A missing reading counts as clean.
func co2Label(v *float64) string {
	var g float64
	if v != nil {
		g = *v
	}
	switch {
	case g > 300:
		return "🔴 High emissions"
	case g > 200:
		return "🟡 Moderate"
	case g > 100:
		return "🟢 Clean"
	default:
		return "🟢 Very clean"
	}
}

func (s *service) mix(ctx context.Context, args core.Args) (string, error) {
	area, _ := ResolveArea(args.String("area"))
	limit := 1
	if area == "" {
		limit = 2
	}

	records, err := fetch[productionRecord](ctx, s, "ElectricityProdex5MinRealtime", area, upstream.Params{
		"limit": limit,
		"sort":  "Minutes5DK desc",
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", core.NewEmptyResult("No production data available.")
	}

	var b strings.Builder
	b.WriteString("# Danish Electricity Production Mix\n\n")
	for _, r := range records {
		offshore, onshore, solar := val(r.OffshoreWindPower), val(r.OnshoreWindPower), val(r.SolarPower)
		small, large := val(r.ProductionLt100MW), val(r.ProductionGe100MW)
		total := small + large
		share := RenewableShare(offshore+onshore+solar, total)

		fmt.Fprintf(&b, "## %s — %s\n", r.PriceArea, areaName(r.PriceArea))
		fmt.Fprintf(&b, "*%s*\n\n", stamp(r.Minutes5DK))

		b.WriteString("### Production\n")
		b.WriteString("| Source | MW |\n|---|---|\n")
		fmt.Fprintf(&b, "| ⚡ Offshore wind | %s |\n", textfmt.Fixed(offshore, 1))
		fmt.Fprintf(&b, "| 🌬️ Onshore wind | %s |\n", textfmt.Fixed(onshore, 1))
		fmt.Fprintf(&b, "| ☀️ Solar | %s |\n", textfmt.Fixed(solar, 1))
		fmt.Fprintf(&b, "| 🏭 Large plants (≥100MW) | %s |\n", textfmt.Fixed(large, 1))
		fmt.Fprintf(&b, "| 🔧 Small plants (<100MW) | %s |\n", textfmt.Fixed(small, 1))
		fmt.Fprintf(&b, "| **Total** | **%s** |\n", textfmt.Fixed(total, 1))
		fmt.Fprintf(&b, "| **Renewable share** | **%s%%** |\n\n", textfmt.Fixed(share, 1))

		exchanges := []struct {
			name string
			mw   *float64
		}{
			{"🇩🇪 Germany", r.ExchangeGermany},
			{"🇳🇱 Netherlands", r.ExchangeNetherlands},
			{"🇬🇧 Great Britain", r.ExchangeGreatBrit},
			{"🇳🇴 Norway", r.ExchangeNorway},
			{"🇸🇪 Sweden", r.ExchangeSweden},
			{"🌉 Great Belt", r.ExchangeGreatBelt},
		}
		header := false
		for _, x := range exchanges {
			if x.mw == nil {
				continue
			}
			if !header {
				b.WriteString("### Cross-border Exchange (MW)\n")
				b.WriteString("| Connection | MW | Direction |\n|---|---|---|\n")
				header = true
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", x.name, textfmt.Fixed(math.Abs(*x.mw), 1), direction(*x.mw))
		}
		if header {
			b.WriteString("\n")
		}
	}
	b.WriteString("*Source: Energi Data Service (Energinet). Real-time 5-minute resolution.*\n")
	return b.String(), nil
}

// RenewableShare returns renewable/total as a percentage, or 0 when total is 0.
func RenewableShare(renewable, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return renewable / total * 100
}

// direction reads a signed exchange flow; positive is import.
func direction(mw float64) string {
	switch {
	case mw > 0:
		return "→ Import"
	case mw < 0:
		return "← Export"
	default:
		return "—"
	}
}

func (s *service) cheapest(ctx context.Context, args core.Args) (string, error) {
	area, ok := ResolveArea(args.String("area"))
	if !ok {
		return "Could not determine price area. Use DK1 (western Denmark) or DK2 (eastern Denmark), or a city name.", nil
	}
	count := args.Int("count", 5)
	consecutive := args.Bool("consecutive", false)

	records, err := fetch[priceRecord](ctx, s, "Elspotprices", area, upstream.Params{
		"limit": 48,
		"sort":  "HourDK asc",
		"start": "now-PT1H",
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", core.NewEmptyResult("No price data available.")
	}

	points := make([]PricePoint, 0, len(records))
	for _, r := range records {
		if r.SpotPriceDKK != nil {
			points = append(points, PricePoint{Time: r.HourDK, Price: *r.SpotPriceDKK})
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Cheapest Hours — %s (%s)\n\n", area, PriceAreas[area])

	if consecutive && count > 1 {
		start, avg, ok := CheapestWindow(points, count)
		if !ok {
			return "", core.NewEmptyResult(fmt.Sprintf("Not enough price data for a %d-hour block.", count))
		}
		block := points[start : start+count]
		fmt.Fprintf(&b, "**Best %d-hour block:**\n", count)
		fmt.Fprintf(&b, "**Start:** %s\n", stamp(block[0].Time))
		fmt.Fprintf(&b, "**End:** %s + 1h\n", stamp(block[len(block)-1].Time))
		fmt.Fprintf(&b, "**Average price:** %s\n\n", formatPrice(&avg))

		b.WriteString("| Hour | Price |\n|---|---|\n")
		for _, p := range block {
			fmt.Fprintf(&b, "| %s | %s |\n", stamp(p.Time), formatPrice(&p.Price))
		}
	} else {
		fmt.Fprintf(&b, "**%d cheapest hours:**\n\n", count)
		b.WriteString("| Rank | Hour | Price |\n|---|---|---|\n")
		for i, p := range CheapestHours(points, count) {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, stamp(p.Time), formatPrice(&p.Price))
		}
	}

	b.WriteString("\n*Prices are spot prices excl. taxes, tariffs, and VAT. Source: Energi Data Service.*\n")
	return b.String(), nil
}

type areaGroup[T any] struct {
	area    string
	records []T
}

// groupByArea groups records by price area, in order of first appearance.
func groupByArea[T any](records []T, key func(T) string) []areaGroup[T] {
	var groups []areaGroup[T]
	index := map[string]int{}
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, areaGroup[T]{area: k})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

func areaName(code string) string {
	return textfmt.Or(PriceAreas[code], code)
}

// formatPrice converts DKK/MWh to øre/kWh, keeping the raw figure alongside.
func formatPrice(dkkPerMWh *float64) string {
	if dkkPerMWh == nil {
		return "N/A"
	}
	v := *dkkPerMWh
	return fmt.Sprintf("%s øre/kWh (%s DKK/MWh)", textfmt.Fixed(v/10, 1), textfmt.Fixed(v, 1))
}

// stamp renders "2026-10-15T14:00:00" as "2026-10-15 14:00".
func stamp(ts string) string {
	if ts == "" {
		return "?"
	}
	s := strings.Replace(ts, "T", " ", 1)
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}

func val(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
