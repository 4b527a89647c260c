// Package noaddresses looks up Norwegian addresses in Kartverket's Geonorge
// Adresser API v1.
package noaddresses

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "no-addresses"
	Description    = "Norwegian addresses (Kartverket)"
	DefaultBaseURL = "https://ws.geonorge.no/adresser/v1"
)

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{api: upstream.FromEnv("Kartverket", baseURL, env)}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
}

type address struct {
	Adressetekst         string   `json:"adressetekst"`
	Adressetilleggsnavn  string   `json:"adressetilleggsnavn"`
	Postnummer           string   `json:"postnummer"`
	Poststed             string   `json:"poststed"`
	Kommunenavn          string   `json:"kommunenavn"`
	Kommunenummer        string   `json:"kommunenummer"`
	Objtype              string   `json:"objtype"`
	Gardsnummer          *int     `json:"gardsnummer"`
	Bruksnummer          *int     `json:"bruksnummer"`
	Festenummer          int      `json:"festenummer"`
	Bruksenhetsnummer    []string `json:"bruksenhetsnummer"`
	Oppdateringsdato     string   `json:"oppdateringsdato"`
	MeterDistanse        *float64 `json:"meterDistanseTilPunkt"`
	Representasjonspunkt *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"representasjonspunkt"`
}

type searchResult struct {
	Metadata struct {
		TotaltAntallTreff int `json:"totaltAntallTreff"`
	} `json:"metadata"`
	Adresser []address `json:"adresser"`
}

func (s *service) tools() []*core.Tool {
	limit := mcp.WithNumber("limit", mcp.Description("Max results (default 10, max 50)"),
		mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(10))

	return []*core.Tool{
		core.NewTool(mcp.NewTool("no_address_search",
			mcp.WithDescription("Search for Norwegian addresses by text query. Supports street names, full addresses, postal codes, and municipality filtering."),
			mcp.WithString("query", mcp.Required(),
				mcp.Description("Address search query (e.g. 'Karl Johans gate 1', 'Storgata Oslo', 'Bryggen Bergen')")),
			mcp.WithString("postal_code", mcp.Description("Filter by postal code (4 digits, e.g. '0154')")),
			mcp.WithString("municipality", mcp.Description("Filter by municipality name (e.g. 'OSLO', 'BERGEN', 'TRONDHEIM')")),
			limit,
			mcp.WithBoolean("fuzzy", mcp.Description("Enable fuzzy matching for misspellings (default false)"),
				mcp.DefaultBool(false)),
		), s.search),

		core.NewTool(mcp.NewTool("no_reverse_geocode",
			mcp.WithDescription("Find Norwegian addresses near a geographic point (reverse geocoding). Returns addresses within the specified radius."),
			mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude (WGS84, e.g. 59.911 for Oslo)")),
			mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude (WGS84, e.g. 10.750 for Oslo)")),
			mcp.WithNumber("radius", mcp.Description("Search radius in meters (default 100, max 10000)"),
				mcp.Min(1), mcp.Max(10000), mcp.DefaultNumber(100)),
			limit,
		), s.reverse),

		core.NewTool(mcp.NewTool("no_postal_code_lookup",
			mcp.WithDescription("List addresses in a Norwegian postal code area. Useful for exploring what's in a given postal district."),
			mcp.WithString("postal_code", mcp.Required(),
				mcp.Description("Norwegian postal code (4 digits, e.g. '0154', '5003', '7010')")),
			mcp.WithString("street", mcp.Description("Optional street name filter within the postal code area")),
			limit,
		), s.postalCode),

		core.NewTool(mcp.NewTool("no_municipality_addresses",
			mcp.WithDescription("List addresses in a Norwegian municipality. Can filter by street name."),
			mcp.WithString("municipality", mcp.Required(),
				mcp.Description("Municipality name (e.g. 'OSLO', 'BERGEN', 'TRONDHEIM', 'STAVANGER', 'TROMSØ')")),
			mcp.WithString("street", mcp.Description("Optional street name filter")),
			limit,
		), s.municipality),
	}
}

func (s *service) search(ctx context.Context, args core.Args) (string, error) {
	query := args.String("query")
	params := upstream.Params{
		"sok":          query,
		"treffPerSide": args.Int("limit", 10),
	}
	if p := args.String("postal_code"); p != "" {
		params["postnummer"] = p
	}
	if m := args.String("municipality"); m != "" {
		params["kommunenavn"] = m
	}
	if args.Bool("fuzzy", false) {
		params["fuzzy"] = "true"
	}

	var r searchResult
	if err := s.api.Fetch(ctx, "/sok", params, &r); err != nil {
		return "", err
	}
	if len(r.Adresser) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf(`No addresses found for "%s".`, query))
	}
	total := r.Metadata.TotaltAntallTreff
	return listing(
		fmt.Sprintf(`## Address Search: "%s" (%d total results)`, query, total),
		r.Adresser, nil,
		fmt.Sprintf("*Kartverket Adresser API — showing %d of %d*", len(r.Adresser), total),
	), nil
}

func (s *service) reverse(ctx context.Context, args core.Args) (string, error) {
	lat, _ := args.Float("lat")
	lon, _ := args.Float("lon")
	radius := args.Int("radius", 100)

	var r searchResult
	if err := s.api.Fetch(ctx, "/punktsok", upstream.Params{
		"lat":          lat,
		"lon":          lon,
		"radius":       radius,
		"treffPerSide": args.Int("limit", 10),
	}, &r); err != nil {
		return "", err
	}
	if len(r.Adresser) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf("No addresses found within %dm of %s, %s.", radius, textfmt.Num(lat), textfmt.Num(lon)))
	}

	distance := func(a address) string {
		if a.MeterDistanse == nil {
			return ""
		}
		return fmt.Sprintf("Distance: %dm", int(math.Round(*a.MeterDistanse)))
	}
	return listing(
		fmt.Sprintf("## Addresses near %s°N, %s°E (%dm radius, %d total)",
			textfmt.Fixed(lat, 4), textfmt.Fixed(lon, 4), radius, r.Metadata.TotaltAntallTreff),
		r.Adresser, distance,
		"*Kartverket Adresser API*",
	), nil
}

func (s *service) postalCode(ctx context.Context, args core.Args) (string, error) {
	code := args.String("postal_code")
	params := upstream.Params{
		"postnummer":   code,
		"treffPerSide": args.Int("limit", 10),
	}
	if street := args.String("street"); street != "" {
		params["adressenavn"] = street
	}

	var r searchResult
	if err := s.api.Fetch(ctx, "/sok", params, &r); err != nil {
		return "", err
	}
	if len(r.Adresser) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf("No addresses found for postal code %s.", code))
	}
	total := r.Metadata.TotaltAntallTreff
	return listing(
		fmt.Sprintf("## Postal Code %s %s (%d addresses total)", code, r.Adresser[0].Poststed, total),
		r.Adresser, nil,
		fmt.Sprintf("*Kartverket Adresser API — showing %d of %d*", len(r.Adresser), total),
	), nil
}

func (s *service) municipality(ctx context.Context, args core.Args) (string, error) {
	name := args.String("municipality")
	params := upstream.Params{
		"kommunenavn":  name,
		"treffPerSide": args.Int("limit", 10),
	}
	if street := args.String("street"); street != "" {
		params["adressenavn"] = street
	}

	var r searchResult
	if err := s.api.Fetch(ctx, "/sok", params, &r); err != nil {
		return "", err
	}
	if len(r.Adresser) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf(`No addresses found in municipality "%s".`, name))
	}
	total := r.Metadata.TotaltAntallTreff
	return listing(
		fmt.Sprintf("## Addresses in %s (%d total)", name, total),
		r.Adresser, nil,
		fmt.Sprintf("*Kartverket Adresser API — showing %d of %d*", len(r.Adresser), total),
	), nil
}

// listing renders a header, one block per address separated by blank lines,
// and a footer. extra, when set, may append one line to each block.
func listing(header string, addrs []address, extra func(address) string, footer string) string {
	lines := []string{header + "\n"}
	for _, a := range addrs {
		lines = append(lines, formatAddress(a))
		if extra != nil {
			if line := extra(a); line != "" {
				lines = append(lines, line)
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines, footer)
	return strings.Join(lines, "\n")
}

func formatAddress(a address) string {
	var l textfmt.Lines
	l.Add("**" + a.Adressetekst + "**")
	l.AddIf(a.Postnummer != "", fmt.Sprintf("Postal: %s %s", a.Postnummer, a.Poststed))
	l.Add(fmt.Sprintf("Municipality: %s (%s)", a.Kommunenavn, a.Kommunenummer))
	l.Add("Type: " + textfmt.Or(a.Objtype, "unknown"))
	if a.Gardsnummer != nil {
		cadastral := fmt.Sprintf("Cadastral: gnr. %d / bnr. %s", *a.Gardsnummer, intOr(a.Bruksnummer, "?"))
		if a.Festenummer != 0 {
			cadastral += fmt.Sprintf(" / fnr. %d", a.Festenummer)
		}
		l.Add(cadastral)
	}
	if p := a.Representasjonspunkt; p != nil {
		l.Add(fmt.Sprintf("Coordinates: %s°N, %s°E", textfmt.Fixed(p.Lat, 6), textfmt.Fixed(p.Lon, 6)))
	}
	l.AddIf(a.Adressetilleggsnavn != "", "Additional name: "+a.Adressetilleggsnavn)
	if n := len(a.Bruksenhetsnummer); n > 0 {
		shown := a.Bruksenhetsnummer[:min(n, 5)]
		more := ""
		if n > 5 {
			more = "…"
		}
		l.Add(fmt.Sprintf("Units: %d (%s%s)", n, strings.Join(shown, ", "), more))
	}
	if a.Oppdateringsdato != "" {
		date, _, _ := strings.Cut(a.Oppdateringsdato, "T")
		l.Add("Updated: " + date)
	}
	return l.String()
}

func intOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprint(*v)
}
