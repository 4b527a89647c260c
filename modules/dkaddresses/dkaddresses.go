// Package dkaddresses exposes Danish address data from DAWA (Danmarks
// Adressers Web API, api.dataforsyningen.dk).
package dkaddresses

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/geo"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "dk-addresses"
	Description    = "Danish addresses (DAWA)"
	DefaultBaseURL = "https://api.dataforsyningen.dk"
)

// Module returns the dk-addresses module bound to the public API.
func Module() core.Module {
	return New(DefaultBaseURL)
}

// New returns the module bound to baseURL.
func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Resources:   []core.Resource{usage},
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{api: upstream.FromEnv("DAWA", baseURL, env)}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
}

// address is the "mini" structure shared by /adresser and /adgangsadresser.
type address struct {
	ID                string  `json:"id"`
	Betegnelse        string  `json:"betegnelse"`
	Vejnavn           string  `json:"vejnavn"`
	Husnr             string  `json:"husnr"`
	Etage             string  `json:"etage"`
	Door              string  `json:"dør"`
	Postnr            string  `json:"postnr"`
	Postnrnavn        string  `json:"postnrnavn"`
	Kommunekode       string  `json:"kommunekode"`
	Supplerendebynavn string  `json:"supplerendebynavn"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
}

type postalCode struct {
	Nr       string    `json:"nr"`
	Navn     string    `json:"navn"`
	BBox     []float64 `json:"bbox"`
	Kommuner []struct {
		Kode string `json:"kode"`
		Navn string `json:"navn"`
	} `json:"kommuner"`
}

type municipality struct {
	Kode        string    `json:"kode"`
	Navn        string    `json:"navn"`
	Regionskode string    `json:"regionskode"`
	BBox        []float64 `json:"bbox"`
	Href        string    `json:"href"`
}

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("dk_address_search",
			mcp.WithDescription("Search for Danish addresses by free-text query (street name, full address, postal code + city). Returns matching addresses with coordinates. Great for autocomplete and address validation."),
			mcp.WithString("query", mcp.Required(),
				mcp.Description("Address search text, e.g. 'Nørrebrogade 1, København' or 'Ølsemagle Strand'")),
			mcp.WithNumber("limit", mcp.Description("Max results (default 10)"),
				mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(10)),
			mcp.WithString("municipality",
				mcp.Description("Filter by municipality code (e.g. '0101' for Copenhagen)")),
			mcp.WithString("postal_code",
				mcp.Description("Filter by postal code (e.g. '2200')")),
		), s.search),

		core.NewTool(mcp.NewTool("dk_reverse_geocode",
			mcp.WithDescription("Find the nearest Danish address to a given latitude/longitude coordinate. Returns the closest address with full details."),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude (WGS84), e.g. 55.676"),
				mcp.Min(54), mcp.Max(58)),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude (WGS84), e.g. 12.568"),
				mcp.Min(7), mcp.Max(16)),
		), s.reverse),

		core.NewTool(mcp.NewTool("dk_postal_code_lookup",
			mcp.WithDescription("Look up a Danish postal code to get the city/area name, bounding box, and associated municipalities."),
			mcp.WithString("postal_code", mcp.Required(),
				mcp.Description("4-digit Danish postal code, e.g. '2200'"),
				mcp.Pattern(`^\d{4}$`)),
		), s.postalCode),

		core.NewTool(mcp.NewTool("dk_municipality_lookup",
			mcp.WithDescription("Look up a Danish municipality (kommune) by code or search by name. Returns name, code, region, and geographic bounds."),
			mcp.WithString("code", mcp.Description("4-digit municipality code (e.g. '0101' for Copenhagen)")),
			mcp.WithString("name", mcp.Description("Municipality name to search (e.g. 'Solrød')")),
		), s.municipality),

		core.NewTool(mcp.NewTool("dk_nearby_addresses",
			mcp.WithDescription("Find addresses within a radius of a coordinate. Useful for exploring an area or finding what's around a location."),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Center latitude"),
				mcp.Min(54), mcp.Max(58)),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Center longitude"),
				mcp.Min(7), mcp.Max(16)),
			mcp.WithNumber("radius_meters", mcp.Description("Search radius in meters (default 200, max 5000)"),
				mcp.Min(1), mcp.Max(5000), mcp.DefaultNumber(200)),
			mcp.WithNumber("limit", mcp.Description("Max results (default 10)"),
				mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(10)),
		), s.nearby),
	}
}

func (s *service) search(ctx context.Context, args core.Args) (string, error) {
	params := upstream.Params{
		"q":        args.String("query"),
		"struktur": "mini",
		"per_side": args.Int("limit", 10),
	}
	if m := args.String("municipality"); m != "" {
		params["kommunekode"] = m
	}
	if p := args.String("postal_code"); p != "" {
		params["postnr"] = p
	}

	var results []address
	if err := s.api.Fetch(ctx, "/adresser", params, &results); err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", core.NewEmptyResult("No addresses found.")
	}

	blocks := make([]string, len(results))
	for i, a := range results {
		blocks[i] = fmt.Sprintf("### %d. %s\n%s", i+1, textfmt.Or(a.Betegnelse, "Unknown"), formatAddress(a))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (s *service) reverse(ctx context.Context, args core.Args) (string, error) {
	lat, _ := args.Float("latitude")
	lon, _ := args.Float("longitude")

	var a address
	if err := s.api.Fetch(ctx, "/adgangsadresser/reverse", upstream.Params{
		"x":        lon,
		"y":        lat,
		"struktur": "mini",
	}, &a); err != nil {
		return "", err
	}
	return formatAddress(a), nil
}

func (s *service) postalCode(ctx context.Context, args core.Args) (string, error) {
	var p postalCode
	if err := s.api.Fetch(ctx, "/postnumre/"+args.String("postal_code"), nil, &p); err != nil {
		return "", err
	}

	var l textfmt.Lines
	l.Add(fmt.Sprintf("## %s %s", p.Nr, p.Navn))
	if len(p.BBox) == 4 {
		l.Add(fmt.Sprintf("**Bounding box:** %s°N to %s°N, %s°E to %s°E",
			textfmt.Fixed(p.BBox[1], 4), textfmt.Fixed(p.BBox[3], 4),
			textfmt.Fixed(p.BBox[0], 4), textfmt.Fixed(p.BBox[2], 4)))
	}
	if len(p.Kommuner) > 0 {
		names := make([]string, len(p.Kommuner))
		for i, k := range p.Kommuner {
			names[i] = fmt.Sprintf("%s (%s)", k.Navn, k.Kode)
		}
		l.Add("**Municipalities:** " + strings.Join(names, ", "))
	}
	return l.String(), nil
}

func (s *service) municipality(ctx context.Context, args core.Args) (string, error) {
	var found []municipality

	switch code, name := args.String("code"), args.String("name"); {
	case code != "":
		var m municipality
		if err := s.api.Fetch(ctx, "/kommuner/"+code, nil, &m); err != nil {
			return "", err
		}
		found = []municipality{m}
	case name != "":
		if err := s.api.Fetch(ctx, "/kommuner", upstream.Params{"q": name}, &found); err != nil {
			return "", err
		}
	default:
		return "", core.NewInputError("Provide either code or name.")
	}

	if len(found) == 0 {
		return "", core.NewEmptyResult("No municipality found.")
	}

	blocks := make([]string, len(found))
	for i, k := range found {
		var l textfmt.Lines
		l.Add(fmt.Sprintf("## %s (%s)", k.Navn, k.Kode))
		l.AddIf(k.Regionskode != "", "**Region code:** "+k.Regionskode)
		if len(k.BBox) == 4 {
			l.Add(fmt.Sprintf("**Bounds:** %s°N to %s°N", textfmt.Fixed(k.BBox[1], 4), textfmt.Fixed(k.BBox[3], 4)))
		}
		l.AddIf(k.Href != "", "**API:** "+k.Href)
		blocks[i] = l.String()
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (s *service) nearby(ctx context.Context, args core.Args) (string, error) {
	lat, _ := args.Float("latitude")
	lon, _ := args.Float("longitude")
	radius := args.Int("radius_meters", 200)

	var results []address
	if err := s.api.Fetch(ctx, "/adgangsadresser", upstream.Params{
		"cirkel":   fmt.Sprintf("%s,%s,%d", textfmt.Num(lon), textfmt.Num(lat), radius),
		"struktur": "mini",
		"per_side": args.Int("limit", 10),
	}, &results); err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", core.NewEmptyResult("No addresses found within radius.")
	}

	lines := make([]string, len(results))
	for i, a := range results {
		dist := geo.Haversine(lat, lon, a.Y, a.X)
		lines[i] = fmt.Sprintf("%d. **%s** (%dm away)\n   %s°N, %s°E",
			i+1, a.Betegnelse, dist, textfmt.Fixed(a.Y, 6), textfmt.Fixed(a.X, 6))
	}
	return fmt.Sprintf("## Addresses within %dm\n\n%s", radius, strings.Join(lines, "\n")), nil
}

func formatAddress(a address) string {
	title := a.Betegnelse
	if title == "" {
		title = a.Vejnavn + " " + a.Husnr
	}

	var l textfmt.Lines
	l.Add("**" + title + "**")
	l.AddIf(a.Postnr != "", fmt.Sprintf("Postal: %s %s", a.Postnr, a.Postnrnavn))
	l.AddIf(a.Kommunekode != "", "Municipality code: "+a.Kommunekode)
	l.AddIf(a.Supplerendebynavn != "", "Area: "+a.Supplerendebynavn)
	l.AddIf(a.X != 0 && a.Y != 0, fmt.Sprintf("Coordinates: %s°N, %s°E", textfmt.Fixed(a.Y, 6), textfmt.Fixed(a.X, 6)))
	if a.Etage != "" {
		floor := "Floor: " + a.Etage
		if a.Door != "" {
			floor += ", door " + a.Door
		}
		l.Add(floor)
	}
	l.AddIf(a.ID != "", "ID: "+a.ID)
	return l.String()
}
