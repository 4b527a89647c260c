// Package nocompanies searches the Norwegian Central Coordinating Register
// for Legal Entities (Enhetsregisteret) at Brønnøysundregistrene.
package nocompanies

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "no-companies"
	Description    = "Norwegian company registry (Brønnøysund)"
	DefaultBaseURL = "https://data.brreg.no/enhetsregisteret/api"

	maxPageSize = 50
)

var (
	orgNumberPattern = regexp.MustCompile(`^\d{9}$`)
	whitespace       = regexp.MustCompile(`\s`)
)

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{api: upstream.FromEnv("Brønnøysund", baseURL, env,
				upstream.WithHeader("Accept", "application/json"))}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
}

type code struct {
	Kode        string `json:"kode"`
	Beskrivelse string `json:"beskrivelse"`
}

type address struct {
	Adresse    []string `json:"adresse"`
	Postnummer string   `json:"postnummer"`
	Poststed   string   `json:"poststed"`
	Kommune    string   `json:"kommune"`
}

type unit struct {
	Organisasjonsnummer string   `json:"organisasjonsnummer"`
	Navn                string   `json:"navn"`
	Organisasjonsform   *code    `json:"organisasjonsform"`
	Naeringskode1       *code    `json:"naeringskode1"`
	Naeringskode2       *code    `json:"naeringskode2"`
	Naeringskode3       *code    `json:"naeringskode3"`
	Sektorkode          *code    `json:"institusjonellSektorkode"`
	AntallAnsatte       *int64   `json:"antallAnsatte"`
	Stiftelsesdato      string   `json:"stiftelsesdato"`
	Registreringsdato   string   `json:"registreringsdatoEnhetsregisteret"`
	Forretningsadresse  *address `json:"forretningsadresse"`
	Postadresse         *address `json:"postadresse"`
	Beliggenhetsadresse *address `json:"beliggenhetsadresse"`
	Hjemmeside          string   `json:"hjemmeside"`
	Telefon             string   `json:"telefon"`
	Konkurs             bool     `json:"konkurs"`
	UnderAvvikling      bool     `json:"underAvvikling"`
	OverordnetEnhet     string   `json:"overordnetEnhet"`
	Mva                 bool     `json:"registrertIMvaregisteret"`
	Foretaksregisteret  bool     `json:"registrertIForetaksregisteret"`
	Frivillighetsreg    bool     `json:"registrertIFrivillighetsregisteret"`
	Stiftelsesregister  bool     `json:"registrertIStiftelsesregisteret"`
	SisteAarsregnskap   string   `json:"sisteInnsendteAarsregnskap"`
}

type page struct {
	Embedded struct {
		Enheter      []unit `json:"enheter"`
		Underenheter []unit `json:"underenheter"`
	} `json:"_embedded"`
	Page struct {
		TotalElements int64 `json:"totalElements"`
	} `json:"page"`
}

type personName struct {
	Fornavn    string `json:"fornavn"`
	Mellomnavn string `json:"mellomnavn"`
	Etternavn  string `json:"etternavn"`
}

type roles struct {
	Rollegrupper []struct {
		Type   code `json:"type"`
		Roller []struct {
			Type   code `json:"type"`
			Person *struct {
				personName
				Navn *personName `json:"navn"`
			} `json:"person"`
			Enhet *struct {
				Organisasjonsnummer string `json:"organisasjonsnummer"`
				Organisasjonsform   *code  `json:"organisasjonsform"`
			} `json:"enhet"`
			Fratraadt bool `json:"fratraadt"`
		} `json:"roller"`
	} `json:"rollegrupper"`
}

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("no_search_companies",
			mcp.WithDescription("Search Norwegian company registry (Enhetsregisteret) by name, industry, municipality, or organization form"),
			mcp.WithString("query", mcp.Description("Company name to search for")),
			mcp.WithString("municipality", mcp.Description("Municipality name (e.g., 'OSLO', 'BERGEN', 'STAVANGER')")),
			mcp.WithString("industry_code", mcp.Description("NACE industry code (e.g., '62.010' for programming)")),
			mcp.WithString("org_form", mcp.Description("Organization form code (e.g., 'AS', 'ASA', 'ENK', 'NUF')")),
			mcp.WithNumber("min_employees", mcp.Description("Minimum number of employees"), mcp.Min(0)),
			mcp.WithBoolean("active_only", mcp.Description("Only show active companies (not bankrupt/dissolved)"),
				mcp.DefaultBool(true)),
			mcp.WithNumber("limit", mcp.Description("Number of results (max 50)"),
				mcp.Min(1), mcp.DefaultNumber(10)),
		), s.search),

		core.NewTool(mcp.NewTool("no_company_lookup",
			mcp.WithDescription("Look up a Norwegian company by organization number (organisasjonsnummer). Returns detailed info."),
			mcp.WithString("org_number", mcp.Required(), mcp.Description("9-digit organization number")),
		), s.lookup),

		core.NewTool(mcp.NewTool("no_search_subunits",
			mcp.WithDescription("Search sub-units (underenheter) - branches, offices, departments of Norwegian companies"),
			mcp.WithString("parent_org_number", mcp.Description("Parent company org number to find its sub-units")),
			mcp.WithString("query", mcp.Description("Name search")),
			mcp.WithString("municipality", mcp.Description("Municipality name")),
			mcp.WithNumber("limit", mcp.Description("Number of results (max 50)"),
				mcp.Min(1), mcp.DefaultNumber(10)),
		), s.subunits),

		core.NewTool(mcp.NewTool("no_company_roles",
			mcp.WithDescription("Get roles (board members, CEO, auditor, etc.) for a Norwegian company"),
			mcp.WithString("org_number", mcp.Required(), mcp.Description("9-digit organization number")),
		), s.roles),
	}
}

func (s *service) search(ctx context.Context, args core.Args) (string, error) {
	params := upstream.Params{"size": min(args.Int("limit", 10), maxPageSize)}
	if q := args.String("query"); q != "" {
		params["navn"] = q
	}
	if m := args.String("municipality"); m != "" {
		params["kommunenummer"] = m
	}
	if c := args.String("industry_code"); c != "" {
		params["naeringskode1"] = c
	}
	if f := args.String("org_form"); f != "" {
		params["organisasjonsform"] = f
	}
	if args.Has("min_employees") {
		params["fraAntallAnsatte"] = args.Int("min_employees", 0)
	}
	if args.Bool("active_only", true) {
		params["konkurs"] = false
		params["underAvvikling"] = false
	}

	var p page
	if err := s.api.Fetch(ctx, "/enheter", params, &p); err != nil {
		return "", err
	}
	units := p.Embedded.Enheter
	if len(units) == 0 {
		return "", core.NewEmptyResult("No companies found matching your criteria.")
	}

	results := make([]string, len(units))
	for i, u := range units {
		results[i] = fmt.Sprintf("%d. %s", i+1, formatSummary(u))
	}
	return fmt.Sprintf("Found %s companies (showing %d):\n\n%s",
		textfmt.Thousands(total(p, len(units))), len(units), strings.Join(results, "\n\n")), nil
}

func (s *service) lookup(ctx context.Context, args core.Args) (string, error) {
	org := cleanOrgNumber(args.String("org_number"))
	if !orgNumberPattern.MatchString(org) {
		return "Invalid org number. Must be 9 digits.", nil
	}

	var u unit
	if err := s.api.Fetch(ctx, "/enheter/"+org, nil, &u); err != nil {
		if status, ok := core.UpstreamStatus(err); ok && status == http.StatusNotFound {
			return fmt.Sprintf("No company found with org number %s. Try searching sub-units (underenheter) instead.", org), nil
		}
		return "", err
	}
	return formatDetail(u), nil
}

func (s *service) subunits(ctx context.Context, args core.Args) (string, error) {
	params := upstream.Params{"size": min(args.Int("limit", 10), maxPageSize)}
	if parent := args.String("parent_org_number"); parent != "" {
		params["overordnetEnhet"] = cleanOrgNumber(parent)
	}
	if q := args.String("query"); q != "" {
		params["navn"] = q
	}
	if m := args.String("municipality"); m != "" {
		params["kommunenummer"] = m
	}

	var p page
	if err := s.api.Fetch(ctx, "/underenheter", params, &p); err != nil {
		return "", err
	}
	units := p.Embedded.Underenheter
	if len(units) == 0 {
		return "", core.NewEmptyResult("No sub-units found.")
	}

	results := make([]string, len(units))
	for i, u := range units {
		var l textfmt.Lines
		l.Add(
			fmt.Sprintf("%d. **%s**", i+1, u.Navn),
			"   Org.nr: "+u.Organisasjonsnummer,
			"   Parent: "+textfmt.Or(u.OverordnetEnhet, "N/A"),
		)
		if u.Naeringskode1 != nil && u.Naeringskode1.Beskrivelse != "" {
			l.Add("   Industry: " + u.Naeringskode1.Beskrivelse)
		}
		if u.AntallAnsatte != nil {
			l.Add(fmt.Sprintf("   Employees: %d", *u.AntallAnsatte))
		}
		l.Add("   Address: " + formatAddress(u.Beliggenhetsadresse))
		results[i] = l.String()
	}
	return fmt.Sprintf("Found %s sub-units (showing %d):\n\n%s",
		textfmt.Thousands(total(p, len(units))), len(units), strings.Join(results, "\n\n")), nil
}

func (s *service) roles(ctx context.Context, args core.Args) (string, error) {
	org := cleanOrgNumber(args.String("org_number"))

	var r roles
	if err := s.api.Fetch(ctx, "/enheter/"+org+"/roller", nil, &r); err != nil {
		if status, ok := core.UpstreamStatus(err); ok && status == http.StatusNotFound {
			return fmt.Sprintf("No roles found for org number %s.", org), nil
		}
		return "", err
	}
	if len(r.Rollegrupper) == 0 {
		return "", core.NewEmptyResult("No role information available for this company.")
	}

	lines := []string{fmt.Sprintf("**Roles for %s:**\n", org)}
	for _, g := range r.Rollegrupper {
		lines = append(lines, "## "+textfmt.Or(g.Type.Beskrivelse, "Unknown"))
		for _, role := range g.Roller {
			kind := textfmt.Or(role.Type.Beskrivelse, "?")
			switch {
			case role.Person != nil:
				n := role.Person.personName
				if role.Person.Navn != nil {
					n = *role.Person.Navn
				}
				resigned := ""
				if role.Fratraadt {
					resigned = " [resigned]"
				}
				lines = append(lines, fmt.Sprintf("- %s (%s)%s", joinNonEmpty(" ", n.Fornavn, n.Mellomnavn, n.Etternavn), kind, resigned))
			case role.Enhet != nil:
				form := ""
				if role.Enhet.Organisasjonsform != nil {
					form = role.Enhet.Organisasjonsform.Kode
				}
				lines = append(lines, fmt.Sprintf("- %s %s (%s)", role.Enhet.Organisasjonsnummer, form, kind))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), nil
}

func formatSummary(u unit) string {
	var l textfmt.Lines
	l.Add("**"+u.Navn+"**", "Org.nr: "+u.Organisasjonsnummer)
	if f := u.Organisasjonsform; f != nil && f.Beskrivelse != "" {
		l.Add(fmt.Sprintf("Type: %s (%s)", f.Beskrivelse, f.Kode))
	}
	if n := u.Naeringskode1; n != nil && n.Beskrivelse != "" {
		l.Add(fmt.Sprintf("Industry: %s (%s)", n.Beskrivelse, n.Kode))
	}
	if u.AntallAnsatte != nil {
		l.Add("Employees: " + textfmt.Thousands(*u.AntallAnsatte))
	}
	l.AddIf(u.Stiftelsesdato != "", "Founded: "+u.Stiftelsesdato)
	l.Add("Address: " + formatAddress(u.Forretningsadresse))
	l.AddIf(u.Hjemmeside != "", "Website: "+u.Hjemmeside)
	l.AddIf(u.Konkurs, "⚠️ BANKRUPTCY")
	l.AddIf(u.UnderAvvikling, "⚠️ UNDER DISSOLUTION")
	return l.String()
}

func formatDetail(u unit) string {
	var l textfmt.Lines
	l.Add(formatSummary(u))
	l.AddIf(u.Telefon != "", "Phone: "+u.Telefon)
	if u.Postadresse != nil {
		l.Add("Postal: " + formatAddress(u.Postadresse))
	}
	l.AddIf(u.Registreringsdato != "", "Registered: "+u.Registreringsdato)
	if u.Sektorkode != nil && u.Sektorkode.Beskrivelse != "" {
		l.Add("Sector: " + u.Sektorkode.Beskrivelse)
	}
	if u.Naeringskode2 != nil && u.Naeringskode2.Beskrivelse != "" {
		l.Add("Industry 2: " + u.Naeringskode2.Beskrivelse)
	}
	if u.Naeringskode3 != nil && u.Naeringskode3.Beskrivelse != "" {
		l.Add("Industry 3: " + u.Naeringskode3.Beskrivelse)
	}
	l.AddIf(u.Mva, "VAT registered: Yes")
	l.AddIf(u.SisteAarsregnskap != "", "Latest annual report: "+u.SisteAarsregnskap)

	var registries []string
	if u.Foretaksregisteret {
		registries = append(registries, "Business Register")
	}
	if u.Frivillighetsreg {
		registries = append(registries, "Voluntary Register")
	}
	if u.Stiftelsesregister {
		registries = append(registries, "Foundation Register")
	}
	l.AddIf(len(registries) > 0, "Registries: "+strings.Join(registries, ", "))
	return l.String()
}

func formatAddress(a *address) string {
	if a == nil {
		return "N/A"
	}
	var parts []string
	if len(a.Adresse) > 0 {
		parts = append(parts, strings.Join(a.Adresse, ", "))
	}
	if a.Postnummer != "" && a.Poststed != "" {
		parts = append(parts, a.Postnummer+" "+a.Poststed)
	}
	if a.Kommune != "" {
		parts = append(parts, "("+a.Kommune+")")
	}
	return textfmt.Or(strings.Join(parts, ", "), "N/A")
}

func total(p page, shown int) int64 {
	if p.Page.TotalElements > 0 {
		return p.Page.TotalElements
	}
	return int64(shown)
}

func cleanOrgNumber(s string) string {
	return whitespace.ReplaceAllString(s, "")
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
