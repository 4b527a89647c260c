// Package dkcvr exposes the Danish company registry (CVR) through cvrapi.dk.
// Norwegian companies are reachable through the same API with country=no.
package dkcvr

import (
	"context"
	"fmt"
	"regexp"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "dk-cvr"
	Description    = "Danish company registry (CVR/cvrapi.dk)"
	DefaultBaseURL = "https://cvrapi.dk/api"
)

// Module returns the dk-cvr module bound to the public API.
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
			s := &service{api: upstream.FromEnv("CVR", baseURL, env)}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
}

var cvrPattern = regexp.MustCompile(`^\d{8}$`)

func (s *service) tools() []*core.Tool {
	return []*core.Tool{
		core.NewTool(mcp.NewTool("dk_cvr_search",
			mcp.WithDescription("Search the Danish CVR registry for a company by name, CVR number, P-number, or phone. Returns company details including address, industry, employees, owners, and status. Also supports Norwegian companies (country=no)."),
			mcp.WithString("query", mcp.Required(),
				mcp.Description("Company name, CVR number, P-number, or phone number to search for")),
			mcp.WithString("search_type",
				mcp.Description("Specific search type. 'auto' (default) searches all fields. 'vat' = CVR number, 'name' = company name, 'produ' = P-number, 'phone' = phone number"),
				mcp.Enum("auto", "vat", "name", "produ", "phone"),
				mcp.DefaultString("auto")),
			mcp.WithString("country",
				mcp.Description("Country to search in. 'dk' = Denmark (default), 'no' = Norway"),
				mcp.Enum("dk", "no"),
				mcp.DefaultString("dk")),
		), s.search),

		core.NewTool(mcp.NewTool("dk_cvr_lookup",
			mcp.WithDescription("Look up a specific Danish company by its 8-digit CVR number. Returns full company details."),
			mcp.WithString("cvr_number", mcp.Required(),
				mcp.Description("8-digit CVR number"),
				mcp.Pattern(`^\d{8}$`)),
			mcp.WithString("country",
				mcp.Description("'dk' (default) or 'no'"),
				mcp.Enum("dk", "no"),
				mcp.DefaultString("dk")),
		), s.lookup),
	}
}

// searchParams maps a query to the cvrapi.dk parameter for searchType.
// In auto mode an 8-digit query is a CVR number, anything else a free search.
func searchParams(query, searchType, country string) upstream.Params {
	params := upstream.Params{"country": textfmt.Or(country, "dk")}
	switch {
	case searchType != "" && searchType != "auto":
		params[searchType] = query
	case cvrPattern.MatchString(query):
		params["vat"] = query
	default:
		params["search"] = query
	}
	return params
}

func (s *service) search(ctx context.Context, args core.Args) (string, error) {
	params := searchParams(args.String("query"), args.String("search_type"), args.String("country"))
	return s.fetch(ctx, params)
}

func (s *service) lookup(ctx context.Context, args core.Args) (string, error) {
	return s.fetch(ctx, upstream.Params{
		"vat":     args.String("cvr_number"),
		"country": textfmt.Or(args.String("country"), "dk"),
	})
}

func (s *service) fetch(ctx context.Context, params upstream.Params) (string, error) {
	params["version"] = "6"
	params["format"] = "json"

	var company map[string]interface{}
	if err := s.api.Fetch(ctx, "", params, &company); err != nil {
		return "", err
	}
	return formatCompany(company), nil
}

func formatCompany(d map[string]interface{}) string {
	if textfmt.Truthy(d["error"]) {
		return "Error: " + textfmt.Str(d["error"])
	}

	str := func(k string) string { return textfmt.Str(d[k]) }
	has := func(k string) bool { return textfmt.Truthy(d[k]) }

	var l textfmt.Lines
	l.Add("## "+textfmt.Or(str("name"), "N/A"), "**CVR:** "+textfmt.Or(str("vat"), "N/A"))
	l.AddIf(has("address"), fmt.Sprintf("**Address:** %s, %s %s", str("address"), str("zipcode"), str("city")))
	l.AddIf(has("cityname"), "**Area:** "+str("cityname"))
	l.AddIf(has("industrydesc"), fmt.Sprintf("**Industry:** %s (code: %s)", str("industrydesc"), str("industrycode")))
	l.AddIf(has("companycode"), fmt.Sprintf("**Company type:** %s (%s)", str("companydesc"), str("companycode")))
	l.AddIf(has("employees"), "**Employees:** "+str("employees"))
	l.AddIf(has("phone"), "**Phone:** "+str("phone"))
	l.AddIf(has("email"), "**Email:** "+str("email"))
	l.AddIf(has("url"), "**Website:** "+str("url"))
	l.AddIf(has("startdate"), "**Founded:** "+str("startdate"))
	l.AddIf(has("enddate"), "**Closed:** "+str("enddate"))
	l.AddIf(has("creditbankrupt"), fmt.Sprintf("⚠️ **BANKRUPT** (status: %s)", str("creditstatus")))

	if owners, ok := d["owners"].([]interface{}); ok && len(owners) > 0 {
		l.Add("\n**Owners:**")
		for _, o := range owners {
			owner, _ := o.(map[string]interface{})
			l.Add("- " + textfmt.Str(owner["name"]))
		}
	}

	if units, ok := d["productionunits"].([]interface{}); ok && len(units) > 0 {
		l.Add(fmt.Sprintf("\n**Production units:** %d", len(units)))
		for i, u := range units {
			if i == 5 {
				break
			}
			unit, _ := u.(map[string]interface{})
			l.Add(fmt.Sprintf("- P%s: %s (%s, %s %s)",
				textfmt.Str(unit["pno"]), textfmt.Str(unit["name"]),
				textfmt.Str(unit["address"]), textfmt.Str(unit["zipcode"]), textfmt.Str(unit["city"])))
		}
		if len(units) > 5 {
			l.Add(fmt.Sprintf("  ... and %d more", len(units)-5))
		}
	}

	return l.String()
}
