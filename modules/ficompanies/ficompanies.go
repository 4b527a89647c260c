// Package ficompanies searches the Finnish Trade Register through the PRH
// YTJ open data API (v3).
package ficompanies

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/internal/textfmt"
	"github.com/itsneelabh/mcp-nordic/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Flag           = "fi-companies"
	Description    = "Finnish company registry (PRH/YTJ)"
	DefaultBaseURL = "https://avoindata.prh.fi/opendata-ytj-api/v3"

	errorBodyLimit = 500
	dateLayout     = "2006-01-02"
)

// PRH language code for English descriptions.
const langEnglish = "3"

var businessIDPattern = regexp.MustCompile(`^\d{7}-\d$`)

func Module() core.Module {
	return New(DefaultBaseURL)
}

func New(baseURL string) core.Module {
	return newModule(baseURL, time.Now)
}

func newModule(baseURL string, now func() time.Time) core.Module {
	return core.Module{
		Flag:        Flag,
		Description: Description,
		Tools: func(env core.ModuleEnv) []*core.Tool {
			s := &service{
				api: upstream.FromEnv("PRH", baseURL, env,
					upstream.WithHeader("Accept", "application/json"),
					upstream.WithErrorBodyLimit(errorBodyLimit)),
				now: now,
			}
			return s.tools()
		},
	}
}

type service struct {
	api *upstream.Client
	now func() time.Time
}

type description struct {
	LanguageCode string `json:"languageCode"`
	Description  string `json:"description"`
}

type name struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	EndDate string `json:"endDate"`
}

type address struct {
	Type       string `json:"type"`
	Street     string `json:"street"`
	PostCode   string `json:"postCode"`
	PostOffice string `json:"postOffice"`
	City       string `json:"city"`
}

type typed struct {
	Type         string        `json:"type"`
	Register     string        `json:"register"`
	EndDate      string        `json:"endDate"`
	Descriptions []description `json:"descriptions"`
}

type company struct {
	BusinessID struct {
		Value            string `json:"value"`
		RegistrationDate string `json:"registrationDate"`
	} `json:"businessId"`
	EuID *struct {
		Value string `json:"value"`
	} `json:"euId"`
	Names            []name    `json:"names"`
	CompanyForms     []typed   `json:"companyForms"`
	CompanySituation []typed   `json:"companySituations"`
	RegisteredEntry  []typed   `json:"registeredEntries"`
	Addresses        []address `json:"addresses"`
	MainBusinessLine *struct {
		Descriptions []description `json:"descriptions"`
	} `json:"mainBusinessLine"`
	Website *struct {
		URL string `json:"url"`
	} `json:"website"`
	RegistrationDate    string `json:"registrationDate"`
	EndDate             string `json:"endDate"`
	TradeRegisterStatus string `json:"tradeRegisterStatus"`
}

type searchResult struct {
	TotalResults int64     `json:"totalResults"`
	Companies    []company `json:"companies"`
}

func (s *service) tools() []*core.Tool {
	page := mcp.WithNumber("page", mcp.Description("Page number (100 results per page)"),
		mcp.Min(1), mcp.DefaultNumber(1))

	return []*core.Tool{
		core.NewTool(mcp.NewTool("fi_search_companies",
			mcp.WithDescription("Search Finnish company registry (PRH/YTJ) by name, location, business ID, or company form. Free government API."),
			mcp.WithString("name", mcp.Description("Company name to search for")),
			mcp.WithString("location", mcp.Description("Town or city (e.g., 'Helsinki', 'Tampere', 'Espoo')")),
			mcp.WithString("business_id", mcp.Description("Finnish Business ID (Y-tunnus), e.g., '0112038-9'")),
			mcp.WithString("company_form", mcp.Description("Company form code: OY (ltd), OYJ (public ltd), KY (limited partnership), AY (general partnership), OK (cooperative), SÄÄ (foundation)")),
			mcp.WithString("business_line", mcp.Description("Main line of business - TOL 2008 code (e.g., '62010') or text description")),
			mcp.WithString("post_code", mcp.Description("Postal code")),
			page,
		), s.search),

		core.NewTool(mcp.NewTool("fi_company_lookup",
			mcp.WithDescription("Look up a Finnish company by Business ID (Y-tunnus). Returns detailed information including registers, addresses, and history."),
			mcp.WithString("business_id", mcp.Required(),
				mcp.Description("Finnish Business ID (Y-tunnus), e.g., '0112038-9' or '2331972-6'")),
		), s.lookup),

		core.NewTool(mcp.NewTool("fi_search_by_industry",
			mcp.WithDescription("Find Finnish companies by industry (TOL 2008 classification). Useful for market research and competitor analysis."),
			mcp.WithString("industry", mcp.Required(),
				mcp.Description("Industry - either a TOL 2008 code (e.g., '62010' for software) or descriptive text (e.g., 'software', 'restaurant')")),
			mcp.WithString("location", mcp.Description("Filter by town/city")),
			mcp.WithString("company_form", mcp.Description("Filter by company form (OY, OYJ, etc.)")),
			page,
		), s.byIndustry),

		core.NewTool(mcp.NewTool("fi_recent_registrations",
			mcp.WithDescription("Find recently registered Finnish companies. Great for tracking new business formation trends."),
			mcp.WithNumber("days_back", mcp.Description("How many days back to look (default 7)"),
				mcp.Min(1), mcp.DefaultNumber(7)),
			mcp.WithString("location", mcp.Description("Filter by town/city")),
			mcp.WithString("company_form", mcp.Description("Filter by company form (OY, OYJ, etc.)")),
			mcp.WithString("business_line", mcp.Description("Filter by industry")),
			page,
		), s.recent),
	}
}

// setIf copies the named argument into params when non-empty.
func setIf(params upstream.Params, args core.Args, arg, param string) {
	if v := args.String(arg); v != "" {
		params[param] = v
	}
}

func setPage(params upstream.Params, args core.Args) int {
	p := args.Int("page", 1)
	if p > 1 {
		params["page"] = p
	}
	return p
}

func (s *service) search(ctx context.Context, args core.Args) (string, error) {
	criteria := map[string]string{
		"name":          "name",
		"location":      "location",
		"business_id":   "businessId",
		"company_form":  "companyForm",
		"business_line": "mainBusinessLine",
		"post_code":     "postCode",
	}
	params := upstream.Params{}
	for arg, param := range criteria {
		setIf(params, args, arg, param)
	}
	if len(params) == 0 {
		return "", core.NewInputError("Please provide at least one search criterion (name, location, business_id, company_form, business_line, or post_code).")
	}
	page := setPage(params, args)

	var r searchResult
	if err := s.api.Fetch(ctx, "/companies", params, &r); err != nil {
		return "", err
	}
	if len(r.Companies) == 0 {
		return "", core.NewEmptyResult("No companies found matching your criteria.")
	}
	return fmt.Sprintf("Found %s companies (showing %d, page %d):\n\n%s",
		textfmt.Thousands(r.TotalResults), len(r.Companies), page, summaries(r.Companies)), nil
}

func (s *service) lookup(ctx context.Context, args core.Args) (string, error) {
	id := args.String("business_id")
	if !businessIDPattern.MatchString(id) {
		return "Invalid Business ID format. Expected format: 1234567-8 (7 digits, dash, check digit).", nil
	}

	var r searchResult
	if err := s.api.Fetch(ctx, "/companies", upstream.Params{"businessId": id}, &r); err != nil {
		return "", err
	}
	if len(r.Companies) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf("No company found with Business ID %s.", id))
	}
	return formatDetail(r.Companies[0]), nil
}

func (s *service) byIndustry(ctx context.Context, args core.Args) (string, error) {
	industry := args.String("industry")
	params := upstream.Params{"mainBusinessLine": industry}
	setIf(params, args, "location", "location")
	setIf(params, args, "company_form", "companyForm")
	setPage(params, args)

	var r searchResult
	if err := s.api.Fetch(ctx, "/companies", params, &r); err != nil {
		return "", err
	}
	if len(r.Companies) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf(`No companies found in industry "%s".`, industry))
	}
	return fmt.Sprintf(`Found %s companies in "%s" (showing %d):`+"\n\n%s",
		textfmt.Thousands(r.TotalResults), industry, len(r.Companies), summaries(r.Companies)), nil
}

func (s *service) recent(ctx context.Context, args core.Args) (string, error) {
	days := args.Int("days_back", 7)
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)

	params := upstream.Params{
		"registrationDateStart": start.Format(dateLayout),
		"registrationDateEnd":   end.Format(dateLayout),
	}
	setIf(params, args, "location", "location")
	setIf(params, args, "company_form", "companyForm")
	setIf(params, args, "business_line", "mainBusinessLine")
	setPage(params, args)

	var r searchResult
	if err := s.api.Fetch(ctx, "/companies", params, &r); err != nil {
		return "", err
	}
	if len(r.Companies) == 0 {
		return "", core.NewEmptyResult(fmt.Sprintf("No companies registered in the last %d days matching your criteria.", days))
	}
	return fmt.Sprintf("%s companies registered %s to %s (showing %d):\n\n%s",
		textfmt.Thousands(r.TotalResults), start.Format(dateLayout), end.Format(dateLayout),
		len(r.Companies), summaries(r.Companies)), nil
}

func summaries(companies []company) string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = fmt.Sprintf("%d. %s", i+1, formatSummary(c))
	}
	return strings.Join(out, "\n\n")
}

// currentName picks the name without an end date, preferring the trade name (type 1).
func currentName(c company) string {
	var fallback string
	for _, n := range c.Names {
		if n.EndDate != "" {
			continue
		}
		if n.Type == "1" {
			return n.Name
		}
		if fallback == "" {
			fallback = n.Name
		}
	}
	if fallback != "" {
		return fallback
	}
	if len(c.Names) > 0 && c.Names[0].Name != "" {
		return c.Names[0].Name
	}
	return "Unknown"
}

// english returns the English description, falling back to the first one.
func english(ds []description) string {
	for _, d := range ds {
		if d.LanguageCode == langEnglish {
			return d.Description
		}
	}
	if len(ds) > 0 {
		return ds[0].Description
	}
	return ""
}

func formatAddress(a *address) string {
	if a == nil {
		return ""
	}
	var parts []string
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	switch {
	case a.PostCode != "" && a.PostOffice != "":
		parts = append(parts, a.PostCode+" "+a.PostOffice)
	case a.PostCode != "":
		parts = append(parts, a.PostCode)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	return strings.Join(parts, ", ")
}

func formLabel(c company) string {
	if len(c.CompanyForms) == 0 {
		return ""
	}
	current := c.CompanyForms[0]
	for _, f := range c.CompanyForms {
		if f.EndDate == "" {
			current = f
			break
		}
	}
	return textfmt.Or(english(current.Descriptions), current.Type)
}

func situation(c company) string {
	if len(c.CompanySituation) == 0 {
		return ""
	}
	out := make([]string, len(c.CompanySituation))
	for i, s := range c.CompanySituation {
		out[i] = textfmt.Or(textfmt.Or(english(s.Descriptions), s.Type), "Unknown situation")
	}
	return strings.Join(out, ", ")
}

func formatSummary(c company) string {
	var addr string
	for i := range c.Addresses {
		if c.Addresses[i].Type == "1" {
			addr = formatAddress(&c.Addresses[i])
			break
		}
	}
	if addr == "" && len(c.Addresses) > 0 {
		addr = formatAddress(&c.Addresses[0])
	}

	var l textfmt.Lines
	l.Add("**"+currentName(c)+"**", "Business ID: "+c.BusinessID.Value)
	if form := formLabel(c); form != "" {
		l.Add("Type: " + form)
	}
	if c.MainBusinessLine != nil {
		if industry := english(c.MainBusinessLine.Descriptions); industry != "" {
			l.Add("Industry: " + industry)
		}
	}
	l.AddIf(c.RegistrationDate != "", "Registered: "+c.RegistrationDate)
	l.AddIf(addr != "", "Address: "+addr)
	if c.Website != nil && c.Website.URL != "" {
		l.Add("Website: " + c.Website.URL)
	}
	if sit := situation(c); sit != "" {
		l.Add("⚠️ " + sit)
	}
	l.AddIf(c.TradeRegisterStatus == "2", "⚠️ DEREGISTERED")
	return l.String()
}

func formatDetail(c company) string {
	var l textfmt.Lines
	l.Add(formatSummary(c))
	if c.EuID != nil && c.EuID.Value != "" {
		l.Add("EUID: " + c.EuID.Value)
	}

	for i := range c.Addresses {
		a := &c.Addresses[i]
		label := "Postal"
		if a.Type == "1" {
			label = "Street"
		}
		if s := formatAddress(a); s != "" {
			l.Add(fmt.Sprintf("%s address: %s", label, s))
		}
	}

	var registers []string
	for _, e := range c.RegisteredEntry {
		if e.EndDate == "" {
			registers = append(registers, textfmt.Or(textfmt.Or(english(e.Descriptions), e.Register), "Unknown register"))
		}
	}
	l.AddIf(len(registers) > 0, "Registers: "+strings.Join(registers, ", "))
	l.AddIf(c.BusinessID.RegistrationDate != "", "Business ID granted: "+c.BusinessID.RegistrationDate)
	l.AddIf(c.EndDate != "", "Dissolved: "+c.EndDate)

	var previous, aux []string
	for _, n := range c.Names {
		switch {
		case n.EndDate != "" && n.Type == "1":
			previous = append(previous, fmt.Sprintf("%s (until %s)", n.Name, n.EndDate))
		case n.EndDate == "" && n.Type != "1":
			aux = append(aux, n.Name)
		}
	}
	l.AddIf(len(previous) > 0, "Previous names: "+strings.Join(previous, ", "))
	l.AddIf(len(aux) > 0, "Also known as: "+strings.Join(aux, ", "))
	return l.String()
}
