package dkaddresses

import "github.com/itsneelabh/mcp-nordic/core"

// UsageURI addresses the module's usage notes.
const UsageURI = "dawa://usage"

var usage = core.Resource{
	URI:         UsageURI,
	Name:        "dawa-usage",
	Description: "What the DAWA address tools cover",
	Text: "# Danish Addresses (DAWA)\n\n" +
		"## About\n" +
		"Uses Danmarks Adressers Web API (DAWA) from Dataforsyningen.\n" +
		"Free, no authentication required. Covers all Danish addresses.\n\n" +
		"## Tools\n" +
		"- `dk_address_search` — Free-text address search with optional municipality/postal filters\n" +
		"- `dk_reverse_geocode` — Coordinates → nearest address\n" +
		"- `dk_postal_code_lookup` — Postal code → city, municipalities, bounds\n" +
		"- `dk_municipality_lookup` — Municipality info by code or name search\n" +
		"- `dk_nearby_addresses` — Find addresses within a radius of a point\n\n" +
		"## Rate Limits\n" +
		"No hard rate limit but be reasonable. Data updated daily.\n\n" +
		"## Source\n" +
		"[DAWA Documentation](https://dawadocs.dataforsyningen.dk/)\n",
}
