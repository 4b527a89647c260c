package dkcvr

import "github.com/itsneelabh/mcp-nordic/core"

// UsageURI addresses the module's usage notes.
const UsageURI = "cvr://usage"

var usage = core.Resource{
	URI:         UsageURI,
	Name:        "cvr-usage",
	Description: "Rate limits, coverage and fields of the CVR tools",
	Text: "# Danish CVR\n\n" +
		"## Rate Limits\n" +
		"- **Free tier:** 50 lookups per day per IP\n" +
		"- Results are cached by cvrapi.dk\n\n" +
		"## Data Coverage\n" +
		"- **Denmark (dk):** Full CVR registry\n" +
		"- **Norway (no):** Brønnøysund Register Centre\n\n" +
		"## Available Tools\n" +
		"- `dk_cvr_search` — Search by name, CVR, P-number, or phone\n" +
		"- `dk_cvr_lookup` — Direct lookup by 8-digit CVR number\n\n" +
		"## Data Fields\n" +
		"Company name, CVR number, address, industry code/description, company type, employee count, " +
		"phone, email, website, founding date, owners, production units, bankruptcy status.\n\n" +
		"## Source\n" +
		"Data provided by [cvrapi.dk](https://cvrapi.dk) (free, no auth required).\n",
}
