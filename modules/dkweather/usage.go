package dkweather

import "github.com/itsneelabh/mcp-nordic/core"

// UsageURI addresses the module's usage notes.
const UsageURI = "dmi://usage"

var usage = core.Resource{
	URI:         UsageURI,
	Name:        "dmi-usage",
	Description: "Model, location formats and tools of the DMI weather module",
	Text: "# Danish Weather (DMI HARMONIE)\n\n" +
		"## About\n" +
		"Uses the DMI HARMONIE AROME high-resolution (2km) weather model via Open-Meteo.\n" +
		"Free, no authentication required. Optimized for Denmark and Northern Europe.\n\n" +
		"## Tools\n" +
		"- `dk_current_weather` — Current conditions for any Danish location\n" +
		"- `dk_weather_forecast` — Hourly or daily forecast up to 16 days\n" +
		"- `dk_compare_weather` — Side-by-side comparison of two locations\n\n" +
		"## Location Formats\n" +
		"- City name: copenhagen, aarhus, odense, gilleleje\n" +
		"- Coordinates: 55.6761,12.5683\n\n" +
		"## Model\n" +
		"DMI HARMONIE AROME DINI — 2km resolution, updated every 3 hours.\n" +
		"First 2.5 days: DMI model. After: ECMWF IFS blend.\n\n" +
		"## Data Source\n" +
		"Danish Meteorological Institute via Open-Meteo.\n",
}
