package core

import (
	"fmt"
	"net/http"
	"strings"
)

// LoadAllFlag selects every module.
const LoadAllFlag = "all"

// ModuleEnv carries the shared, read-only dependencies every module is
// constructed with.
type ModuleEnv struct {
	HTTPClient   *http.Client
	UserAgent    string
	GeocodingURL string
	Logger       Logger
}

// Module describes one upstream data source and the tools it exposes.
type Module struct {
	// Flag selects the module on the command line (e.g. "dk-weather")
	Flag string
	// Description is the module's line in the discovery document
	Description string
	// Tools builds the module's tools from the shared environment
	Tools func(env ModuleEnv) []*Tool
	// Resources are static documents served next to the tools (optional)
	Resources []Resource
}

// Resource is a read-only markdown document a module publishes, such as
// usage notes for its tools.
type Resource struct {
	URI         string
	Name        string
	Description string
	Text        string
}

// NormalizeFlags turns command-line style arguments into a flag set:
// a leading "--" is stripped and blanks are dropped.
func NormalizeFlags(args []string) map[string]bool {
	set := make(map[string]bool, len(args))
	for _, a := range args {
		f := strings.TrimPrefix(strings.TrimSpace(a), "--")
		if f != "" {
			set[f] = true
		}
	}
	return set
}

// SelectModules returns, in catalogue order, the modules whose flag is in
// flags. No flags, or the "all" flag, selects everything. Unknown flags are
// ignored.
func SelectModules(catalogue []Module, flags []string) []Module {
	set := NormalizeFlags(flags)
	loadAll := len(set) == 0 || set[LoadAllFlag]

	selected := make([]Module, 0, len(catalogue))
	for _, m := range catalogue {
		if loadAll || set[m.Flag] {
			selected = append(selected, m)
		}
	}
	return selected
}

// DiscoveryDocument renders the nordic://info resource for the loaded modules.
func DiscoveryDocument(loaded []Module) string {
	var b strings.Builder
	b.WriteString("# Nordic MCP Server\n\n")
	fmt.Fprintf(&b, "One server, all Nordic data. %d modules loaded.\n\n", len(loaded))
	b.WriteString("## Modules\n")
	for _, m := range loaded {
		fmt.Fprintf(&b, "- **%s** — %s\n", m.Flag, m.Description)
	}
	b.WriteString("\n## All APIs are free, no authentication required.\n")
	return b.String()
}
