// Package nordic carries the build information of the mcp-nordic server.
package nordic

// Version information for the Nordic MCP server
const (
	// Version is the released server version
	Version = "0.2.1"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
