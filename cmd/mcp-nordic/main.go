// Command mcp-nordic serves the Nordic public-data tools over MCP.
//
// Usage:
//
//	mcp-nordic                             # stdio, every module
//	mcp-nordic --dk-weather --dk-energy    # stdio, two modules
//	mcp-nordic --transport http --port 8080
//	mcp-nordic modules                     # list available modules
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Args[1:]).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
