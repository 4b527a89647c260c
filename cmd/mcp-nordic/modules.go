package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/modules"
	"github.com/spf13/cobra"
)

func newModulesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the available modules and their tools",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printModules(a.out, modules.All())
		},
	}
}

// printModules writes one line per module (flag, description) followed by
// its tool names.
func printModules(out io.Writer, catalogue []core.Module) {
	flagColor := color.New(color.FgCyan, color.Bold)
	toolColor := color.New(color.Faint)

	width := 0
	for _, m := range catalogue {
		width = max(width, len(m.Flag))
	}

	fmt.Fprintf(out, "Available modules (%d):\n\n", len(catalogue))
	for _, m := range catalogue {
		flagColor.Fprintf(out, "  --%-*s", width, m.Flag)
		fmt.Fprintf(out, "  %s\n", m.Description)
		for _, t := range m.Tools(core.ModuleEnv{}) {
			toolColor.Fprintf(out, "      %s\n", t.Name())
		}
	}
	fmt.Fprintf(out, "\nNo module flags (or --%s) loads every module.\n", core.LoadAllFlag)
}
