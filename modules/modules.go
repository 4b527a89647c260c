// Package modules is the catalogue of every data source the server can load.
package modules

import (
	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/modules/dkaddresses"
	"github.com/itsneelabh/mcp-nordic/modules/dkcvr"
	"github.com/itsneelabh/mcp-nordic/modules/dkenergy"
	"github.com/itsneelabh/mcp-nordic/modules/dkweather"
	"github.com/itsneelabh/mcp-nordic/modules/ficompanies"
	"github.com/itsneelabh/mcp-nordic/modules/fiweather"
	"github.com/itsneelabh/mcp-nordic/modules/noaddresses"
	"github.com/itsneelabh/mcp-nordic/modules/nocompanies"
	"github.com/itsneelabh/mcp-nordic/modules/noweather"
	"github.com/itsneelabh/mcp-nordic/modules/seweather"
)

// All returns the catalogue in registration order. Tool names must stay
// unique across it.
func All() []core.Module {
	return []core.Module{
		dkcvr.Module(),
		dkaddresses.Module(),
		dkweather.Module(),
		dkenergy.Module(),
		nocompanies.Module(),
		ficompanies.Module(),
		noweather.Module(),
		seweather.Module(),
		noaddresses.Module(),
		fiweather.Module(),
	}
}

// Flags lists the catalogue's selection flags in order.
func Flags() []string {
	all := All()
	flags := make([]string, len(all))
	for i, m := range all {
		flags[i] = m.Flag
	}
	return flags
}
