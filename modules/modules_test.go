package modules

import (
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_Order(t *testing.T) {
	assert.Equal(t, []string{
		"dk-cvr", "dk-addresses", "dk-weather", "dk-energy", "no-companies",
		"fi-companies", "no-weather", "se-weather", "no-addresses", "fi-weather",
	}, Flags())
}

func TestAll_UniqueToolNames(t *testing.T) {
	seen := map[string]string{}
	total := 0
	for _, m := range All() {
		assert.NotEmpty(t, m.Description, m.Flag)
		for _, tool := range m.Tools(core.ModuleEnv{}) {
			total++
			owner, dup := seen[tool.Name()]
			assert.False(t, dup, "%s registered by %s and %s", tool.Name(), owner, m.Flag)
			seen[tool.Name()] = m.Flag
		}
	}
	assert.Equal(t, 33, total)
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  []string
	}{
		{"none loads all", nil, Flags()},
		{"all", []string{"--all"}, Flags()},
		{"single", []string{"--dk-weather"}, []string{"dk-weather"}},
		{"catalogue order wins", []string{"fi-weather", "dk-cvr"}, []string{"dk-cvr", "fi-weather"}},
		{"unknown ignored", []string{"--se-weather", "--xx-nothing"}, []string{"se-weather"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range core.SelectModules(All(), tt.flags) {
				got = append(got, m.Flag)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_SingleModule(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Modules = []string{"dk-weather"}

	srv, err := core.NewServer(cfg, All())
	require.NoError(t, err)

	assert.Equal(t, []string{"dk_compare_weather", "dk_current_weather", "dk_weather_forecast"}, srv.ToolNames())
	assert.Equal(t, "# Nordic MCP Server\n\n"+
		"One server, all Nordic data. 1 modules loaded.\n\n"+
		"## Modules\n"+
		"- **dk-weather** — Danish weather (DMI HARMONIE 2km via Open-Meteo)\n"+
		"\n## All APIs are free, no authentication required.\n", srv.Discovery())
}

func TestServer_UsageResources(t *testing.T) {
	srv, err := core.NewServer(core.DefaultConfig(), All())
	require.NoError(t, err)
	assert.Equal(t, []string{"cvr://usage", "dawa://usage", "dmi://usage", "nordic://info"}, srv.ResourceURIs())

	for _, m := range All() {
		for _, r := range m.Resources {
			assert.NotEmpty(t, r.Name, r.URI)
			for _, tool := range m.Tools(core.ModuleEnv{}) {
				assert.Contains(t, r.Text, "`"+tool.Name()+"`", "%s documents every tool", r.URI)
			}
		}
	}

	cfg := core.DefaultConfig()
	cfg.Modules = []string{"dk-energy"}
	srv, err = core.NewServer(cfg, All())
	require.NoError(t, err)
	assert.Equal(t, []string{"nordic://info"}, srv.ResourceURIs())
}
