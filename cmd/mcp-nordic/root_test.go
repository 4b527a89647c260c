package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	nordic "github.com/itsneelabh/mcp-nordic"
	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*core.Config, error) {
	t.Helper()
	a := newApp(&bytes.Buffer{}, args)
	root := a.command()
	require.NoError(t, root.ParseFlags(args))
	return a.config(root.Flags(), root.Flags().Args())
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, core.TransportStdio, cfg.Transport)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.Modules)
	assert.Equal(t, nordic.Version, cfg.Version)
	assert.Equal(t, "mcp-nordic/0.2.1 (github.com/itsneelabh/mcp-nordic)", cfg.Upstream.UserAgent)
}

func TestConfig_Flags(t *testing.T) {
	cfg, err := parse(t, "--transport", "http", "--port", "9090", "--log-level", "debug", "--dk-weather", "--no-companies")
	require.NoError(t, err)

	assert.Equal(t, core.TransportHTTP, cfg.Transport)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.ElementsMatch(t, []string{"dk-weather", "no-companies"}, cfg.Modules)
}

func TestConfig_EnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("NORDIC_PORT", "7070")
	t.Setenv("NORDIC_LOG_FORMAT", "json")

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "json", cfg.Logging.Format)

	cfg, err = parse(t, "--port", "9191")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nordic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: http\nport: 8181\nmodules: [fi-weather]\n"), 0o600))

	cfg, err := parse(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, core.TransportHTTP, cfg.Transport)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, []string{"fi-weather"}, cfg.Modules)

	cfg, err = parse(t, "--config", path, "--se-weather")
	require.NoError(t, err)
	assert.Equal(t, []string{"se-weather"}, cfg.Modules)
}

func loadedFlags(cfg *core.Config) []string {
	flags := []string{}
	for _, m := range core.SelectModules(modules.All(), cfg.Modules) {
		flags = append(flags, m.Flag)
	}
	return flags
}

func TestConfig_ModuleSelection(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no flags", nil, modules.Flags()},
		{"positional after separator", []string{"--", "--fi-weather", "dk-cvr"}, []string{"dk-cvr", "fi-weather"}},
		{"unknown flag ignored", []string{"--xx-nothing", "--dk-cvr"}, []string{"dk-cvr"}},
		{"only unknown", []string{"--xx-nothing"}, []string{}},
		{"only unknown with value", []string{"--xx-nothing=1", "--port", "9090"}, []string{}},
		{"settings alone load everything", []string{"--transport", "http", "--port", "9090"}, modules.Flags()},
		{"all", []string{"--all"}, modules.Flags()},
		{"all with unknown", []string{"--all", "--xx-nothing"}, modules.Flags()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loadedFlags(cfg))
		})
	}
}

func TestConfig_OnlyUnknownFlagLoadsNoTools(t *testing.T) {
	cfg, err := parse(t, "--xx-nothing")
	require.NoError(t, err)
	assert.Equal(t, []string{"xx-nothing"}, cfg.Modules)

	srv, err := core.NewServer(cfg, modules.All(), core.WithLogger(&core.NoOpLogger{}))
	require.NoError(t, err)
	assert.Empty(t, srv.Modules())
	assert.Empty(t, srv.Tools())
}

func TestUnknownFlags(t *testing.T) {
	root := newApp(&bytes.Buffer{}, nil).command()
	require.NoError(t, root.ParseFlags(nil))
	got := unknownFlags(root.Flags(), []string{"--dk-cvr", "--xx", "--yy=2", "-z", "serve", "--port", "1", "--", "--zz"})
	assert.Equal(t, []string{"xx", "yy"}, got)
}

func TestConfig_InvalidTransport(t *testing.T) {
	_, err := parse(t, "--transport", "carrier-pigeon")
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestModulesCommand(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	root := newRootCommand(&out, []string{"modules"})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "Available modules (10):\n\n")
	assert.Contains(t, text, "  --dk-cvr        Danish company registry (CVR/cvrapi.dk)\n")
	assert.Contains(t, text, "      dk_cheapest_hours\n")
	assert.Contains(t, text, "\nNo module flags (or --all) loads every module.\n")
	for _, flag := range modules.Flags() {
		assert.Contains(t, text, "--"+flag)
	}
}
