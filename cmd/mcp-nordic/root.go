package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	nordic "github.com/itsneelabh/mcp-nordic"
	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/itsneelabh/mcp-nordic/modules"
	"github.com/itsneelabh/mcp-nordic/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app holds the per-invocation CLI state. Each root command gets its own
// viper instance so tests can build commands side by side.
type app struct {
	v   *viper.Viper
	out io.Writer
	// argv is the raw command line. pflag drops unknown flags, but they
	// still count towards module selection.
	argv []string
}

// Keys bound to both a flag and a NORDIC_* variable, mapped to the option
// that applies them.
var settings = []struct {
	key   string
	apply func(v *viper.Viper) core.Option
}{
	{"transport", func(v *viper.Viper) core.Option { return core.WithTransport(v.GetString("transport")) }},
	{"port", func(v *viper.Viper) core.Option { return core.WithPort(v.GetInt("port")) }},
	{"address", func(v *viper.Viper) core.Option { return core.WithAddress(v.GetString("address")) }},
	{"log-level", func(v *viper.Viper) core.Option { return core.WithLogLevel(v.GetString("log-level")) }},
	{"log-format", func(v *viper.Viper) core.Option { return core.WithLogFormat(v.GetString("log-format")) }},
	{"user-agent", func(v *viper.Viper) core.Option { return core.WithUserAgent(v.GetString("user-agent")) }},
	{"redis-url", func(v *viper.Viper) core.Option { return core.WithRedisURL(v.GetString("redis-url")) }},
}

func newRootCommand(out io.Writer, argv []string) *cobra.Command {
	root := newApp(out, argv).command()
	root.SetArgs(argv)
	return root
}

func newApp(out io.Writer, argv []string) *app {
	return &app{v: viper.New(), out: out, argv: argv}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcp-nordic [--module ...]",
		Short: "mcp-nordic — one MCP server for free Nordic public data",
		Long: `mcp-nordic serves tools over Danish, Norwegian, Swedish and Finnish public APIs
(company registries, addresses, weather, energy prices) to MCP clients.

Pass one or more module flags (e.g. --dk-weather --no-companies) to load only
those modules. Without module flags, or with --all, every module is loaded.`,
		Version:       nordic.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Unknown --flags are treated like unknown module flags: ignored.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd, args)
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (JSON or YAML)")
	flags.String("transport", core.TransportStdio, "transport: stdio or http")
	flags.Int("port", 8080, "HTTP port (http transport)")
	flags.String("address", "0.0.0.0", "HTTP listen address (http transport)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("user-agent", "", "User-Agent sent to upstream APIs")
	flags.String("redis-url", "", "register this server in a Redis service registry")

	root.Flags().Bool(core.LoadAllFlag, false, "load every module")
	for _, m := range modules.All() {
		root.Flags().Bool(m.Flag, false, m.Description)
	}

	a.v.SetEnvPrefix("NORDIC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	serve := &cobra.Command{
		Use:                "serve [--module ...]",
		Short:              "Serve MCP (default command)",
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd, args)
		},
	}
	serve.Flags().AddFlagSet(root.Flags())

	root.AddCommand(serve, newModulesCommand(a))
	return root
}

// selectedModules collects module flags set on the command line plus
// positional module names (with or without a leading "--").
func selectedModules(flags *pflag.FlagSet, args []string) []string {
	var selected []string
	flags.Visit(func(f *pflag.Flag) {
		if f.Value.Type() != "bool" || f.Value.String() != "true" {
			return
		}
		if f.Name == core.LoadAllFlag || isModuleFlag(f.Name) {
			selected = append(selected, f.Name)
		}
	})
	for flag := range core.NormalizeFlags(args) {
		selected = append(selected, flag)
	}
	return selected
}

// unknownFlags returns the "--name" tokens in argv that flags does not
// define. They select nothing, but their presence stops the "no module
// flags loads everything" default.
func unknownFlags(flags *pflag.FlagSet, argv []string) []string {
	var unknown []string
	for _, arg := range argv {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name != "" && flags.Lookup(name) == nil {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func isModuleFlag(name string) bool {
	for _, flag := range modules.Flags() {
		if flag == name {
			return true
		}
	}
	return false
}

// config layers defaults, NORDIC_* environment, the config file, and
// finally every flag or variable viper saw set.
func (a *app) config(flags *pflag.FlagSet, args []string) (*core.Config, error) {
	opts := []core.Option{core.WithVersion(nordic.Version)}
	if file := a.v.GetString("config"); file != "" {
		opts = append(opts, core.WithConfigFile(file))
	}
	for _, s := range settings {
		if a.v.IsSet(s.key) {
			opts = append(opts, s.apply(a.v))
		}
	}
	selected := append(selectedModules(flags, args), unknownFlags(flags, a.argv)...)
	if len(selected) > 0 {
		opts = append(opts, core.WithModules(selected...))
	}
	return core.NewConfig(opts...)
}

func (a *app) serve(cmd *cobra.Command, args []string) error {
	cfg, err := a.config(cmd.Flags(), args)
	if err != nil {
		return err
	}

	logger := core.NewProductionLogger(cfg.Logging, cfg.Name)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []core.ServerOption{core.WithLogger(logger)}

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewOTelProvider(ctx, cfg.Telemetry, cfg.Version)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
		opts = append(opts,
			core.WithServerTelemetry(provider),
			core.WithHTTPClient(telemetry.NewTracedHTTPClient(nil, cfg.Upstream.Timeout)),
			core.WithHTTPMiddleware(telemetry.TracingMiddlewareWithConfig(cfg.Name, &telemetry.TracingMiddlewareConfig{
				ExcludedPaths: []string{cfg.HTTP.HealthCheckPath},
			})),
		)
	} else if cfg.Upstream.Timeout > 0 {
		opts = append(opts, core.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}))
	}

	if cfg.Discovery.Enabled {
		registry, err := core.NewRedisRegistry(ctx, cfg.Discovery.RedisURL, cfg.Discovery)
		if err != nil {
			// Registration is optional; serve anyway.
			logger.Warn("Service registry unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			registry.SetLogger(logger.WithComponent("registry"))
			defer registry.Close()
			opts = append(opts, core.WithRegistry(registry))
		}
	}

	srv, err := core.NewServer(cfg, modules.All(), opts...)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
