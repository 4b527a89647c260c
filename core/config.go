package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds accepted by Config.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all configuration options for the Nordic MCP server.
// It supports layered configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables
//  3. Config file (JSON or YAML), when one is given
//  4. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithTransport(TransportHTTP),
//	    WithPort(8080),
//	    WithModules("dk-weather", "dk-energy"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Core configuration
	Name      string `json:"name" yaml:"name" env:"NORDIC_NAME" default:"mcp-nordic"`
	ID        string `json:"id" yaml:"id" env:"NORDIC_ID"`
	Version   string `json:"version" yaml:"version"`
	Transport string `json:"transport" yaml:"transport" env:"NORDIC_TRANSPORT" default:"stdio"`
	Port      int    `json:"port" yaml:"port" env:"NORDIC_PORT,PORT" default:"8080"`
	Address   string `json:"address" yaml:"address" env:"NORDIC_ADDRESS" default:"0.0.0.0"`

	// Modules lists the module flags to load. Empty means every module.
	Modules []string `json:"modules" yaml:"modules" env:"NORDIC_MODULES"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Upstream  UpstreamConfig  `json:"upstream" yaml:"upstream"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`

	// Kubernetes is detected, never configured
	Kubernetes bool `json:"-" yaml:"-"`
}

// HTTPConfig contains HTTP transport configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" default:"30s"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" default:"10s"`
	// WriteTimeout stays zero: streamable HTTP responses may be long-lived SSE streams.
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" default:"120s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" default:"10s"`
	MCPPath         string        `json:"mcp_path" yaml:"mcp_path" default:"/mcp"`
	HealthCheckPath string        `json:"health_check_path" yaml:"health_check_path" default:"/health"`
	EnableWebSocket bool          `json:"enable_websocket" yaml:"enable_websocket" env:"NORDIC_WEBSOCKET" default:"true"`
	WebSocketPath   string        `json:"websocket_path" yaml:"websocket_path" default:"/ws"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" default:"true"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" env:"NORDIC_CORS_ORIGINS" default:"*"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods" default:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// UpstreamConfig contains settings shared by every outbound API client
type UpstreamConfig struct {
	UserAgent    string `json:"user_agent" yaml:"user_agent" env:"NORDIC_USER_AGENT"`
	GeocodingURL string `json:"geocoding_url" yaml:"geocoding_url" env:"NORDIC_GEOCODING_URL"`
	// Timeout of zero keeps the platform default (no client-side deadline).
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"NORDIC_UPSTREAM_TIMEOUT"`
}

// DiscoveryConfig controls registration of this server in a Redis service registry.
type DiscoveryConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled" env:"NORDIC_DISCOVERY_ENABLED" default:"false"`
	RedisURL          string        `json:"redis_url" yaml:"redis_url" env:"NORDIC_REDIS_URL,REDIS_URL"`
	Namespace         string        `json:"namespace" yaml:"namespace" env:"NORDIC_DISCOVERY_NAMESPACE" default:"nordic"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval" default:"10s"`
	TTL               time.Duration `json:"ttl" yaml:"ttl" default:"30s"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" env:"NORDIC_TELEMETRY_ENABLED" default:"false"`
	Exporter    string `json:"exporter" yaml:"exporter" env:"NORDIC_TELEMETRY_EXPORTER" default:"otlp"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" env:"NORDIC_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `json:"service_name" yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"NORDIC_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"NORDIC_LOG_FORMAT" default:"text"`
}

// DefaultUserAgent identifies the server to upstream APIs, some of which
// (MET Norway) reject anonymous clients.
func DefaultUserAgent(name, version string) string {
	if version == "" {
		version = "development"
	}
	return fmt.Sprintf("%s/%s (github.com/itsneelabh/mcp-nordic)", name, version)
}

// Option is a functional option for configuring the server
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// The execution environment is detected and defaults are adjusted
// accordingly (JSON logs under Kubernetes).
func DefaultConfig() *Config {
	cfg := &Config{
		Name:      "mcp-nordic",
		Transport: TransportStdio,
		Port:      8080,
		Address:   "0.0.0.0",
		HTTP: HTTPConfig{
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MCPPath:           "/mcp",
			HealthCheckPath:   "/health",
			EnableWebSocket:   true,
			WebSocketPath:     "/ws",
			CORS:              *DefaultCORSConfig(),
		},
		Discovery: DiscoveryConfig{
			Namespace:         "nordic",
			HeartbeatInterval: 10 * time.Second,
			TTL:               30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter: "otlp",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	cfg.DetectEnvironment()
	return cfg
}

// DetectEnvironment adjusts defaults for the runtime environment
func (c *Config) DetectEnvironment() {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		c.Kubernetes = true
		c.Logging.Format = "json"
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override default values but are overridden by
// config files and functional options.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NORDIC_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("NORDIC_ID"); v != "" {
		c.ID = v
	}
	if v := os.Getenv("NORDIC_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}

	// NORDIC_PORT wins over the platform-provided PORT
	portEnv := os.Getenv("NORDIC_PORT")
	if portEnv == "" {
		portEnv = os.Getenv("PORT")
	}
	if portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			return &FrameworkError{
				Op:      "Config.LoadFromEnv",
				Kind:    "config",
				Message: fmt.Sprintf("invalid port %q", portEnv),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
	}
	if v := os.Getenv("NORDIC_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("NORDIC_MODULES"); v != "" {
		c.Modules = parseStringList(v)
	}

	if v := os.Getenv("NORDIC_WEBSOCKET"); v != "" {
		c.HTTP.EnableWebSocket = parseBool(v)
	}
	if v := os.Getenv("NORDIC_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}

	if v := os.Getenv("NORDIC_USER_AGENT"); v != "" {
		c.Upstream.UserAgent = v
	}
	if v := os.Getenv("NORDIC_GEOCODING_URL"); v != "" {
		c.Upstream.GeocodingURL = v
	}
	if v := os.Getenv("NORDIC_UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &FrameworkError{
				Op:      "Config.LoadFromEnv",
				Kind:    "config",
				Message: fmt.Sprintf("invalid upstream timeout %q", v),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Upstream.Timeout = d
	}

	// Discovery settings
	if v := os.Getenv("NORDIC_REDIS_URL"); v != "" {
		c.Discovery.RedisURL = v
		c.Discovery.Enabled = true
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Discovery.RedisURL = v
		c.Discovery.Enabled = true
	}
	if v := os.Getenv("NORDIC_DISCOVERY_ENABLED"); v != "" {
		c.Discovery.Enabled = parseBool(v)
	}
	if v := os.Getenv("NORDIC_DISCOVERY_NAMESPACE"); v != "" {
		c.Discovery.Namespace = v
	}

	// Telemetry settings
	if v := os.Getenv("NORDIC_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true // Auto-enable if endpoint is provided
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("NORDIC_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("NORDIC_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	// Logging settings
	if v := os.Getenv("NORDIC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NORDIC_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if parseBool(os.Getenv("NORDIC_DEBUG")) {
		c.Logging.Level = "debug"
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File settings override environment variables but are overridden by functional options.
//
// Example YAML:
//
//	transport: http
//	port: 8080
//	modules: [dk-weather, dk-energy]
//	logging:
//	  level: debug
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// Called automatically by NewConfig().
func (c *Config) Validate() error {
	if c.Name == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "server name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown transport %q (want %q or %q)", c.Transport, TransportStdio, TransportHTTP),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Exporter == "otlp" && c.Telemetry.Endpoint == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required for the otlp exporter",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Discovery.Enabled && c.Discovery.RedisURL == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "redis URL is required when discovery is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// Helper functions

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithName sets the server name reported to MCP clients and the registry.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) Option {
	return func(c *Config) error {
		c.Version = version
		return nil
	}
}

// WithTransport selects the stdio or HTTP transport.
func WithTransport(transport string) Option {
	return func(c *Config) error {
		transport = strings.ToLower(strings.TrimSpace(transport))
		if transport != TransportStdio && transport != TransportHTTP {
			return &FrameworkError{
				Op:      "WithTransport",
				Kind:    "config",
				Message: fmt.Sprintf("unknown transport %q", transport),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Transport = transport
		return nil
	}
}

// WithPort sets the HTTP server port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &FrameworkError{
				Op:      "WithPort",
				Kind:    "config",
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the HTTP listen address.
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithModules sets the module flags to load. An empty list loads every module.
func WithModules(flags ...string) Option {
	return func(c *Config) error {
		c.Modules = append([]string(nil), flags...)
		return nil
	}
}

// WithWebSocket toggles the /ws bridge on the HTTP transport.
func WithWebSocket(enabled bool) Option {
	return func(c *Config) error {
		c.HTTP.EnableWebSocket = enabled
		return nil
	}
}

// WithUserAgent sets the User-Agent sent to every upstream API.
func WithUserAgent(userAgent string) Option {
	return func(c *Config) error {
		c.Upstream.UserAgent = userAgent
		return nil
	}
}

// WithRedisURL enables registration in a Redis service registry.
// Format: redis://[user:password@]host:port/db
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Discovery.RedisURL = url
		c.Discovery.Enabled = url != ""
		return nil
	}
}

// WithTelemetry enables tracing with the given exporter ("otlp" or "stdout").
func WithTelemetry(enabled bool, exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		if exporter != "" {
			c.Telemetry.Exporter = exporter
		}
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format ("text" or "json").
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file at that point
// in the option chain.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// NewConfig creates a configuration from defaults, the environment and the
// given options, and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.Name
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = DefaultUserAgent(cfg.Name, cfg.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
