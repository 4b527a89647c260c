package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DiscoveryURI is the address of the read-only module listing resource.
const DiscoveryURI = "nordic://info"

// Server is the configured tool registry plus its transports.
// NewServer evaluates every module once; after that the registry is
// read-only and safe for concurrent invocations.
type Server struct {
	ID string

	config     *Config
	logger     Logger
	telemetry  Telemetry
	registry   Registry
	httpClient *http.Client
	middleware []func(http.Handler) http.Handler

	mcp       *server.MCPServer
	modules   []Module
	tools     []*Tool
	toolIndex map[string]*Tool
	toolOwner map[string]string
	resources map[string]string
	discovery string

	mu         sync.Mutex
	started    bool
	httpServer *http.Server
}

// ServerOption customizes a Server at construction time
type ServerOption func(*Server)

// WithLogger sets the server logger
func WithLogger(logger Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerTelemetry sets the span/metric sink used around tool calls
func WithServerTelemetry(t Telemetry) ServerOption {
	return func(s *Server) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// WithRegistry announces the server to a service registry while it runs
func WithRegistry(r Registry) ServerOption {
	return func(s *Server) {
		s.registry = r
	}
}

// WithHTTPClient sets the client modules use for upstream calls
func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithHTTPMiddleware adds middleware around the HTTP transport, outermost first
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// NewServer selects modules from catalogue according to cfg.Modules,
// registers their tools and resources plus the discovery resource, and
// returns the configured server.
func NewServer(cfg *Config, catalogue []Module, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		ID:         cfg.ID,
		config:     cfg,
		logger:     &NoOpLogger{},
		telemetry:  &NoOpTelemetry{},
		httpClient: http.DefaultClient,
		toolIndex:  make(map[string]*Tool),
		toolOwner:  make(map[string]string),
		resources:  map[string]string{DiscoveryURI: "server"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("%s-%s", cfg.Name, uuid.NewString()[:8])
	}

	version := cfg.Version
	if version == "" {
		version = "development"
	}
	s.mcp = server.NewMCPServer(cfg.Name, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	env := ModuleEnv{
		HTTPClient:   s.httpClient,
		UserAgent:    cfg.Upstream.UserAgent,
		GeocodingURL: cfg.Upstream.GeocodingURL,
		Logger:       s.logger,
	}

	s.modules = SelectModules(catalogue, cfg.Modules)
	for _, m := range s.modules {
		tools := m.Tools(env)
		for _, t := range tools {
			if err := s.addTool(m.Flag, t); err != nil {
				return nil, err
			}
		}
		for _, r := range m.Resources {
			if err := s.addResource(m.Flag, r); err != nil {
				return nil, err
			}
		}
		s.logger.Debug("Module registered", map[string]interface{}{
			"module":    m.Flag,
			"tools":     len(tools),
			"resources": len(m.Resources),
		})
	}

	s.discovery = DiscoveryDocument(s.modules)
	s.serveMarkdown(Resource{
		URI:         DiscoveryURI,
		Name:        "nordic-info",
		Description: "Loaded Nordic data modules",
		Text:        s.discovery,
	})

	s.logger.Info("Server configured", map[string]interface{}{
		"server_id": s.ID,
		"modules":   s.ModuleFlags(),
		"tools":     len(s.tools),
	})

	return s, nil
}

func (s *Server) addTool(module string, t *Tool) error {
	name := t.Name()
	if owner, exists := s.toolOwner[name]; exists {
		return &FrameworkError{
			Op:      "Server.addTool",
			Kind:    "server",
			ID:      name,
			Message: fmt.Sprintf("tool %s registered by both %s and %s", name, owner, module),
			Err:     ErrAlreadyRegistered,
		}
	}

	s.tools = append(s.tools, t)
	s.toolIndex[name] = t
	s.toolOwner[name] = module

	s.mcp.AddTool(t.Definition, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return ToResult(s.Invoke(ctx, name, req.GetArguments())), nil
	})
	return nil
}

func (s *Server) addResource(module string, r Resource) error {
	if owner, exists := s.resources[r.URI]; exists {
		return &FrameworkError{
			Op:      "Server.addResource",
			Kind:    "server",
			ID:      r.URI,
			Message: fmt.Sprintf("resource %s registered by both %s and %s", r.URI, owner, module),
			Err:     ErrAlreadyRegistered,
		}
	}
	s.resources[r.URI] = module
	s.serveMarkdown(r)
	return nil
}

func (s *Server) serveMarkdown(r Resource) {
	s.mcp.AddResource(
		mcp.NewResource(r.URI, r.Name,
			mcp.WithResourceDescription(r.Description),
			mcp.WithMIMEType("text/markdown"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "text/markdown",
					Text:     r.Text,
				},
			}, nil
		},
	)
}

// ResourceURIs returns the URIs of every served resource, sorted
func (s *Server) ResourceURIs() []string {
	uris := make([]string, 0, len(s.resources))
	for uri := range s.resources {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Invoke runs a registered tool by name: span, validation, handler, metrics.
func (s *Server) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := s.toolIndex[name]
	if !ok {
		return "", &FrameworkError{Op: "Server.Invoke", Kind: "server", ID: name, Err: ErrToolNotFound}
	}
	module := s.toolOwner[name]

	ctx, span := s.telemetry.StartSpan(ctx, "tool."+name)
	defer span.End()
	span.SetAttribute("tool.name", name)
	span.SetAttribute("tool.module", module)

	start := time.Now()
	text, err := t.Call(ctx, args)
	elapsed := time.Since(start)

	outcome := outcomeOf(err)
	span.SetAttribute("tool.outcome", outcome)
	labels := map[string]string{"tool": name, "module": module, "outcome": outcome}
	s.telemetry.RecordMetric("nordic.tool.calls", 1, labels)
	s.telemetry.RecordMetric("nordic.tool.duration_ms", float64(elapsed.Milliseconds()), labels)

	fields := map[string]interface{}{
		"tool":        name,
		"module":      module,
		"outcome":     outcome,
		"duration_ms": elapsed.Milliseconds(),
	}
	switch outcome {
	case "ok", "empty":
		s.logger.Debug("Tool invoked", fields)
	case "invalid_input", "not_found":
		fields["error"] = err.Error()
		s.logger.Debug("Tool rejected request", fields)
	default:
		span.RecordError(err)
		fields["error"] = err.Error()
		s.logger.Warn("Tool invocation failed", fields)
	}

	return text, err
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var te *ToolError
	if errors.As(err, &te) {
		switch te.Category {
		case CategoryEmpty:
			return "empty"
		case CategoryInputError:
			return "invalid_input"
		case CategoryNotFound:
			return "not_found"
		case CategoryServiceError:
			return "upstream_error"
		}
	}
	return "error"
}

// MCPServer exposes the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Modules returns the loaded modules in registration order
func (s *Server) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

// ModuleFlags returns the flags of the loaded modules
func (s *Server) ModuleFlags() []string {
	flags := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		flags = append(flags, m.Flag)
	}
	return flags
}

// Tools returns the registered tools in registration order
func (s *Server) Tools() []*Tool {
	return append([]*Tool(nil), s.tools...)
}

// ToolNames returns the registered tool names sorted alphabetically
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}

// Discovery returns the nordic://info document
func (s *Server) Discovery() string {
	return s.discovery
}

// Run serves the configured transport until ctx is cancelled, keeping the
// registry entry alive for the duration when a registry is set.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return &FrameworkError{Op: "Server.Run", Kind: "server", ID: s.ID, Err: ErrAlreadyStarted}
	}
	s.started = true
	s.mu.Unlock()

	if s.registry != nil {
		stop := s.startRegistration(ctx)
		defer stop()
	}

	switch s.config.Transport {
	case TransportHTTP:
		return s.ListenAndServe(ctx)
	default:
		return s.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
}

// ServeStdio serves MCP over the given pipe until ctx is cancelled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(&logWriter{logger: s.logger}, "", 0))

	s.logger.Info("Serving MCP over stdio", map[string]interface{}{
		"server_id": s.ID,
		"tools":     len(s.tools),
	})

	err := stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// Handler returns the HTTP transport: /mcp, /health, /api/capabilities and
// optionally /ws, wrapped in recovery, logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	cfg := s.config
	mux := http.NewServeMux()

	mux.Handle(cfg.HTTP.MCPPath, server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	))
	mux.HandleFunc(cfg.HTTP.HealthCheckPath, s.handleHealth)
	mux.HandleFunc("/api/capabilities", s.handleCapabilities)
	mux.HandleFunc("/api/capabilities/", s.handleInvoke)
	if cfg.HTTP.EnableWebSocket {
		mux.Handle(cfg.HTTP.WebSocketPath, NewWebSocketBridge(s.mcp, &cfg.HTTP.CORS, s.logger))
	}

	// Order: CORS -> Logging -> Recovery -> Handler
	var handler http.Handler = mux
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger, strings.EqualFold(cfg.Logging.Level, "debug"))(handler)
	if cfg.HTTP.CORS.Enabled {
		handler = CORSMiddleware(&cfg.HTTP.CORS)(handler)
	}
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler
}

// ListenAndServe listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	cfg := s.config
	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", map[string]interface{}{
			"address":   addr,
			"mcp_path":  cfg.HTTP.MCPPath,
			"websocket": cfg.HTTP.EnableWebSocket,
			"tools":     len(s.tools),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("HTTP server failed", map[string]interface{}{
				"error":   err.Error(),
				"address": addr,
			})
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", map[string]interface{}{"address": addr})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": s.config.Name,
	})
}

// capabilityInfo is one entry of the /api/capabilities listing
type capabilityInfo struct {
	Name        string              `json:"name"`
	Module      string              `json:"module"`
	Description string              `json:"description"`
	Endpoint    string              `json:"endpoint"`
	InputSchema mcp.ToolInputSchema `json:"input_schema"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	caps := make([]capabilityInfo, 0, len(s.tools))
	for _, t := range s.tools {
		caps = append(caps, capabilityInfo{
			Name:        t.Name(),
			Module:      s.toolOwner[t.Name()],
			Description: t.Definition.Description,
			Endpoint:    "/api/capabilities/" + t.Name(),
			InputSchema: t.Definition.InputSchema,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"server":       s.config.Name,
		"modules":      s.ModuleFlags(),
		"capabilities": caps,
	})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/capabilities/")
	if _, ok := s.toolIndex[name]; !ok {
		http.NotFound(w, r)
		return
	}

	args := map[string]interface{}{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			writeToolResponse(w, NewToolResponse("", NewInputError("request body must be a JSON object of tool arguments")))
			return
		}
	}

	writeToolResponse(w, NewToolResponse(s.Invoke(r.Context(), name, args)))
}

func writeToolResponse(w http.ResponseWriter, resp ToolResponse) {
	status := http.StatusOK
	if !resp.Success && resp.Error != nil {
		status = HTTPStatusForCategory(resp.Error.Category)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// startRegistration registers the server and keeps the entry fresh until
// the returned stop function runs. Registry failures are logged, never fatal.
func (s *Server) startRegistration(ctx context.Context) func() {
	info := &ServiceInfo{
		ID:        s.ID,
		Name:      s.config.Name,
		Version:   s.config.Version,
		Transport: s.config.Transport,
		Address:   s.config.Address,
		Port:      s.config.Port,
		Modules:   s.ModuleFlags(),
		Tools:     s.ToolNames(),
		Health:    HealthHealthy,
	}
	if err := s.registry.Register(ctx, info); err != nil {
		s.logger.Warn("Service registration failed", map[string]interface{}{
			"error":     err.Error(),
			"server_id": s.ID,
		})
	}

	interval := s.config.Discovery.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := s.registry.UpdateHealth(hbCtx, s.ID, HealthHealthy); err != nil {
					if errors.Is(err, ErrServiceNotFound) {
						// Entry expired (e.g. Redis restart); register again
						err = s.registry.Register(hbCtx, info)
					}
					if err != nil {
						s.logger.Warn("Heartbeat failed", map[string]interface{}{
							"error":     err.Error(),
							"server_id": s.ID,
						})
					}
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
		unregCtx, unregCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer unregCancel()
		if err := s.registry.Unregister(unregCtx, s.ID); err != nil {
			s.logger.Warn("Service unregistration failed", map[string]interface{}{
				"error":     err.Error(),
				"server_id": s.ID,
			})
		}
	}
}

// logWriter adapts Logger to the *log.Logger the stdio transport reports through
type logWriter struct {
	logger Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Error("stdio transport error", map[string]interface{}{
		"error": strings.TrimSpace(string(p)),
	})
	return len(p), nil
}
