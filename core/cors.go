// Package core provides the server, configuration, error taxonomy and
// module selection shared by every Nordic data module.
package core

import (
	"fmt"
	"net/http"
	"strings"
)

// MCP streamable HTTP headers that browsers must be allowed to send and read.
var (
	mcpAllowedHeaders = []string{"Content-Type", "mcp-session-id", "Last-Event-ID", "mcp-protocol-version"}
	mcpExposedHeaders = []string{"mcp-session-id", "mcp-protocol-version"}
)

// CORSMiddleware creates a CORS middleware handler for HTTP servers.
// This middleware handles both preflight (OPTIONS) requests and adds
// appropriate CORS headers to responses based on the provided configuration.
//
// The middleware supports:
//   - Wildcard origins ("*" for all origins)
//   - Wildcard subdomains ("*.example.com")
//   - Wildcard ports ("http://localhost:*")
//
// Example usage:
//
//	handler := CORSMiddleware(DefaultCORSConfig())(mux)
//	http.ListenAndServe(":8080", handler)
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ApplyCORS(w, r, config)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApplyCORS applies CORS headers to a ResponseWriter based on the configuration.
//
// With a bare "*" origin and no credentials the literal "*" is sent, so
// responses stay cacheable across origins. Otherwise the request origin
// is echoed back when allowed.
func ApplyCORS(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	if !config.Enabled {
		return
	}

	origin := r.Header.Get("Origin")
	allowOrigin := ""
	switch {
	case !config.AllowCredentials && containsString(config.AllowedOrigins, "*"):
		allowOrigin = "*"
	case isOriginAllowed(origin, config.AllowedOrigins):
		allowOrigin = origin
	}
	if allowOrigin == "" {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	if allowOrigin != "*" {
		h.Add("Vary", "Origin")
	}

	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", fmt.Sprintf("%d", config.MaxAge))
	}
}

// isOriginAllowed checks if an origin is allowed based on the configuration.
// This function implements the origin matching logic including:
//   - Exact origin matching
//   - Wildcard all origins ("*")
//   - Wildcard subdomain matching ("*.example.com")
//   - Wildcard port matching ("http://localhost:*")
//
// An empty origin (same-origin request) returns false as CORS headers
// are not needed for same-origin requests.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}

		// Wildcard subdomain support (e.g., *.example.com or https://*.example.com)
		if idx := strings.Index(allowed, "*."); idx >= 0 {
			before := allowed[:idx]
			after := allowed[idx+2:]
			if !strings.HasPrefix(origin, before) || !strings.HasSuffix(origin, "."+after) {
				continue
			}
			sub := strings.TrimSuffix(origin[len(before):], "."+after)
			if sub != "" {
				return true
			}
		}

		// Wildcard port support (e.g., http://localhost:*)
		if strings.HasSuffix(allowed, ":*") {
			base := strings.TrimSuffix(allowed, ":*")
			if strings.HasPrefix(origin, base+":") {
				return true
			}
		}
	}

	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultCORSConfig returns the fully open configuration MCP browser
// clients need: any origin, the MCP session headers, no credentials.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   append([]string(nil), mcpAllowedHeaders...),
		ExposedHeaders:   append([]string(nil), mcpExposedHeaders...),
		AllowCredentials: false,
	}
}
