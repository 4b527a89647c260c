// Package upstream is the HTTP client every module uses to reach its public
// API. A Client is bound to one API (a display name and a base URL) and
// issues single GET requests: no retries, no caching. Any non-2xx answer
// becomes a core.ToolError in the SERVICE_ERROR category carrying the
// status and the response body.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/itsneelabh/mcp-nordic/core"
)

// Params are query parameters. Nil values are skipped; everything else is
// rendered with its natural string form.
type Params map[string]interface{}

// Client issues GET requests against one upstream API.
type Client struct {
	api        string
	baseURL    string
	userAgent  string
	headers    map[string]string
	bodyLimit  int
	httpClient *http.Client
	logger     core.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client (e.g. a traced client)
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithHeader adds a fixed request header, typically Accept
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		cl.headers[key] = value
	}
}

// WithErrorBodyLimit truncates error bodies to n characters in the error
// message. Zero keeps the whole body.
func WithErrorBodyLimit(n int) Option {
	return func(cl *Client) {
		cl.bodyLimit = n
	}
}

// WithLogger sets the logger for request tracing at debug level
func WithLogger(l core.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a client for api (the name used in error messages, e.g. "DAWA")
// rooted at baseURL.
func New(api, baseURL string, opts ...Option) *Client {
	c := &Client{
		api:        api,
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    make(map[string]string),
		httpClient: http.DefaultClient,
		logger:     &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEnv creates a client wired to the shared module environment.
func FromEnv(api, baseURL string, env core.ModuleEnv, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(env.HTTPClient),
		WithUserAgent(env.UserAgent),
		WithLogger(env.Logger),
	}
	return New(api, baseURL, append(base, opts...)...)
}

// API returns the API name used in error messages
func (c *Client) API() string {
	return c.api
}

// BaseURL returns the base URL requests are rooted at
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the request URL for path and params.
func (c *Client) URL(path string, params Params) string {
	u := c.baseURL + path
	q := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		q.Set(k, formatParam(v))
	}
	if len(q) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q.Encode()
}

// Fetch GETs path with params and decodes the JSON body into out.
func (c *Client) Fetch(ctx context.Context, path string, params Params, out interface{}) error {
	target := c.URL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s API: invalid request: %w", c.api, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Upstream request failed", map[string]interface{}{
			"api":   c.api,
			"url":   target,
			"error": err,
		})
		return fmt.Errorf("%s API request failed: %w", c.api, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Upstream response", map[string]interface{}{
		"api":         c.api,
		"url":         target,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		text := string(body)
		if c.bodyLimit > 0 {
			text = truncate(text, c.bodyLimit)
		}
		return core.NewUpstreamError(c.api, resp.StatusCode, text)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s API returned invalid JSON: %w", c.api, err)
	}
	return nil
}

func formatParam(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
