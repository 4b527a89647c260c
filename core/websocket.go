package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/server"
)

// WebSocketBridge carries MCP JSON-RPC messages over a WebSocket. Each text
// frame is one request or notification; each response is written back as
// one text frame. Messages on a connection are handled in order.
type WebSocketBridge struct {
	mcp      *server.MCPServer
	logger   Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns int
}

// NewWebSocketBridge creates the bridge. Browser origins are checked against
// the CORS configuration; clients without an Origin header are accepted.
func NewWebSocketBridge(mcpServer *server.MCPServer, cors *CORSConfig, logger Logger) *WebSocketBridge {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	b := &WebSocketBridge{mcp: mcpServer, logger: logger}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if cors == nil || !cors.Enabled {
				return false
			}
			return isOriginAllowed(origin, cors.AllowedOrigins)
		},
	}
	return b
}

// ServeHTTP upgrades the request and pumps messages until the peer closes.
func (b *WebSocketBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		b.logger.Debug("WebSocket upgrade failed", map[string]interface{}{
			"error":       err.Error(),
			"remote_addr": r.RemoteAddr,
		})
		return
	}
	defer conn.Close()

	b.track(1)
	defer b.track(-1)

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				b.logger.Debug("WebSocket read ended", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		resp := b.mcp.HandleMessage(ctx, json.RawMessage(data))
		if resp == nil {
			// Notifications have no response
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			b.logger.Warn("WebSocket write failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}
}

// Connections returns the number of open WebSocket connections
func (b *WebSocketBridge) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns
}

func (b *WebSocketBridge) track(delta int) {
	b.mu.Lock()
	b.conns += delta
	b.mu.Unlock()
}
