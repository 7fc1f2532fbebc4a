package handlers

import (
	"net/http"
	"net/url"
	"strings"

	ws "chat-broker/internal/websocket"
	"chat-broker/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(hub *ws.Hub, allowedOrigins []string) *WebSocketHandlers {
	origins := newOriginPolicy(allowedOrigins)
	return &WebSocketHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.allows,
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id, err := h.hub.Serve(conn, r.RemoteAddr)
	if err != nil {
		logger.Warn("rejecting connection", "remote", r.RemoteAddr, "error", err)
		return
	}
	logger.Info("websocket connected", "conn_id", id, "remote", r.RemoteAddr)
}

// originPolicy decides which browser origins may open a socket. Requests
// without an Origin header come from non-browser clients and are allowed.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		if origin == "*" {
			p.allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(origin); ok {
			p.allowed[normalized] = struct{}{}
		} else {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
		}
	}
	return p
}

func (p originPolicy) allows(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	_, found := p.allowed[normalized]
	return found
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
