package handlers

import (
	"net/http"

	"chat-broker/internal/auth"
	"chat-broker/internal/services"
	ws "chat-broker/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Hub            *ws.Hub
	Coordinator    *services.Coordinator
	AllowedOrigins []string
	// Auth guards /channels and enables /admin/login. Nil leaves
	// introspection open.
	Auth    *auth.Service
	Metrics http.Handler
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	channels := NewChannelHandlers(deps.Hub, deps.Coordinator)
	sockets := NewWebSocketHandlers(deps.Hub, deps.AllowedOrigins)

	r.Get("/", channels.Health)
	r.Get("/ws", sockets.HandleWebSocket)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if deps.Auth == nil {
		r.Get("/channels", channels.ListChannels)
		return r
	}

	r.Post("/admin/login", NewAuthHandlers(deps.Auth).Login)
	r.With(requireOperator(deps.Auth)).Get("/channels", channels.ListChannels)
	return r
}
