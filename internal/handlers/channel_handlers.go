package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chat-broker/internal/models"
	"chat-broker/internal/services"
	"chat-broker/pkg/logger"
)

// Runner executes fn where it may safely read broker state.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// ChannelHandlers serves read-only views of the broker.
type ChannelHandlers struct {
	runner      Runner
	coordinator *services.Coordinator
	now         func() time.Time
}

func NewChannelHandlers(runner Runner, coordinator *services.Coordinator) *ChannelHandlers {
	return &ChannelHandlers{
		runner:      runner,
		coordinator: coordinator,
		now:         time.Now,
	}
}

func (h *ChannelHandlers) Health(w http.ResponseWriter, r *http.Request) {
	health := models.Health{Message: "chat broker is running"}
	err := h.runner.Do(r.Context(), func() {
		health.ActiveChannels = h.coordinator.ChannelNames()
		health.ConnectedUsers = h.coordinator.ConnectedUsers()
	})
	if err != nil {
		logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	}
	health.Timestamp = h.now()
	writeJSON(w, http.StatusOK, health)
}

func (h *ChannelHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	var summaries []models.ChannelSummary
	err := h.runner.Do(r.Context(), func() {
		summaries = h.coordinator.ChannelSummaries()
	})
	if err != nil {
		logger.Error("list channels failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
