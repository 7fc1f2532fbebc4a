package services

import (
	"time"

	"chat-broker/internal/models"
)

// Transport delivers events to connections and keeps room membership. Every
// call is fire-and-forget; implementations must not block the caller.
type Transport interface {
	EmitTo(conn models.ConnID, event string, payload any)
	// BroadcastToChannel sends to every connection in the room except
	// exclude; an empty exclude reaches everyone.
	BroadcastToChannel(channel, event string, payload any, exclude models.ConnID)
	BroadcastGlobal(event string, payload any)
	JoinRoom(conn models.ConnID, channel string)
	LeaveRoom(conn models.ConnID, channel string)
	IsLive(conn models.ConnID) bool
}

// Activity describes one handled event, reported to observers once the
// handler has finished and all stores are consistent again.
type Activity struct {
	Event     string
	ConnID    models.ConnID
	Username  string
	Channel   string
	MessageID string
	Text      string
	At        time.Time
	Err       error

	ConnectedUsers int
	Channels       int
}

// Observer receives activity reports on the dispatch goroutine. Implementations
// must return quickly and never call back into the coordinator.
type Observer interface {
	Observe(Activity)
}
