package models

import "time"

// ConnID identifies one live transport connection.
type ConnID string

type User struct {
	ConnID   ConnID `json:"socketId"`
	Username string `json:"username"`
	Channel  string `json:"channelName,omitempty"`
}

// Message is one entry of a channel's bounded history.
type Message struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Text        string     `json:"message"`
	ChannelName string     `json:"channelName"`
	Timestamp   time.Time  `json:"timestamp"`
	Edited      bool       `json:"edited,omitempty"`
	EditedAt    *time.Time `json:"editedAt,omitempty"`
}

// Member is the presence view of a channel member.
type Member struct {
	ConnID   ConnID `json:"socketId"`
	Username string `json:"username"`
}

// ChannelSummary is the read-only introspection projection of a channel.
type ChannelSummary struct {
	Name         string `json:"name"`
	UserCount    int    `json:"userCount"`
	MessageCount int    `json:"messageCount"`
}

type Health struct {
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	ActiveChannels []string  `json:"activeChannels"`
	ConnectedUsers int       `json:"connectedUsers"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
