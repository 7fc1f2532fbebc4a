package models

import "time"

// Events produced to clients.
const (
	EventUserConnected      = "user_connected"
	EventChannelHistory     = "channel_history"
	EventChannelJoined      = "channel_joined"
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventChannelUsersUpdate = "channel_users_update"
	EventMessage            = "message"
	EventMessageEdited      = "message_edited"
	EventMessageDeleted     = "message_deleted"
	EventChannelsList       = "channels_list"
	EventChannelDeleted     = "channel_deleted"
	EventError              = "error"
	EventAck                = "ack"
	EventReceiveVoiceOffer  = "receive-voice-offer"
	EventReceiveVoiceAnswer = "receive-voice-answer"
)

type UserConnectedPayload struct {
	Username          string   `json:"username"`
	AvailableChannels []string `json:"availableChannels"`
}

type ChannelHistoryPayload struct {
	ChannelName string    `json:"channelName"`
	Messages    []Message `json:"messages"`
}

// ChannelUsersPayload is shared by channel_joined and channel_users_update.
type ChannelUsersPayload struct {
	ChannelName string   `json:"channelName"`
	Users       []Member `json:"users"`
}

// UserPresencePayload is shared by user_joined and user_left.
type UserPresencePayload struct {
	Username    string `json:"username"`
	ChannelName string `json:"channelName"`
}

type MessageEditedPayload struct {
	MessageID   string    `json:"messageId"`
	NewText     string    `json:"newText"`
	ChannelName string    `json:"channelName"`
	EditedAt    time.Time `json:"editedAt"`
}

type MessageDeletedPayload struct {
	MessageID   string `json:"messageId"`
	ChannelName string `json:"channelName"`
}

type ChannelsListPayload struct {
	Channels []string `json:"channels"`
}

type ChannelDeletedPayload struct {
	ChannelName string `json:"channelName"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// AckPayload answers a request that carried an acknowledgement id.
type AckPayload struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}
