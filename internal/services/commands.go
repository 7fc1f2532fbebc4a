package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Command is a client request decoded at the transport boundary.
type Command interface {
	Event() string
}

// ackCommand marks commands whose outcome is reported through an
// acknowledgement instead of an error event.
type ackCommand interface {
	Command
	acknowledged()
}

// WantsAck reports whether cmd answers through an acknowledgement.
func WantsAck(cmd Command) bool {
	_, ok := cmd.(ackCommand)
	return ok
}

type ConnectRequest struct {
	Username string `json:"username"`
}

type JoinChannel struct {
	ChannelName string `json:"channelName"`
}

type LeaveChannel struct {
	ChannelName string `json:"channelName"`
}

type SendMessage struct {
	ChannelName string `json:"channelName"`
	Message     string `json:"message"`
}

type EditMessage struct {
	ChannelName string `json:"channelName"`
	MessageID   string `json:"messageId"`
	NewText     string `json:"newText"`
}

type DeleteMessage struct {
	ChannelName string `json:"channelName"`
	MessageID   string `json:"messageId"`
}

type RenameChannel struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

type DeleteChannel struct {
	ChannelName string `json:"channelName"`
}

type GetChannels struct{}

// VoiceSignal is a WebRTC offer or answer relayed untouched to a channel.
type VoiceSignal struct {
	Kind    string          `json:"-"`
	Channel string          `json:"channel"`
	From    string          `json:"from"`
	Offer   json.RawMessage `json:"offer,omitempty"`
	Answer  json.RawMessage `json:"answer,omitempty"`
}

const (
	voiceOffer  = "voice-offer"
	voiceAnswer = "voice-answer"
)

func (ConnectRequest) Event() string { return "connect_request" }
func (JoinChannel) Event() string    { return "join_channel" }
func (LeaveChannel) Event() string   { return "leave_channel" }
func (SendMessage) Event() string    { return "send_message" }
func (EditMessage) Event() string    { return "edit_message" }
func (DeleteMessage) Event() string  { return "delete_message" }
func (RenameChannel) Event() string  { return "rename_channel" }
func (DeleteChannel) Event() string  { return "delete_channel" }
func (GetChannels) Event() string    { return "get_channels" }
func (v VoiceSignal) Event() string  { return v.Kind }

func (EditMessage) acknowledged()   {}
func (DeleteMessage) acknowledged() {}
func (RenameChannel) acknowledged() {}
func (DeleteChannel) acknowledged() {}

// DecodeCommand turns a named client event and its JSON payload into a typed
// command. A missing or null payload decodes as the zero command; a payload
// whose fields have the wrong JSON types is rejected.
func DecodeCommand(event string, data json.RawMessage) (Command, error) {
	switch event {
	case "connect_request", "user_connect_request":
		return decodeInto[ConnectRequest](event, data)
	case "join_channel":
		return decodeInto[JoinChannel](event, data)
	case "leave_channel":
		return decodeInto[LeaveChannel](event, data)
	case "send_message":
		return decodeInto[SendMessage](event, data)
	case "edit_message":
		return decodeInto[EditMessage](event, data)
	case "delete_message":
		return decodeInto[DeleteMessage](event, data)
	case "rename_channel":
		return decodeInto[RenameChannel](event, data)
	case "delete_channel":
		return decodeInto[DeleteChannel](event, data)
	case "get_channels":
		return GetChannels{}, nil
	case voiceOffer, voiceAnswer:
		sig, err := decodeInto[VoiceSignal](event, data)
		if err != nil {
			return nil, err
		}
		sig.Kind = event
		return sig, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

func decodeInto[T Command](event string, data json.RawMessage) (T, error) {
	var cmd T
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cmd, nil
	}
	if err := json.Unmarshal(trimmed, &cmd); err != nil {
		return cmd, fmt.Errorf("%w for %s: %v", ErrMalformedPayload, event, err)
	}
	return cmd, nil
}
