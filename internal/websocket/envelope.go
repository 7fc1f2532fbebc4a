package websocket

import (
	"encoding/json"
	"errors"

	"chat-broker/internal/models"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Inbound is one client frame as it arrives on the socket.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// Outbound is one frame written to a client.
type Outbound struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data"`
}

func decodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, ErrMalformedFrame
	}
	if in.Event == "" {
		return in, ErrMalformedFrame
	}
	return in, nil
}

func encodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Data: payload})
}

func encodeAck(id int64, err error) ([]byte, error) {
	payload := models.AckPayload{Success: true}
	if err != nil {
		payload = models.AckPayload{Error: err.Error()}
	}
	return json.Marshal(Outbound{Event: models.EventAck, Ack: &id, Data: payload})
}
