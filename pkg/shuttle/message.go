package shuttle

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	MessageTypeLocationUpdate  MessageType = "location_update"
	MessageTypeNewRouteRequest MessageType = "new_route_request"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// ChannelMessage is a single frame pushed on the tracking websocket
type ChannelMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func ParseChannelMessage(frame []byte) (*ChannelMessage, error) {
	var message ChannelMessage
	if err := json.Unmarshal(frame, &message); err != nil {
		return nil, fmt.Errorf("decode channel message: %w", err)
	}

	switch message.Type {
	case MessageTypeLocationUpdate, MessageTypeNewRouteRequest:
		return &message, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, message.Type)
	}
}

// Position decodes the payload of a location_update message
func (m *ChannelMessage) Position() (Position, error) {
	var position Position

	if m.Type != MessageTypeLocationUpdate {
		return position, fmt.Errorf("message type %q has no position", m.Type)
	}
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return position, errors.New("location update without data")
	}
	if err := json.Unmarshal(m.Data, &position); err != nil {
		return position, fmt.Errorf("decode position: %w", err)
	}

	return position, nil
}

// RouteRequest decodes the payload of a new_route_request message if present.
func (m *ChannelMessage) RouteRequest() (*RouteRequest, bool) {
	if m.Type != MessageTypeNewRouteRequest || len(m.Data) == 0 {
		return nil, false
	}

	var request RouteRequest
	if err := json.Unmarshal(m.Data, &request); err != nil {
		return nil, false
	}

	return &request, true
}
