package wire

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tsarna/harmony/pkg/harmony"
)

// Type is the "type" discriminant carried by every wire message.
type Type string

const (
	// Client to server
	TypeSubscribe   Type = "subscribe"   // Start receiving events for a channel
	TypeUnsubscribe Type = "unsubscribe" // Stop receiving events for a channel

	// Server to client
	TypeSubscribed     Type = "subscribed"      // Acknowledges a subscribe
	TypeUnsubscribed   Type = "unsubscribed"    // Acknowledges an unsubscribe
	TypeMessageCreated Type = "message_created" // A message was posted to a subscribed channel
	TypeError          Type = "error"           // The server rejected a request
)

// Message is one of the wire message variants defined in this package.
type Message interface {
	MessageType() Type
}

type Subscribe struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type Unsubscribe struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type Subscribed struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type Unsubscribed struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

// MessageCreated carries the full message inline, next to the type field.
type MessageCreated struct {
	harmony.Message
}

type Error struct {
	Message string `json:"message"`
}

func (Subscribe) MessageType() Type      { return TypeSubscribe }
func (Unsubscribe) MessageType() Type    { return TypeUnsubscribe }
func (Subscribed) MessageType() Type     { return TypeSubscribed }
func (Unsubscribed) MessageType() Type   { return TypeUnsubscribed }
func (MessageCreated) MessageType() Type { return TypeMessageCreated }
func (Error) MessageType() Type          { return TypeError }

// Encode serializes m with its type discriminant.
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	typ, _ := json.Marshal(m.MessageType())
	fields["type"] = typ

	return json.Marshal(fields)
}
