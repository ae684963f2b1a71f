package wire

import (
	"encoding/json"

	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/schema"
)

var channelRequired = []string{"channel_id"}

var (
	subscribeSchema      = schema.Object[Subscribe]{Name: "subscribe message", Required: channelRequired}
	unsubscribeSchema    = schema.Object[Unsubscribe]{Name: "unsubscribe message", Required: channelRequired}
	subscribedSchema     = schema.Object[Subscribed]{Name: "subscribed message", Required: channelRequired}
	unsubscribedSchema   = schema.Object[Unsubscribed]{Name: "unsubscribed message", Required: channelRequired}
	errorSchema          = schema.Object[Error]{Name: "error message", Required: []string{"message"}}
	messageCreatedSchema = schema.Object[MessageCreated]{
		Name:     "message_created message",
		Required: schema.Message.Required,
	}
)

// Parse validates a raw frame and returns the matching variant. Frames that
// are not JSON objects, carry an unknown type or violate the variant's shape
// yield a *schema.ValidationError.
func Parse(data []byte) (Message, error) {
	var envelope struct {
		Type *Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, schema.NewValidationError("wire message", schema.Issue{Message: schema.ErrNotObject.Error()})
	}
	if envelope.Type == nil {
		return nil, schema.NewValidationError("wire message", schema.Issuef("type", "required"))
	}

	switch *envelope.Type {
	case TypeSubscribe:
		return parseAs(subscribeSchema, data)
	case TypeUnsubscribe:
		return parseAs(unsubscribeSchema, data)
	case TypeSubscribed:
		return parseAs(subscribedSchema, data)
	case TypeUnsubscribed:
		return parseAs(unsubscribedSchema, data)
	case TypeMessageCreated:
		return parseAs(messageCreatedSchema, data)
	case TypeError:
		return parseAs(errorSchema, data)
	}

	return nil, schema.NewValidationError("wire message", schema.Issuef("type", "unknown message type %q", *envelope.Type))
}

func parseAs[T Message](s schema.Object[T], data []byte) (Message, error) {
	v, err := s.Parse(data)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Created returns the chat message carried by m, if it is a message_created.
func Created(m Message) (harmony.Message, bool) {
	if created, ok := m.(MessageCreated); ok {
		return created.Message, true
	}
	return harmony.Message{}, false
}
