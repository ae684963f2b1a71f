package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/harmony/pkg/harmony/schema"
)

var channelID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

func TestEncode(t *testing.T) {
	data, err := Encode(Subscribe{ChannelID: channelID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "subscribe", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, string(data))

	data, err = Encode(Unsubscribe{ChannelID: channelID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "unsubscribe", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, string(data))
}

func TestParse(t *testing.T) {
	t.Run("every variant", func(t *testing.T) {
		tests := []struct {
			frame string
			want  Type
		}{
			{`{"type": "subscribe", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, TypeSubscribe},
			{`{"type": "unsubscribe", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, TypeUnsubscribe},
			{`{"type": "subscribed", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, TypeSubscribed},
			{`{"type": "unsubscribed", "channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e"}`, TypeUnsubscribed},
			{`{"type": "error", "message": "not a member"}`, TypeError},
			{`{
				"type": "message_created",
				"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
				"channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e",
				"user_id": "16fd2706-8baf-433b-82eb-8c7fada847da",
				"username": "alice",
				"content": "hello",
				"created_at": "2024-05-01T10:00:00Z",
				"updated_at": "2024-05-01T10:00:00Z"
			}`, TypeMessageCreated},
		}

		for _, tt := range tests {
			msg, err := Parse([]byte(tt.frame))
			require.NoError(t, err, tt.frame)
			assert.Equal(t, tt.want, msg.MessageType())
		}
	})

	t.Run("message_created payload", func(t *testing.T) {
		msg, err := Parse([]byte(`{
			"type": "message_created",
			"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			"channel_id": "0f8fad5b-d9cb-469f-a165-70867728950e",
			"user_id": "16fd2706-8baf-433b-82eb-8c7fada847da",
			"username": "alice",
			"content": "hello",
			"created_at": "2024-05-01T10:00:00Z",
			"updated_at": "2024-05-01T10:00:00Z"
		}`))
		require.NoError(t, err)

		created, ok := Created(msg)
		require.True(t, ok)
		assert.Equal(t, channelID, created.ChannelID)
		assert.Equal(t, "hello", created.Content)

		_, ok = Created(Subscribed{ChannelID: channelID})
		assert.False(t, ok)
	})

	t.Run("rejections", func(t *testing.T) {
		frames := []string{
			`not json`,
			`[]`,
			`{}`,
			`{"type": "typing"}`,
			`{"type": "subscribe"}`,
			`{"type": "subscribe", "channel_id": "general"}`,
			`{"type": "error"}`,
			`{"type": "message_created", "id": "7c9e6679-7425-40de-944b-e07fc1f90ae7"}`,
		}
		for _, frame := range frames {
			_, err := Parse([]byte(frame))
			require.Error(t, err, frame)

			var verr *schema.ValidationError
			assert.True(t, errors.As(err, &verr), frame)
		}
	})

	t.Run("round trip through encode", func(t *testing.T) {
		data, err := Encode(Error{Message: "boom"})
		require.NoError(t, err)

		msg, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, Error{Message: "boom"}, msg)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		assert.Equal(t, "error", fields["type"])
	})
}
