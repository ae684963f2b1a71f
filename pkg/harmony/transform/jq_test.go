package transform

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/wire"
	"go.uber.org/zap/zaptest"
)

var channelID = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

func created(content string) wire.Message {
	return wire.MessageCreated{Message: harmony.Message{
		ID:        uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		ChannelID: channelID,
		UserID:    uuid.MustParse("16fd2706-8baf-433b-82eb-8c7fada847da"),
		Username:  "alice",
		Content:   content,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}}
}

func TestIdentity(t *testing.T) {
	v, ok := Identity(wire.Subscribed{ChannelID: channelID})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "subscribed", "channel_id": channelID.String()}, v)
}

func TestJqFilter(t *testing.T) {
	t.Run("field extraction", func(t *testing.T) {
		filter, err := JqFilter(".content", nil, zaptest.NewLogger(t))
		require.NoError(t, err)

		v, ok := filter(created("hello"))
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	})

	t.Run("string interpolation", func(t *testing.T) {
		filter, err := JqFilter(`"\(.username): \(.content)"`, nil, nil)
		require.NoError(t, err)

		v, ok := filter(created("hi"))
		assert.True(t, ok)
		assert.Equal(t, "alice: hi", v)
	})

	t.Run("select drops non-matching messages", func(t *testing.T) {
		filter, err := JqFilter(`select($type == "message_created")`, nil, nil)
		require.NoError(t, err)

		_, ok := filter(wire.Subscribed{ChannelID: channelID})
		assert.False(t, ok)

		v, ok := filter(created("hi"))
		assert.True(t, ok)
		assert.Equal(t, "hi", v.(map[string]any)["content"])
	})

	t.Run("multiple results become an array", func(t *testing.T) {
		filter, err := JqFilter(".type, .channel_id", nil, nil)
		require.NoError(t, err)

		v, ok := filter(wire.Unsubscribed{ChannelID: channelID})
		assert.True(t, ok)
		assert.Equal(t, []any{"unsubscribed", channelID.String()}, v)
	})

	t.Run("runtime error shows the message unchanged", func(t *testing.T) {
		filter, err := JqFilter(".content | tonumber", nil, zaptest.NewLogger(t))
		require.NoError(t, err)

		v, ok := filter(created("not a number"))
		assert.True(t, ok)
		assert.Equal(t, "message_created", v.(map[string]any)["type"])
	})

	t.Run("variables", func(t *testing.T) {
		vars := map[string]any{"me": "alice", "prefix": ">"}
		filter, err := JqFilter(`select(.username == $me) | "\($prefix) \(.content)"`, vars, nil)
		require.NoError(t, err)

		v, ok := filter(created("hi"))
		assert.True(t, ok)
		assert.Equal(t, "> hi", v)

		filter, err = JqFilter(`select(.username == $me)`, map[string]any{"me": "bob"}, nil)
		require.NoError(t, err)
		_, ok = filter(created("hi"))
		assert.False(t, ok)
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := JqFilter(".[", nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JQ query")

		_, err = JqFilter("$undefined", nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to compile JQ query")
	})
}
