package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/harmony/pkg/harmony"
)

const validUser = `{
	"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11",
	"username": "alice",
	"email": "alice@example.com",
	"created_at": "2024-05-01T10:00:00Z",
	"extra": "ignored"
}`

func TestObjectParse(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		user, err := User.Parse([]byte(validUser))
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", user.ID.String())
		assert.Equal(t, 2024, user.CreatedAt.Year())
	})

	t.Run("missing fields are all reported", func(t *testing.T) {
		_, err := User.Parse([]byte(`{"username": "alice"}`))
		require.Error(t, err)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "user", verr.Schema)

		paths := make([]string, 0)
		for _, issue := range verr.Issues() {
			paths = append(paths, issue.Path)
		}
		assert.ElementsMatch(t, []string{"id", "email", "created_at"}, paths)
	})

	t.Run("null in required field", func(t *testing.T) {
		_, err := Server.Parse([]byte(`{"id": null, "name": "x", "owner_id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "is_owner": true, "created_at": "2024-05-01T10:00:00Z"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id: must not be null")
	})

	t.Run("malformed uuid", func(t *testing.T) {
		_, err := Message.Parse([]byte(`{
			"id": "nope", "channel_id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11",
			"user_id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "username": "a", "content": "hi",
			"created_at": "2024-05-01T10:00:00Z", "updated_at": "2024-05-01T10:00:00Z"}`))
		require.Error(t, err)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		_, err := User.Parse([]byte(`{"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "username": "a", "email": "a@b.co", "created_at": "yesterday"}`))
		require.Error(t, err)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := User.Parse([]byte(`{"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "username": "a", "email": "Alice <a@b.co>", "created_at": "2024-05-01T10:00:00Z"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email: invalid email address")
	})

	t.Run("not an object", func(t *testing.T) {
		for _, input := range []string{`[]`, `null`, `"x"`, `{`} {
			_, err := User.Parse([]byte(input))
			assert.ErrorContains(t, err, ErrNotObject.Error(), input)
		}
	})
}

func TestChannelSchema(t *testing.T) {
	t.Run("nullable fields", func(t *testing.T) {
		channel, err := Channel.Parse([]byte(`{
			"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "server_id": null, "name": "general",
			"position": 0, "channel_type": "dm", "topic": null, "is_private": true,
			"created_at": "2024-05-01T10:00:00Z"}`))
		require.NoError(t, err)
		assert.Nil(t, channel.ServerID)
		assert.Nil(t, channel.Topic)
		assert.Equal(t, harmony.ChannelTypeDM, channel.ChannelType)
	})

	t.Run("unknown channel type", func(t *testing.T) {
		_, err := Channel.Parse([]byte(`{
			"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11", "name": "general",
			"position": 0, "channel_type": "forum", "is_private": false,
			"created_at": "2024-05-01T10:00:00Z"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel_type")
	})
}

func TestArrayAndPage(t *testing.T) {
	t.Run("array reports element index", func(t *testing.T) {
		_, err := ArrayOf(User).Parse([]byte(`[` + validUser + `, {"username": "bob"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[1].id: required")
	})

	t.Run("array rejects object", func(t *testing.T) {
		_, err := ArrayOf(User).Parse([]byte(validUser))
		assert.ErrorContains(t, err, ErrNotArray.Error())
	})

	t.Run("empty array", func(t *testing.T) {
		users, err := ArrayOf(User).Parse([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("page normalises friendship status", func(t *testing.T) {
		page, err := PageOf(Friendship).Parse([]byte(`{
			"data": [{
				"user_low": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11",
				"user_high": "6b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11",
				"sender_id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11",
				"status": "accpted",
				"created_at": "2024-05-01T10:00:00Z",
				"updated_at": "2024-05-01T10:00:00Z"
			}],
			"limit": 50, "offset": 0, "has_more": false}`))
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, harmony.FriendshipAccepted, page.Data[0].Status)
		assert.Equal(t, 50, page.Limit)
	})

	t.Run("page element errors are prefixed", func(t *testing.T) {
		_, err := PageOf(FullProfile).Parse([]byte(`{"data": [{"id": "5b0e4d2a-9c1f-4f7e-8a59-0d2b5c3e7f11"}], "limit": 1, "offset": 0, "has_more": true}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data[0].username: required")
	})
}

func TestAuthResponseNestedUser(t *testing.T) {
	_, err := AuthResponse.Parse([]byte(`{"user": {"username": "alice"}, "token": "t"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user.id: required")

	resp, err := AuthResponse.Parse([]byte(`{"user": ` + validUser + `, "token": "t"}`))
	require.NoError(t, err)
	assert.Equal(t, "t", resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestRequestValidation(t *testing.T) {
	assert.NoError(t, ValidateLogin(harmony.LoginRequest{Username: "alice", Password: "password1"}))
	assert.NoError(t, ValidateLogin(harmony.LoginRequest{Email: "a@b.co", Password: "password1"}))

	err := ValidateLogin(harmony.LoginRequest{Password: "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either email or username must be provided")
	assert.Contains(t, err.Error(), "password: must be at least 8 characters")

	assert.NoError(t, ValidateRegister(harmony.RegisterRequest{Username: "bob", Email: "b@b.co", Password: "password1"}))
	assert.Error(t, ValidateRegister(harmony.RegisterRequest{Username: "bo", Email: "b@b.co", Password: "password1"}))
	assert.Error(t, ValidateRegister(harmony.RegisterRequest{Username: "bob", Email: "not-an-email", Password: "password1"}))
}
