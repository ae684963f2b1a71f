package harmony

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is a community that owns a set of channels.
type Server struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	MainChannelID *uuid.UUID `json:"main_channel_id,omitempty"`
	IsOwner       bool       `json:"is_owner"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChannelType distinguishes the kinds of chat destination.
type ChannelType string

const (
	ChannelTypeText    ChannelType = "text"
	ChannelTypeVoice   ChannelType = "voice"
	ChannelTypeDM      ChannelType = "dm"
	ChannelTypeGroupDM ChannelType = "group_dm"
)

// Valid reports whether t is one of the known channel types.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypeText, ChannelTypeVoice, ChannelTypeDM, ChannelTypeGroupDM:
		return true
	}
	return false
}

// Channel is a chat destination. Server channels carry a ServerID, direct
// message channels do not.
type Channel struct {
	ID          uuid.UUID   `json:"id"`
	ServerID    *uuid.UUID  `json:"server_id,omitempty"`
	Name        string      `json:"name"`
	Position    float64     `json:"position"`
	ChannelType ChannelType `json:"channel_type"`
	Topic       *string     `json:"topic,omitempty"`
	IsPrivate   bool        `json:"is_private"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Message is a chat message posted to a channel.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is a user's presence.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusDND, StatusOffline:
		return true
	}
	return false
}

// Profile is the public profile attached to a user.
type Profile struct {
	UserID           uuid.UUID `json:"user_id"`
	DisplayName      *string   `json:"display_name,omitempty"`
	Bio              *string   `json:"bio,omitempty"`
	AvatarURL        *string   `json:"avatar_url,omitempty"`
	BannerURL        *string   `json:"banner_url,omitempty"`
	Status           Status    `json:"status"`
	CustomStatus     *string   `json:"custom_status,omitempty"`
	StatusEmoji      *string   `json:"status_emoji,omitempty"`
	ShowOnlineStatus bool      `json:"show_online_status"`
	AllowDMs         bool      `json:"allow_dms"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullProfile is a user joined with their profile, as returned by friend,
// member and search listings.
type FullProfile struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	DisplayName      *string   `json:"display_name,omitempty"`
	Bio              *string   `json:"bio,omitempty"`
	AvatarURL        *string   `json:"avatar_url,omitempty"`
	BannerURL        *string   `json:"banner_url,omitempty"`
	Status           Status    `json:"status"`
	CustomStatus     *string   `json:"custom_status,omitempty"`
	StatusEmoji      *string   `json:"status_emoji,omitempty"`
	ShowOnlineStatus bool      `json:"show_online_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// FriendshipStatus is the state of a friendship edge.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Normalize maps legacy spellings onto the canonical status.
func (s FriendshipStatus) Normalize() FriendshipStatus {
	if s == "accpted" {
		return FriendshipAccepted
	}
	return s
}

func (s FriendshipStatus) Valid() bool {
	switch s.Normalize() {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected, FriendshipBlocked:
		return true
	}
	return false
}

// Friendship links two users. UserLow and UserHigh are ordered so that each
// pair of users has exactly one edge.
type Friendship struct {
	UserLow   uuid.UUID        `json:"user_low"`
	UserHigh  uuid.UUID        `json:"user_high"`
	SenderID  uuid.UUID        `json:"sender_id"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Page is one window of a paginated listing.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse is the body returned by the API on failure.
type ErrorResponse struct {
	Error   *string `json:"error,omitempty"`
	Message *string `json:"message,omitempty"`
}

// LoginRequest authenticates with either an email or a username.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both login and register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
