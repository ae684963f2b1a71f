package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/schema"
)

// DefaultMessageLimit is the page size used by Messages when limit is not
// positive.
const DefaultMessageLimit = 50

var (
	serverList  = schema.ArrayOf(schema.Server)
	channelList = schema.ArrayOf(schema.Channel)
	messageList = schema.ArrayOf(schema.Message)
	profilePage = schema.PageOf(schema.FullProfile)
)

// Register creates an account. The request is validated locally first.
func (c *Client) Register(ctx context.Context, req harmony.RegisterRequest) (harmony.AuthResponse, error) {
	if err := schema.ValidateRegister(req); err != nil {
		return harmony.AuthResponse{}, err
	}
	return call(ctx, c, http.MethodPost, "/api/auth/register", req, schema.AuthResponse.Parse)
}

// Login authenticates with an email or username. The request is validated
// locally first.
func (c *Client) Login(ctx context.Context, req harmony.LoginRequest) (harmony.AuthResponse, error) {
	if err := schema.ValidateLogin(req); err != nil {
		return harmony.AuthResponse{}, err
	}
	return call(ctx, c, http.MethodPost, "/api/auth/login", req, schema.AuthResponse.Parse)
}

// Servers lists the servers the caller is a member of.
func (c *Client) Servers(ctx context.Context) ([]harmony.Server, error) {
	return call(ctx, c, http.MethodGet, "/api/servers", nil, serverList.Parse)
}

func (c *Client) CreateServer(ctx context.Context, name string) (harmony.Server, error) {
	body := map[string]string{"name": name}
	return call(ctx, c, http.MethodPost, "/api/servers", body, schema.Server.Parse)
}

func (c *Client) Server(ctx context.Context, serverID uuid.UUID) (harmony.Server, error) {
	return call(ctx, c, http.MethodGet, "/api/servers/"+serverID.String(), nil, schema.Server.Parse)
}

func (c *Client) DeleteServer(ctx context.Context, serverID uuid.UUID) error {
	return c.exec(ctx, http.MethodDelete, "/api/servers/"+serverID.String(), nil)
}

func (c *Client) ServerChannels(ctx context.Context, serverID uuid.UUID) ([]harmony.Channel, error) {
	return call(ctx, c, http.MethodGet, "/api/servers/"+serverID.String()+"/channels", nil, channelList.Parse)
}

func (c *Client) CreateChannel(ctx context.Context, serverID uuid.UUID, name string) (harmony.Channel, error) {
	body := map[string]string{"name": name}
	return call(ctx, c, http.MethodPost, "/api/servers/"+serverID.String()+"/channels", body, schema.Channel.Parse)
}

func (c *Client) DeleteChannel(ctx context.Context, channelID uuid.UUID) error {
	return c.exec(ctx, http.MethodDelete, "/api/channels/"+channelID.String(), nil)
}

// Messages returns up to limit messages of a channel, newest first. When
// before is set, only messages older than that message are returned.
func (c *Client) Messages(ctx context.Context, channelID uuid.UUID, limit int, before *uuid.UUID) ([]harmony.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if before != nil {
		params.Set("before", before.String())
	}
	endpoint := "/api/channels/" + channelID.String() + "/messages?" + params.Encode()
	return call(ctx, c, http.MethodGet, endpoint, nil, messageList.Parse)
}

func (c *Client) SendMessage(ctx context.Context, channelID uuid.UUID, content string) (harmony.Message, error) {
	body := map[string]string{"content": content}
	return call(ctx, c, http.MethodPost, "/api/channels/"+channelID.String()+"/messages", body, schema.Message.Parse)
}

// DMs lists the caller's direct message channels.
func (c *Client) DMs(ctx context.Context) ([]harmony.Channel, error) {
	return call(ctx, c, http.MethodGet, "/api/dms", nil, channelList.Parse)
}

// CreateDM opens (or returns the existing) direct message channel with
// recipientID.
func (c *Client) CreateDM(ctx context.Context, recipientID uuid.UUID) (harmony.Channel, error) {
	body := map[string]string{"recipient_id": recipientID.String()}
	return call(ctx, c, http.MethodPost, "/api/dms", body, schema.Channel.Parse)
}

func (c *Client) UserByUsername(ctx context.Context, username string) (harmony.Profile, error) {
	return call(ctx, c, http.MethodGet, "/api/users/username/"+url.PathEscape(username), nil, schema.Profile.Parse)
}

func (c *Client) SendFriendRequestByUsername(ctx context.Context, username string) (harmony.Friendship, error) {
	body := map[string]string{"username": username}
	return call(ctx, c, http.MethodPost, "/api/friends", body, schema.Friendship.Parse)
}

func (c *Client) SendFriendRequestByID(ctx context.Context, userID uuid.UUID) (harmony.Friendship, error) {
	return call(ctx, c, http.MethodPost, "/api/users/"+userID.String()+"/friend", nil, schema.Friendship.Parse)
}

func (c *Client) RejectFriendRequest(ctx context.Context, userID uuid.UUID) error {
	return c.exec(ctx, http.MethodPost, "/api/users/"+userID.String()+"/friend/reject", nil)
}

func (c *Client) RemoveFriend(ctx context.Context, userID uuid.UUID) error {
	return c.exec(ctx, http.MethodDelete, "/api/users/"+userID.String()+"/friend", nil)
}

// Friends lists accepted friends. A nil offset starts at the beginning.
func (c *Client) Friends(ctx context.Context, offset *int) (harmony.Page[harmony.FullProfile], error) {
	return call(ctx, c, http.MethodGet, "/api/friends"+offsetQuery(offset), nil, profilePage.Parse)
}

func (c *Client) IncomingFriendRequests(ctx context.Context, offset *int) (harmony.Page[harmony.FullProfile], error) {
	return call(ctx, c, http.MethodGet, "/api/friends/incoming"+offsetQuery(offset), nil, profilePage.Parse)
}

func (c *Client) OutgoingFriendRequests(ctx context.Context, offset *int) (harmony.Page[harmony.FullProfile], error) {
	return call(ctx, c, http.MethodGet, "/api/friends/outgoing"+offsetQuery(offset), nil, profilePage.Parse)
}

func (c *Client) ServerMembers(ctx context.Context, serverID uuid.UUID, offset *int) (harmony.Page[harmony.FullProfile], error) {
	return call(ctx, c, http.MethodGet, "/api/servers/"+serverID.String()+"/members"+offsetQuery(offset), nil, profilePage.Parse)
}

// SearchUsers finds users whose username matches the query.
func (c *Client) SearchUsers(ctx context.Context, username string) (harmony.Page[harmony.FullProfile], error) {
	params := url.Values{"username": {username}}
	return call(ctx, c, http.MethodGet, "/api/users/search?"+params.Encode(), nil, profilePage.Parse)
}

// Offset returns a pointer to offset, for the paginated listings.
func Offset(offset int) *int {
	return &offset
}

func offsetQuery(offset *int) string {
	if offset == nil {
		return ""
	}
	return "?" + url.Values{"offset": {strconv.Itoa(*offset)}}.Encode()
}
