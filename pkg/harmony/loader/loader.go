// Package loader prepares the data each client view needs before it is shown:
// restoring the session for the app shell and resolving which channel of a
// server to open.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultStaleTime is how long loaded data is reused before refetching.
const DefaultStaleTime = 60 * time.Second

// Initializer restores saved credentials. *auth.Store implements it.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// ServerAPI is the part of the REST client the loaders use. *api.Client
// implements it.
type ServerAPI interface {
	Server(ctx context.Context, serverID uuid.UUID) (harmony.Server, error)
	ServerChannels(ctx context.Context, serverID uuid.UUID) ([]harmony.Channel, error)
}

// History remembers the last channel per server. *history.Store implements
// it.
type History interface {
	LastChannel(ctx context.Context, serverID, mainChannelID string) string
	SetLastChannel(ctx context.Context, serverID, channelID string)
}

// Loader runs the view loaders.
type Loader struct {
	auth      Initializer
	api       ServerAPI
	history   History
	logger    *zap.Logger
	staleTime time.Duration
}

// Layout restores the session and returns the query cache shared by the
// views below it.
func (l *Loader) Layout(ctx context.Context) (*query.Client, error) {
	if err := l.auth.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	return query.NewClient(l.staleTime, query.WithLogger(l.logger)), nil
}

// ChannelParams are the route parameters of a channel view. ChannelID is
// optional.
type ChannelParams struct {
	ServerID  uuid.UUID
	ChannelID string
}

// ChannelPageData is the data of a channel view.
type ChannelPageData struct {
	Server   harmony.Server
	Channels []harmony.Channel

	// ChannelID is the channel to open, or "" when the server has none.
	ChannelID string
}

func ServerKey(serverID uuid.UUID) query.Key {
	return query.Key{"servers", serverID.String()}
}

func ChannelsKey(serverID uuid.UUID) query.Key {
	return query.Key{"servers", serverID.String(), "channels"}
}

// ChannelPage loads the server and its channels through the cache and picks
// the channel to open: the one named in params, else the last one visited
// (falling back to the server's main channel), else the first channel. The
// pick is recorded as the server's last visited channel.
func (l *Loader) ChannelPage(ctx context.Context, q *query.Client, params ChannelParams) (ChannelPageData, error) {
	var page ChannelPageData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server, err := query.EnsureData(gctx, q, ServerKey(params.ServerID), func(ctx context.Context) (harmony.Server, error) {
			return l.api.Server(ctx, params.ServerID)
		})
		page.Server = server
		return err
	})
	g.Go(func() error {
		channels, err := query.EnsureData(gctx, q, ChannelsKey(params.ServerID), func(ctx context.Context) ([]harmony.Channel, error) {
			return l.api.ServerChannels(ctx, params.ServerID)
		})
		page.Channels = channels
		return err
	})
	if err := g.Wait(); err != nil {
		return ChannelPageData{}, err
	}

	page.ChannelID = l.resolveChannel(ctx, params, page)
	if page.ChannelID != "" {
		l.history.SetLastChannel(ctx, params.ServerID.String(), page.ChannelID)
	}

	l.logger.Debug("Resolved channel",
		zap.Stringer("server_id", params.ServerID),
		zap.String("channel_id", page.ChannelID))
	return page, nil
}

func (l *Loader) resolveChannel(ctx context.Context, params ChannelParams, page ChannelPageData) string {
	if params.ChannelID != "" {
		return params.ChannelID
	}

	mainChannel := ""
	if page.Server.MainChannelID != nil {
		mainChannel = page.Server.MainChannelID.String()
	}
	// A remembered channel may have been deleted since it was visited.
	if id := l.history.LastChannel(ctx, params.ServerID.String(), mainChannel); hasChannel(page.Channels, id) {
		return id
	}
	if mainChannel != "" {
		return mainChannel
	}

	if len(page.Channels) > 0 {
		return page.Channels[0].ID.String()
	}
	return ""
}

func hasChannel(channels []harmony.Channel, id string) bool {
	for _, c := range channels {
		if c.ID.String() == id {
			return true
		}
	}
	return false
}
