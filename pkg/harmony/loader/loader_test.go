package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/history"
	"github.com/tsarna/harmony/pkg/harmony/storage"
)

var (
	serverID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	general  = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	random   = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	mainChan = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
)

type fakeAuth struct {
	calls int
	err   error
}

func (f *fakeAuth) Initialize(context.Context) error {
	f.calls++
	return f.err
}

type fakeAPI struct {
	server       harmony.Server
	channels     []harmony.Channel
	err          error
	serverCalls  atomic.Int32
	channelCalls atomic.Int32
}

func (f *fakeAPI) Server(_ context.Context, id uuid.UUID) (harmony.Server, error) {
	f.serverCalls.Add(1)
	if f.err != nil {
		return harmony.Server{}, f.err
	}
	s := f.server
	s.ID = id
	return s, nil
}

func (f *fakeAPI) ServerChannels(context.Context, uuid.UUID) ([]harmony.Channel, error) {
	f.channelCalls.Add(1)
	return f.channels, nil
}

type fixture struct {
	loader  *Loader
	auth    *fakeAuth
	api     *fakeAPI
	history *history.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hist, err := history.NewStore().WithStorage(storage.NewMemory()).Build(context.Background())
	require.NoError(t, err)

	f := &fixture{
		auth: &fakeAuth{},
		api: &fakeAPI{
			server:   harmony.Server{Name: "Gophers"},
			channels: []harmony.Channel{{ID: general, Name: "general"}, {ID: random, Name: "random"}},
		},
		history: hist,
	}
	f.loader, err = NewLoader().WithAuth(f.auth).WithAPI(f.api).WithHistory(hist).Build()
	require.NoError(t, err)
	return f
}

func TestLoaderBuilder(t *testing.T) {
	_, err := NewLoader().Build()
	assert.ErrorContains(t, err, "auth store is required")

	_, err = NewLoader().WithAuth(&fakeAuth{}).Build()
	assert.ErrorContains(t, err, "API client is required")

	_, err = NewLoader().WithAuth(&fakeAuth{}).WithAPI(&fakeAPI{}).Build()
	assert.ErrorContains(t, err, "history store is required")

	b := NewLoader().WithStaleTime(0).WithLogger(nil)
	assert.Equal(t, DefaultStaleTime, b.staleTime)
}

func TestLayout(t *testing.T) {
	f := newFixture(t)

	q, err := f.loader.Layout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.auth.calls)
	assert.Equal(t, 60*time.Second, q.StaleTime())

	f.auth.err = errors.New("disk on fire")
	_, err = f.loader.Layout(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestChannelPage(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit channel wins", func(t *testing.T) {
		f := newFixture(t)
		q, err := f.loader.Layout(ctx)
		require.NoError(t, err)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID, ChannelID: random.String()})
		require.NoError(t, err)
		assert.Equal(t, random.String(), page.ChannelID)
		assert.Equal(t, "Gophers", page.Server.Name)
		assert.Len(t, page.Channels, 2)
		assert.Equal(t, random.String(), f.history.LastChannel(ctx, serverID.String(), ""))
	})

	t.Run("history before main channel", func(t *testing.T) {
		f := newFixture(t)
		f.api.server.MainChannelID = &mainChan
		f.history.SetLastChannel(ctx, serverID.String(), random.String())
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, random.String(), page.ChannelID)
	})

	t.Run("deleted channel in history falls back to main channel", func(t *testing.T) {
		f := newFixture(t)
		f.api.server.MainChannelID = &mainChan
		f.history.SetLastChannel(ctx, serverID.String(), uuid.NewString())
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, mainChan.String(), page.ChannelID)
		assert.Equal(t, mainChan.String(), f.history.LastChannel(ctx, serverID.String(), ""))
	})

	t.Run("deleted channel in history falls back to first channel", func(t *testing.T) {
		f := newFixture(t)
		f.history.SetLastChannel(ctx, serverID.String(), uuid.NewString())
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, general.String(), page.ChannelID)
	})

	t.Run("main channel without history", func(t *testing.T) {
		f := newFixture(t)
		f.api.server.MainChannelID = &mainChan
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, mainChan.String(), page.ChannelID)
		assert.True(t, f.history.HasHistory(serverID.String()))
	})

	t.Run("first channel without main channel", func(t *testing.T) {
		f := newFixture(t)
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, general.String(), page.ChannelID)
	})

	t.Run("empty server", func(t *testing.T) {
		f := newFixture(t)
		f.api.channels = nil
		q, _ := f.loader.Layout(ctx)

		page, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		require.NoError(t, err)
		assert.Equal(t, "", page.ChannelID)
		assert.False(t, f.history.HasHistory(serverID.String()))
	})

	t.Run("data is cached between loads", func(t *testing.T) {
		f := newFixture(t)
		q, _ := f.loader.Layout(ctx)

		for i := 0; i < 3; i++ {
			_, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), f.api.serverCalls.Load())
		assert.Equal(t, int32(1), f.api.channelCalls.Load())
	})

	t.Run("fetch errors are returned", func(t *testing.T) {
		f := newFixture(t)
		f.api.err = errors.New("not found")
		q, _ := f.loader.Layout(ctx)

		_, err := f.loader.ChannelPage(ctx, q, ChannelParams{ServerID: serverID})
		assert.ErrorContains(t, err, "not found")
	})
}
