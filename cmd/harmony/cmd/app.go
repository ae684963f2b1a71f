package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tsarna/harmony/pkg/harmony/api"
	"github.com/tsarna/harmony/pkg/harmony/auth"
	"github.com/tsarna/harmony/pkg/harmony/config"
	"github.com/tsarna/harmony/pkg/harmony/history"
	"github.com/tsarna/harmony/pkg/harmony/loader"
	harmonyotel "github.com/tsarna/harmony/pkg/harmony/otel"
	"github.com/tsarna/harmony/pkg/harmony/query"
	"github.com/tsarna/harmony/pkg/harmony/realtime"
	"github.com/tsarna/harmony/pkg/harmony/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired client components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	state   *storage.SQLite
	api     *api.Client
	session *realtime.Session
	auth    *auth.Store
	history *history.Store
	loader  *loader.Loader
	query   *query.Client
	live    bool
}

// offline stands in for the realtime session in one-shot commands, so that
// restoring credentials does not open a WebSocket.
type offline struct{}

func (offline) Connect(string) {}
func (offline) Disconnect()    {}

// newApp loads the configuration, opens local state and restores any saved
// credentials. live selects whether the realtime session is connected.
func newApp(ctx context.Context, live bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, live: live}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func loadConfig() (*config.Config, error) {
	cl := config.NewLoader().
		WithOverrides(config.Settings{
			APIURL:    overrides.apiURL,
			WSURL:     overrides.wsURL,
			StatePath: overrides.statePath,
			LogLevel:  overrides.logLevel,
		})
	if configFile != "" {
		cl = cl.WithFile(configFile)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (a *app) wire(ctx context.Context) error {
	var err error

	a.state, err = storage.OpenSQLite(a.cfg.StatePath)
	if err != nil {
		return err
	}

	provider := harmonyotel.NewProvider("harmony", Version)

	// The auth store owns the token but needs the client to sign in, so the
	// client reads it through a closure.
	a.api, err = api.NewClient().
		WithBaseURL(a.cfg.APIURL).
		WithTokenSource(func() string {
			if a.auth == nil {
				return ""
			}
			return a.auth.Token()
		}).
		WithTimeout(a.cfg.RequestTimeout).
		WithTracing(provider).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	a.session, err = realtime.NewSession().
		WithURL(a.cfg.WSURL).
		WithDialTimeout(a.cfg.DialTimeout).
		WithMetrics(provider).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create realtime session: %w", err)
	}

	var connector auth.Connector = offline{}
	if a.live {
		connector = a.session
	}

	a.auth, err = auth.NewStore().
		WithStorage(a.state).
		WithAPI(a.api).
		WithSession(connector).
		WithNavigator(func(path string) {
			a.logger.Debug("Navigate", zap.String("path", path))
		}).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create auth store: %w", err)
	}

	a.history, err = history.NewStore().
		WithStorage(a.state).
		WithMaxAge(a.cfg.HistoryMaxAge).
		WithLogger(a.logger).
		Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to load channel history: %w", err)
	}

	a.loader, err = loader.NewLoader().
		WithAuth(a.auth).
		WithAPI(a.api).
		WithHistory(a.history).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	a.query, err = a.loader.Layout(ctx)
	return err
}

// requireAuth fails unless a user is signed in.
func (a *app) requireAuth() error {
	if !a.auth.IsAuthenticated() {
		return fmt.Errorf("%w: run 'harmony login' first", auth.ErrNotAuthenticated)
	}
	return nil
}

// Close disconnects the session and releases local state.
func (a *app) Close() error {
	if a.session != nil {
		a.session.Disconnect()
	}

	var err error
	if a.state != nil {
		err = multierr.Append(err, a.state.Close())
	}
	if a.logger != nil {
		// Sync fails on some terminals; it is not worth reporting.
		_ = a.logger.Sync()
	}
	return err
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cmd *cobra.Command, live bool, fn func(context.Context, *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, live)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	return fn(ctx, a)
}

func setupLogger(level zapcore.Level) (*zap.Logger, error) {
	// Override log level based on flags
	if GetDebug() {
		level = zap.DebugLevel
	} else if GetVerbose() && level > zap.InfoLevel {
		level = zap.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Development = GetDebug()
	config.OutputPaths = []string{"stderr"}

	return config.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
