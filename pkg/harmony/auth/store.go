// Package auth holds the signed-in user and their token, persists them across
// runs and keeps the realtime session connected while signed in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tsarna/harmony/pkg/harmony"
	"github.com/tsarna/harmony/pkg/harmony/notify"
	"github.com/tsarna/harmony/pkg/harmony/schema"
	"github.com/tsarna/harmony/pkg/harmony/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Storage keys for the persisted credentials.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Navigation targets after sign-in and sign-out.
const (
	AppPath   = "/app"
	LoginPath = "/login"
)

const (
	loginFailed        = "Login failed"
	registrationFailed = "Registration failed"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")
)

// State is a snapshot of the store.
type State struct {
	User    *harmony.User
	Token   string
	Loading bool

	// Error is the message of the last failed Login or Register, or "".
	Error string
}

// Authenticated reports whether both a user and a token are present.
func (s State) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Authenticator performs the login and register calls. *api.Client
// implements it.
type Authenticator interface {
	Login(ctx context.Context, req harmony.LoginRequest) (harmony.AuthResponse, error)
	Register(ctx context.Context, req harmony.RegisterRequest) (harmony.AuthResponse, error)
}

// Connector is the part of the realtime session the store drives.
// *realtime.Session implements it.
type Connector interface {
	Connect(token string)
	Disconnect()
}

// Navigator is told where the user should go after signing in or out.
type Navigator func(path string)

// Store is the authentication state. It is safe for concurrent use.
type Store struct {
	storage  storage.Storage
	api      Authenticator
	session  Connector
	navigate Navigator
	logger   *zap.Logger
	now      func() time.Time

	state *notify.Value[State]
}

// Initialize restores credentials saved by a previous run. When both a token
// and a user are stored it adopts them and connects the session. Stored data
// that cannot be used (a malformed user, an expired token) signs the user out
// instead of returning an error.
func (s *Store) Initialize(ctx context.Context) error {
	token, err := s.storage.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) || token == "" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	rawUser, err := s.storage.Get(ctx, UserKey)
	if errors.Is(err, storage.ErrNotFound) || rawUser == "" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}

	user, err := s.restore(token, rawUser)
	if err != nil {
		s.logger.Info("Failed to restore auth state", zap.Error(err))
		return s.Logout(ctx)
	}

	s.state.Update(func(st *State) {
		st.User = &user
		st.Token = token
	})
	s.logger.Debug("Restored auth state", zap.String("username", user.Username))
	s.session.Connect(token)
	return nil
}

func (s *Store) restore(token, rawUser string) (harmony.User, error) {
	user, err := schema.User.Parse([]byte(rawUser))
	if err != nil {
		return harmony.User{}, err
	}
	if err := s.checkExpiry(token); err != nil {
		return harmony.User{}, err
	}
	return user, nil
}

// checkExpiry rejects tokens whose exp claim has passed. The signature is not
// checked; the server remains the authority. Tokens that are not JWTs, or
// carry no exp, are accepted.
func (s *Store) checkExpiry(token string) error {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		s.logger.Debug("Token is not a JWT, skipping expiry check", zap.Error(err))
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if !claims.ExpiresAt.Time.After(s.now()) {
		return ErrTokenExpired
	}
	return nil
}

// Login signs in. On failure the error is returned and its message is kept
// in State.Error.
func (s *Store) Login(ctx context.Context, req harmony.LoginRequest) error {
	return s.authenticate(ctx, loginFailed, func() (harmony.AuthResponse, error) {
		return s.api.Login(ctx, req)
	})
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, req harmony.RegisterRequest) error {
	return s.authenticate(ctx, registrationFailed, func() (harmony.AuthResponse, error) {
		return s.api.Register(ctx, req)
	})
}

func (s *Store) authenticate(ctx context.Context, fallback string, call func() (harmony.AuthResponse, error)) error {
	s.state.Update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	err := s.attempt(ctx, call)
	s.state.Update(func(st *State) {
		st.Loading = false
		if err != nil {
			st.Error = err.Error()
			if st.Error == "" {
				st.Error = fallback
			}
		}
	})
	if err != nil {
		s.logger.Info(fallback, zap.Error(err))
		return err
	}

	s.navigateTo(AppPath)
	return nil
}

func (s *Store) attempt(ctx context.Context, call func() (harmony.AuthResponse, error)) error {
	resp, err := call()
	if err != nil {
		return err
	}
	return s.setAuth(ctx, resp.User, resp.Token)
}

func (s *Store) setAuth(ctx context.Context, user harmony.User, token string) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.storage.Set(ctx, UserKey, string(rawUser)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.state.Update(func(st *State) {
		st.User = &user
		st.Token = token
	})
	s.logger.Info("Signed in", zap.String("username", user.Username))
	s.session.Connect(token)
	return nil
}

// Logout forgets the credentials, disconnects the session and navigates to
// the login page. The in-memory state is cleared even when removing the
// persisted keys fails.
func (s *Store) Logout(ctx context.Context) error {
	s.state.Update(func(st *State) {
		st.User = nil
		st.Token = ""
		st.Error = ""
	})

	err := multierr.Combine(
		s.storage.Remove(ctx, TokenKey),
		s.storage.Remove(ctx, UserKey),
	)

	s.session.Disconnect()
	s.logger.Info("Signed out")
	s.navigateTo(LoginPath)

	if err != nil {
		return fmt.Errorf("failed to clear stored credentials: %w", err)
	}
	return nil
}

func (s *Store) navigateTo(path string) {
	if s.navigate != nil {
		s.navigate(path)
	}
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	return s.state.Get()
}

func (s *Store) IsAuthenticated() bool {
	return s.state.Get().Authenticated()
}

// Token returns the current token, or "". It can be passed directly as the
// REST client's token source.
func (s *Store) Token() string {
	return s.state.Get().Token
}

// User returns the signed-in user, or ErrNotAuthenticated.
func (s *Store) User() (harmony.User, error) {
	st := s.state.Get()
	if !st.Authenticated() {
		return harmony.User{}, ErrNotAuthenticated
	}
	return *st.User, nil
}

// Watch registers fn for every state change.
func (s *Store) Watch(fn func(State)) notify.Handle {
	return s.state.Watch(fn)
}

func (s *Store) Unwatch(h notify.Handle) bool {
	return s.state.Unwatch(h)
}
