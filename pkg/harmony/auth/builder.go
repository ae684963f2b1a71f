package auth

import (
	"fmt"
	"time"

	"github.com/tsarna/harmony/pkg/harmony/notify"
	"github.com/tsarna/harmony/pkg/harmony/storage"
	"go.uber.org/zap"
)

// StoreBuilder provides a fluent interface for building auth stores.
type StoreBuilder struct {
	storage  storage.Storage
	api      Authenticator
	session  Connector
	navigate Navigator
	logger   *zap.Logger
	now      func() time.Time
}

func NewStore() *StoreBuilder {
	return &StoreBuilder{
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

func (b *StoreBuilder) WithStorage(s storage.Storage) *StoreBuilder {
	b.storage = s
	return b
}

func (b *StoreBuilder) WithAPI(api Authenticator) *StoreBuilder {
	b.api = api
	return b
}

func (b *StoreBuilder) WithSession(session Connector) *StoreBuilder {
	b.session = session
	return b
}

// WithNavigator sets the hook called with AppPath after signing in and
// LoginPath after signing out.
func (b *StoreBuilder) WithNavigator(navigate Navigator) *StoreBuilder {
	b.navigate = navigate
	return b
}

func (b *StoreBuilder) WithLogger(logger *zap.Logger) *StoreBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithNow replaces the clock used for token expiry checks.
func (b *StoreBuilder) WithNow(now func() time.Time) *StoreBuilder {
	if now != nil {
		b.now = now
	}
	return b
}

// IsValid checks that all required configuration is present.
func (b *StoreBuilder) IsValid() error {
	if b.storage == nil {
		return fmt.Errorf("storage is required")
	}
	if b.api == nil {
		return fmt.Errorf("API client is required")
	}
	if b.session == nil {
		return fmt.Errorf("session is required")
	}
	return nil
}

// Build creates the store in the signed-out state. Call Initialize to restore
// saved credentials.
func (b *StoreBuilder) Build() (*Store, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	return &Store{
		storage:  b.storage,
		api:      b.api,
		session:  b.session,
		navigate: b.navigate,
		logger:   b.logger.Named("auth"),
		now:      b.now,
		state:    notify.NewValue(State{}),
	}, nil
}
