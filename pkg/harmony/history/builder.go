package history

import (
	"context"
	"fmt"
	"time"

	"github.com/tsarna/harmony/pkg/harmony/storage"
	"go.uber.org/zap"
)

// StoreBuilder provides a fluent interface for building history stores.
type StoreBuilder struct {
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
	maxAge  time.Duration
}

func NewStore() *StoreBuilder {
	return &StoreBuilder{
		logger: zap.NewNop(),
		now:    time.Now,
		maxAge: DefaultMaxAge,
	}
}

func (b *StoreBuilder) WithStorage(s storage.Storage) *StoreBuilder {
	b.storage = s
	return b
}

func (b *StoreBuilder) WithLogger(logger *zap.Logger) *StoreBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithNow replaces the clock used for visit times and expiry.
func (b *StoreBuilder) WithNow(now func() time.Time) *StoreBuilder {
	if now != nil {
		b.now = now
	}
	return b
}

// WithMaxAge sets how long entries are kept. Zero or negative values are
// ignored.
func (b *StoreBuilder) WithMaxAge(maxAge time.Duration) *StoreBuilder {
	if maxAge > 0 {
		b.maxAge = maxAge
	}
	return b
}

// IsValid checks that all required configuration is present.
func (b *StoreBuilder) IsValid() error {
	if b.storage == nil {
		return fmt.Errorf("storage is required")
	}
	return nil
}

// Build loads the persisted history and prunes expired entries.
func (b *StoreBuilder) Build(ctx context.Context) (*Store, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	s := &Store{
		storage: b.storage,
		logger:  b.logger.Named("history"),
		now:     b.now,
		maxAge:  b.maxAge,
	}
	s.load(ctx)
	s.Prune(ctx)
	return s, nil
}
