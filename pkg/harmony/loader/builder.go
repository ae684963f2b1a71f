package loader

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LoaderBuilder provides a fluent interface for building loaders.
type LoaderBuilder struct {
	auth      Initializer
	api       ServerAPI
	history   History
	logger    *zap.Logger
	staleTime time.Duration
}

func NewLoader() *LoaderBuilder {
	return &LoaderBuilder{
		logger:    zap.NewNop(),
		staleTime: DefaultStaleTime,
	}
}

func (b *LoaderBuilder) WithAuth(auth Initializer) *LoaderBuilder {
	b.auth = auth
	return b
}

func (b *LoaderBuilder) WithAPI(api ServerAPI) *LoaderBuilder {
	b.api = api
	return b
}

func (b *LoaderBuilder) WithHistory(history History) *LoaderBuilder {
	b.history = history
	return b
}

func (b *LoaderBuilder) WithLogger(logger *zap.Logger) *LoaderBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithStaleTime sets the stale time of the query cache created by Layout.
func (b *LoaderBuilder) WithStaleTime(staleTime time.Duration) *LoaderBuilder {
	if staleTime > 0 {
		b.staleTime = staleTime
	}
	return b
}

// IsValid checks that all required configuration is present.
func (b *LoaderBuilder) IsValid() error {
	if b.auth == nil {
		return fmt.Errorf("auth store is required")
	}
	if b.api == nil {
		return fmt.Errorf("API client is required")
	}
	if b.history == nil {
		return fmt.Errorf("history store is required")
	}
	return nil
}

func (b *LoaderBuilder) Build() (*Loader, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	return &Loader{
		auth:      b.auth,
		api:       b.api,
		history:   b.history,
		logger:    b.logger.Named("loader"),
		staleTime: b.staleTime,
	}, nil
}
