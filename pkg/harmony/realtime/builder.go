package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tsarna/harmony/pkg/harmony/o11y"
	"go.uber.org/zap"
)

const (
	// DefaultReconnectDelay is the fixed wait between a close and the next
	// connection attempt.
	DefaultReconnectDelay = 3 * time.Second

	DefaultDialTimeout = 30 * time.Second

	// DefaultWriteChannelSize is the number of outbound frames that can be
	// queued per connection before Send starts dropping.
	DefaultWriteChannelSize = 100
)

// SessionBuilder provides a fluent interface for building realtime sessions.
type SessionBuilder struct {
	url              string
	logger           *zap.Logger
	dialer           Dialer
	dialTimeout      time.Duration
	clock            Clock
	reconnectDelay   time.Duration
	writeChannelSize int
	metrics          o11y.MetricsProvider
}

// NewSession creates a new session builder.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		logger:           zap.NewNop(),
		dialTimeout:      DefaultDialTimeout,
		reconnectDelay:   DefaultReconnectDelay,
		writeChannelSize: DefaultWriteChannelSize,
	}
}

// WithURL sets the realtime base URL, e.g. "ws://localhost:3000". The session
// connects to <url>/ws?token=<token>.
func (b *SessionBuilder) WithURL(url string) *SessionBuilder {
	b.url = url
	return b
}

// WithLogger sets the logger for the session.
func (b *SessionBuilder) WithLogger(logger *zap.Logger) *SessionBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithDialer replaces the default coder/websocket dialer.
func (b *SessionBuilder) WithDialer(dialer Dialer) *SessionBuilder {
	b.dialer = dialer
	return b
}

// WithDialTimeout sets the timeout for establishing the connection.
func (b *SessionBuilder) WithDialTimeout(timeout time.Duration) *SessionBuilder {
	if timeout > 0 {
		b.dialTimeout = timeout
	}
	return b
}

// WithClock replaces the clock used for the reconnect timer.
func (b *SessionBuilder) WithClock(clock Clock) *SessionBuilder {
	b.clock = clock
	return b
}

// WithReconnectDelay overrides the fixed reconnect delay. There is no backoff:
// every close waits exactly this long.
func (b *SessionBuilder) WithReconnectDelay(delay time.Duration) *SessionBuilder {
	if delay > 0 {
		b.reconnectDelay = delay
	}
	return b
}

// WithWriteChannelSize sets the per-connection outbound queue size.
func (b *SessionBuilder) WithWriteChannelSize(size int) *SessionBuilder {
	if size > 0 {
		b.writeChannelSize = size
	}
	return b
}

// WithMetrics records session metrics on provider.
func (b *SessionBuilder) WithMetrics(provider o11y.MetricsProvider) *SessionBuilder {
	b.metrics = provider
	return b
}

// IsValid checks that all required configuration is present.
func (b *SessionBuilder) IsValid() error {
	if b.url == "" {
		return fmt.Errorf("URL is required")
	}
	return nil
}

// Build creates the session. The session starts disconnected with no
// subscriptions.
func (b *SessionBuilder) Build() (*Session, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	dialer := b.dialer
	if dialer == nil {
		dialer = &WebSocketDialer{}
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}

	return &Session{
		url:              b.url,
		logger:           b.logger.Named("websocket"),
		dialer:           dialer,
		dialTimeout:      b.dialTimeout,
		clock:            clock,
		reconnectDelay:   b.reconnectDelay,
		writeChannelSize: b.writeChannelSize,
		metrics:          NewSessionMetrics(b.metrics),
		subscribed:       make(map[uuid.UUID]struct{}),
	}, nil
}
