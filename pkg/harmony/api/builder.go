package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tsarna/harmony/pkg/harmony/o11y"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single request, including reading the body.
const DefaultTimeout = 30 * time.Second

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// ClientBuilder provides a fluent interface for building REST clients.
type ClientBuilder struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *zap.Logger
	tracing    o11y.TracingProvider
	timeout    time.Duration
}

// NewClient creates a new client builder.
func NewClient() *ClientBuilder {
	return &ClientBuilder{
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
	}
}

// WithBaseURL sets the API origin, e.g. "http://localhost:3000". Endpoint
// paths such as "/api/servers" are appended to it.
func (b *ClientBuilder) WithBaseURL(baseURL string) *ClientBuilder {
	b.baseURL = baseURL
	return b
}

// WithHTTPClient replaces http.DefaultClient.
func (b *ClientBuilder) WithHTTPClient(client *http.Client) *ClientBuilder {
	b.httpClient = client
	return b
}

// WithTokenSource sets where the bearer token comes from.
func (b *ClientBuilder) WithTokenSource(source TokenSource) *ClientBuilder {
	b.token = source
	return b
}

// WithToken uses a fixed bearer token.
func (b *ClientBuilder) WithToken(token string) *ClientBuilder {
	b.token = func() string { return token }
	return b
}

func (b *ClientBuilder) WithLogger(logger *zap.Logger) *ClientBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithTracing starts a span for every request.
func (b *ClientBuilder) WithTracing(provider o11y.TracingProvider) *ClientBuilder {
	b.tracing = provider
	return b
}

// WithTimeout sets the per-request timeout. Zero or negative values are ignored.
func (b *ClientBuilder) WithTimeout(timeout time.Duration) *ClientBuilder {
	if timeout > 0 {
		b.timeout = timeout
	}
	return b
}

// IsValid checks that all required configuration is present.
func (b *ClientBuilder) IsValid() error {
	if b.baseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL: scheme must be http or https")
	}
	return nil
}

// Build creates the client.
func (b *ClientBuilder) Build() (*Client, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	token := b.token
	if token == nil {
		token = func() string { return "" }
	}

	return &Client{
		baseURL:    strings.TrimRight(b.baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     b.logger.Named("api"),
		tracing:    b.tracing,
		timeout:    b.timeout,
	}, nil
}
