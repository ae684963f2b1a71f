package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tsarna/harmony/pkg/harmony/o11y"
	"github.com/tsarna/harmony/pkg/harmony/schema"
	"go.uber.org/zap"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Client talks to the Harmony REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *zap.Logger
	tracing    o11y.TracingProvider
	timeout    time.Duration
}

// BaseURL returns the API origin the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call performs a request and decodes a successful response body with decode.
func call[T any](ctx context.Context, c *Client, method, endpoint string, body any, decode func([]byte) (T, error)) (T, error) {
	var zero T

	status, data, err := c.do(ctx, method, endpoint, body)
	if err != nil {
		return zero, err
	}

	v, err := decode(data)
	if err != nil {
		c.logger.Warn("Unexpected response",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return zero, &Error{Status: status, Message: UnexpectedResponseMessage, Err: err}
	}
	return v, nil
}

// exec performs a request whose response body is ignored.
func (c *Client) exec(ctx context.Context, method, endpoint string, body any) error {
	_, _, err := c.do(ctx, method, endpoint, body)
	return err
}

// do sends the request and returns the status and body of a 2xx response.
// Any other status becomes an *Error.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (int, []byte, error) {
	ctx, span := o11y.StartSpan(ctx, c.tracing, "api "+method+" "+endpoint)
	defer span.End()
	span.SetAttributes(
		o11y.Label{Key: "http.method", Value: method},
		o11y.Label{Key: "http.target", Value: endpoint},
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			span.SetStatus(o11y.SpanStatusError, err.Error())
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		span.SetStatus(o11y.SpanStatusError, err.Error())
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		span.SetStatus(o11y.SpanStatusError, err.Error())
		return 0, nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		span.SetStatus(o11y.SpanStatusError, err.Error())
		return resp.StatusCode, nil, fmt.Errorf("%s %s: failed to read response: %w", method, endpoint, err)
	}

	span.SetAttributes(o11y.Label{Key: "http.status_code", Value: fmt.Sprint(resp.StatusCode)})
	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(data)}
		span.SetStatus(o11y.SpanStatusError, apiErr.Message)
		return resp.StatusCode, nil, apiErr
	}

	span.SetStatus(o11y.SpanStatusOK, "")
	return resp.StatusCode, data, nil
}

// errorMessage extracts the user-facing message from a failure body,
// preferring "message" over "error".
func errorMessage(data []byte) string {
	body, err := schema.ErrorResponse.Parse(data)
	if err != nil {
		return DefaultErrorMessage
	}
	if body.Message != nil && *body.Message != "" {
		return *body.Message
	}
	if body.Error != nil && *body.Error != "" {
		return *body.Error
	}
	return DefaultErrorMessage
}
