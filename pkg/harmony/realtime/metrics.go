package realtime

import (
	"context"

	"github.com/tsarna/harmony/pkg/harmony/o11y"
)

// SessionMetrics holds the metric instruments recorded by a Session. A nil
// *SessionMetrics records nothing.
type SessionMetrics struct {
	// Connection metrics
	connectAttempts     o11y.Counter // Dial attempts, including reconnects
	connections         o11y.Counter // Attempts that reached the open state
	connectErrors       o11y.Counter // Attempts that failed before opening
	disconnects         o11y.Counter // Open connections that closed on their own
	reconnectsScheduled o11y.Counter // Reconnect timers armed
	connected           o11y.Gauge   // 1 while connected, 0 otherwise

	// Message metrics
	messagesReceived o11y.Counter   // Valid inbound messages, by type
	messagesInvalid  o11y.Counter   // Inbound frames that failed validation
	messagesSent     o11y.Counter   // Outbound messages handed to the writer, by type
	messagesDropped  o11y.Counter   // Outbound messages dropped, by reason
	messageSize      o11y.Histogram // Frame sizes in bytes, by direction
}

// NewSessionMetrics creates the instruments on provider. If the provider is
// nil, returns nil (no metrics will be collected).
func NewSessionMetrics(provider o11y.MetricsProvider) *SessionMetrics {
	if provider == nil {
		return nil
	}

	return &SessionMetrics{
		connectAttempts:     provider.Counter("realtime_connect_attempts_total"),
		connections:         provider.Counter("realtime_connections_total"),
		connectErrors:       provider.Counter("realtime_connect_errors_total"),
		disconnects:         provider.Counter("realtime_disconnects_total"),
		reconnectsScheduled: provider.Counter("realtime_reconnects_scheduled_total"),
		connected:           provider.Gauge("realtime_connected"),

		messagesReceived: provider.Counter("realtime_messages_received_total"),
		messagesInvalid:  provider.Counter("realtime_messages_invalid_total"),
		messagesSent:     provider.Counter("realtime_messages_sent_total"),
		messagesDropped:  provider.Counter("realtime_messages_dropped_total"),
		messageSize:      provider.Histogram("realtime_message_size_bytes"),
	}
}

func (m *SessionMetrics) RecordConnectAttempt(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectAttempts.Add(ctx, 1)
}

func (m *SessionMetrics) RecordConnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, 1)
	m.connected.Set(ctx, 1)
}

func (m *SessionMetrics) RecordConnectError(ctx context.Context, errorType string) {
	if m == nil {
		return
	}
	m.connectErrors.Add(ctx, 1, o11y.Label{Key: "error_type", Value: errorType})
}

func (m *SessionMetrics) RecordDisconnected(ctx context.Context, unexpected bool) {
	if m == nil {
		return
	}
	if unexpected {
		m.disconnects.Add(ctx, 1)
	}
	m.connected.Set(ctx, 0)
}

func (m *SessionMetrics) RecordReconnectScheduled(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnectsScheduled.Add(ctx, 1)
}

func (m *SessionMetrics) RecordMessageReceived(ctx context.Context, sizeBytes int, messageType string) {
	if m == nil {
		return
	}
	m.messagesReceived.Add(ctx, 1, o11y.Label{Key: "type", Value: messageType})
	m.messageSize.Record(ctx, float64(sizeBytes), o11y.Label{Key: "direction", Value: "received"})
}

func (m *SessionMetrics) RecordMessageInvalid(ctx context.Context, sizeBytes int) {
	if m == nil {
		return
	}
	m.messagesInvalid.Add(ctx, 1)
	m.messageSize.Record(ctx, float64(sizeBytes), o11y.Label{Key: "direction", Value: "received"})
}

func (m *SessionMetrics) RecordMessageSent(ctx context.Context, sizeBytes int, messageType string) {
	if m == nil {
		return
	}
	m.messagesSent.Add(ctx, 1, o11y.Label{Key: "type", Value: messageType})
	m.messageSize.Record(ctx, float64(sizeBytes), o11y.Label{Key: "direction", Value: "sent"})
}

func (m *SessionMetrics) RecordMessageDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.Add(ctx, 1, o11y.Label{Key: "reason", Value: reason})
}
