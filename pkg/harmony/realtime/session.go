package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsarna/harmony/pkg/harmony/notify"
	"github.com/tsarna/harmony/pkg/harmony/wire"
	"go.uber.org/zap"
)

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Handler receives every valid inbound message.
type Handler func(msg wire.Message)

// Session owns the realtime connection of one signed-in client: a single
// socket, the set of subscribed channels and the reconnect timer.
//
// The subscription set outlives individual sockets. It is replayed as
// subscribe messages after every successful (re)connection, so callers can
// subscribe at any time and rely on the session to catch up. Only Disconnect
// clears it.
//
// None of the methods block on the network. Inbound messages are delivered on
// the connection's reader goroutine, one at a time, in the order received.
type Session struct {
	url              string
	logger           *zap.Logger
	dialer           Dialer
	dialTimeout      time.Duration
	clock            Clock
	reconnectDelay   time.Duration
	writeChannelSize int
	metrics          *SessionMetrics

	mu         sync.Mutex
	state      State
	link       *link
	generation uint64
	cancel     context.CancelFunc
	timer      Timer
	timerSeq   uint64
	subscribed map[uuid.UUID]struct{}

	listeners notify.Registry[wire.Message]
	watchers  notify.Registry[State]
}

// link is one open socket and its outbound queue. replay holds the
// subscribe frames for the subscription set at the moment the link opened;
// they are written before anything queued on out.
type link struct {
	conn   Conn
	out    chan []byte
	replay [][]byte
}

// Connect starts connecting with token unless a connection is already open or
// being established. It returns immediately; failures are retried after the
// reconnect delay until Disconnect is called.
func (s *Session) Connect(token string) {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateConnecting
	s.mu.Unlock()

	s.watchers.Notify(StateConnecting)
	s.metrics.RecordConnectAttempt(ctx)

	go s.run(ctx, gen, token)
}

// Disconnect closes the connection, cancels any pending reconnect and forgets
// every subscription. It is safe to call at any time and more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.generation++

	l := s.link
	s.link = nil
	cancel := s.cancel
	s.cancel = nil
	changed := s.state != StateDisconnected
	s.state = StateDisconnected
	s.subscribed = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if l != nil {
		// The close handshake can take a while; don't make the caller wait.
		go s.closeConn(l.conn)
	}

	if changed {
		s.logger.Info("Disconnected")
		s.metrics.RecordDisconnected(context.Background(), false)
		s.watchers.Notify(StateDisconnected)
	}
}

// Send queues msg for the open connection. It is silently dropped when the
// session is not connected; there is no buffering across connections.
func (s *Session) Send(msg wire.Message) {
	s.mu.Lock()
	l := s.link
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || l == nil {
		s.logger.Debug("Dropping message, not connected", zap.String("type", string(msg.MessageType())))
		s.metrics.RecordMessageDropped(context.Background(), "disconnected")
		return
	}

	data, err := wire.Encode(msg)
	if err != nil {
		s.logger.Warn("Failed to encode message", zap.String("type", string(msg.MessageType())), zap.Error(err))
		return
	}

	select {
	case l.out <- data:
		s.metrics.RecordMessageSent(context.Background(), len(data), string(msg.MessageType()))
	default:
		s.logger.Warn("Write channel is full, dropping message", zap.String("type", string(msg.MessageType())))
		s.metrics.RecordMessageDropped(context.Background(), "queue_full")
	}
}

// Subscribe records channelID in the subscription set and, when connected,
// tells the server right away. Otherwise the subscription is sent on the next
// successful connection.
func (s *Session) Subscribe(channelID uuid.UUID) {
	s.mu.Lock()
	s.subscribed[channelID] = struct{}{}
	connected := s.state == StateConnected
	s.mu.Unlock()

	s.logger.Debug("Subscribed to channel", zap.Stringer("channel_id", channelID))
	if connected {
		s.Send(wire.Subscribe{ChannelID: channelID})
	}
}

// Unsubscribe removes channelID from the subscription set and, when
// connected, tells the server right away.
func (s *Session) Unsubscribe(channelID uuid.UUID) {
	s.mu.Lock()
	delete(s.subscribed, channelID)
	connected := s.state == StateConnected
	s.mu.Unlock()

	s.logger.Debug("Unsubscribed from channel", zap.Stringer("channel_id", channelID))
	if connected {
		s.Send(wire.Unsubscribe{ChannelID: channelID})
	}
}

// OnMessage registers h for every valid inbound message. Handlers run in
// registration order on the reader goroutine; a slow handler delays the ones
// after it.
func (s *Session) OnMessage(h Handler) notify.Handle {
	return s.listeners.Add(h)
}

// Unregister removes a handler added with OnMessage. It is idempotent and may
// be called after Disconnect. A handler removed while a message is being
// dispatched is not called for that message unless it already ran.
func (s *Session) Unregister(handle notify.Handle) {
	s.listeners.Remove(handle)
}

// Watch registers fn for connection state changes.
func (s *Session) Watch(fn func(State)) notify.Handle {
	return s.watchers.Add(fn)
}

func (s *Session) Unwatch(handle notify.Handle) {
	s.watchers.Remove(handle)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// SubscribedChannels returns the subscription set, sorted for stable output.
func (s *Session) SubscribedChannels() []uuid.UUID {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.subscribed))
	for id := range s.subscribed {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *Session) IsSubscribed(channelID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[channelID]
	return ok
}

// Endpoint returns the URL dialed for token.
func (s *Session) Endpoint(token string) (string, error) {
	base := strings.TrimRight(s.url, "/")
	u, err := url.Parse(base + "/ws")
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("invalid URL: unsupported scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// run drives one connection attempt from dial to close.
func (s *Session) run(ctx context.Context, gen uint64, token string) {
	endpoint, err := s.Endpoint(token)
	if err != nil {
		s.logger.Error("Failed to connect", zap.Error(err))
		s.metrics.RecordConnectError(ctx, "url")
		s.closed(gen, token, false)
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	conn, err := s.dialer.Dial(dialCtx, endpoint)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("Failed to connect", zap.Error(err))
			s.metrics.RecordConnectError(ctx, "dial")
		}
		s.closed(gen, token, false)
		return
	}

	l := &link{conn: conn, out: make(chan []byte, s.writeChannelSize)}
	if !s.opened(ctx, gen, l) {
		s.closeConn(conn)
		return
	}

	go s.writeLoop(ctx, l)
	s.readLoop(ctx, gen, token, l)
}

// opened installs l as the current link and queues the subscription replay
// in the same critical section as the state change, so any Subscribe or
// Unsubscribe that observes the connection is written after the replay. It
// reports false if the attempt was superseded by Disconnect while dialing.
func (s *Session) opened(ctx context.Context, gen uint64, l *link) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	l.replay = make([][]byte, 0, len(s.subscribed))
	for id := range s.subscribed {
		data, err := wire.Encode(wire.Subscribe{ChannelID: id})
		if err != nil {
			s.logger.Warn("Failed to encode subscription", zap.Stringer("channel_id", id), zap.Error(err))
			continue
		}
		l.replay = append(l.replay, data)
	}
	s.link = l
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Info("Connected", zap.Int("subscriptions", len(l.replay)))
	s.metrics.RecordConnected(ctx)
	for _, data := range l.replay {
		s.metrics.RecordMessageSent(ctx, len(data), string(wire.TypeSubscribe))
	}
	s.watchers.Notify(StateConnected)
	return true
}

func (s *Session) readLoop(ctx context.Context, gen uint64, token string, l *link) {
	for {
		data, err := l.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("Failed to read from WebSocket", zap.Error(err))
			}
			s.closeConn(l.conn)
			s.closed(gen, token, true)
			return
		}

		s.dispatch(ctx, data)
	}
}

// writeLoop serializes writes to the connection. A write error only closes the
// socket; the reader then observes the close and drives the reconnect.
func (s *Session) writeLoop(ctx context.Context, l *link) {
	for _, data := range l.replay {
		if !s.write(ctx, l, data) {
			return
		}
	}
	l.replay = nil

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-l.out:
			if !s.write(ctx, l, data) {
				return
			}
		}
	}
}

func (s *Session) write(ctx context.Context, l *link, data []byte) bool {
	if err := l.conn.Write(ctx, data); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("Failed to write to WebSocket", zap.Error(err))
			s.closeConn(l.conn)
		}
		return false
	}
	return true
}

func (s *Session) closeConn(conn Conn) {
	if err := conn.Close(); err != nil {
		s.logger.Debug("Error closing WebSocket", zap.Error(err))
	}
}

func (s *Session) dispatch(ctx context.Context, data []byte) {
	msg, err := wire.Parse(data)
	if err != nil {
		s.logger.Warn("Failed to parse message", zap.Error(err), zap.Int("size", len(data)))
		s.metrics.RecordMessageInvalid(ctx, len(data))
		return
	}

	s.metrics.RecordMessageReceived(ctx, len(data), string(msg.MessageType()))
	s.listeners.Notify(msg)
}

// closed handles the end of attempt gen, whether it never opened or dropped
// later. Attempts superseded by Disconnect are ignored so that a deliberate
// teardown never schedules a reconnect.
func (s *Session) closed(gen uint64, token string, wasOpen bool) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.cancel = nil
	s.link = nil
	changed := s.state != StateDisconnected
	s.state = StateDisconnected
	s.scheduleReconnectLocked(token)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx := context.Background()
	if wasOpen {
		s.logger.Info("Disconnected")
	}
	s.metrics.RecordDisconnected(ctx, wasOpen)
	s.metrics.RecordReconnectScheduled(ctx)
	if changed {
		s.watchers.Notify(StateDisconnected)
	}
}

// scheduleReconnectLocked arms the reconnect timer, replacing any pending one.
func (s *Session) scheduleReconnectLocked(token string) {
	s.stopTimerLocked()

	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		if seq != s.timerSeq || s.timer == nil {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()

		s.logger.Info("Attempting to reconnect...")
		s.Connect(token)
	})
}

// stopTimerLocked cancels the pending reconnect. Bumping timerSeq also stops a
// callback that already fired but has not yet taken the lock.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}
