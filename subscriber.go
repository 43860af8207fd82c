package redissub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/raniellyferreira/redis-subscriber/protocol"
)

const (
	// readBufferSize is the size of the socket read buffer
	readBufferSize = 64 * 1024

	// maxConnectRetries bounds a single connect cycle. An exhausted cycle
	// is reported and the listen loop starts a fresh one; the loop itself
	// never gives up.
	maxConnectRetries = 8
)

// Subscriber maintains a single logical pub/sub session against a Redis
// server. The desired subscriptions live in a registry that survives
// disconnects; Listen drives a connect/replay/stream loop that keeps the
// server view converged with the registry.
type Subscriber struct {
	// Configuration
	addr   string
	config *config

	// Desired subscriptions
	subs *registry

	// Connection state: conn is the shared write half used by
	// subscription calls and replay; nil while disconnected
	mu        sync.Mutex
	conn      net.Conn
	listening bool
	closed    bool

	// Control
	closeCh chan struct{}

	// Statistics
	stats *subscriberStats
}

// Stats is a point-in-time snapshot of subscriber activity
type Stats struct {
	Addr            string
	Connected       bool
	ConnectionID    string
	Connects        int64
	Disconnects     int64
	EventsDelivered int64
	DecodeErrors    int64
	CommandsSent    int64
	LastConnectTime time.Time
	Channels        int
	Patterns        int
}

// subscriberStats tracks session statistics
type subscriberStats struct {
	mu sync.RWMutex

	connected       bool
	connectionID    string
	connects        int64
	disconnects     int64
	eventsDelivered int64
	decodeErrors    int64
	commandsSent    int64
	lastConnectTime time.Time
}

// New creates a Subscriber for the given server address
//
// The subscriber holds no connection until Listen is called; Subscribe
// and friends may be used immediately and are replayed once a connection
// exists.
//
// Example:
//
//	sub, err := redissub.New("localhost:6379",
//		redissub.WithConnectTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Since: v1.0.0
func New(addr string, opts ...Option) (*Subscriber, error) {
	if addr == "" {
		return nil, &ConnectionError{Addr: addr, Err: ErrInvalidConfig}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return &Subscriber{
		addr:    addr,
		config:  cfg,
		subs:    newRegistry(),
		closeCh: make(chan struct{}),
		stats:   &subscriberStats{},
	}, nil
}

// Subscribe registers interest in a channel
//
// The registry is updated first and is authoritative: when the session is
// connected the command is sent immediately, otherwise it is replayed on
// the next connect. Subscribing to an already-subscribed channel is a
// no-op on the registry but still reaches the server when connected.
//
// Example:
//
//	if err := sub.Subscribe("news"); err != nil {
//		log.Fatal(err)
//	}
//
// Since: v1.0.0
func (s *Subscriber) Subscribe(channel string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	s.subs.addChannel(channel)
	return s.sendCommand(protocol.Command{Verb: protocol.VerbSubscribe, Name: channel})
}

// Unsubscribe removes interest in a channel
//
// Returns ErrNotSubscribed when the channel is not in the registry; no
// command is sent in that case.
//
// Since: v1.0.0
func (s *Subscriber) Unsubscribe(channel string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	if !s.subs.removeChannel(channel) {
		return ErrNotSubscribed
	}
	return s.sendCommand(protocol.Command{Verb: protocol.VerbUnsubscribe, Name: channel})
}

// PSubscribe registers interest in a channel pattern
//
// Example:
//
//	if err := sub.PSubscribe("news.*"); err != nil {
//		log.Fatal(err)
//	}
//
// Since: v1.0.0
func (s *Subscriber) PSubscribe(pattern string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	s.subs.addPattern(pattern)
	return s.sendCommand(protocol.Command{Verb: protocol.VerbPSubscribe, Name: pattern})
}

// PUnsubscribe removes interest in a channel pattern
//
// Returns ErrNotSubscribed when the pattern is not in the registry.
//
// Since: v1.0.0
func (s *Subscriber) PUnsubscribe(pattern string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	if !s.subs.removePattern(pattern) {
		return ErrNotSubscribed
	}
	return s.sendCommand(protocol.Command{Verb: protocol.VerbPUnsubscribe, Name: pattern})
}

// Listen starts the session loop and returns the event stream
//
// The stream is infinite: the loop reconnects with backoff after every
// failure and replays the registry before emitting Connected. Delivery is
// lazy by default (unbuffered channel); the loop suspends until the
// consumer takes each event. The channel is closed only when ctx is
// cancelled or the subscriber is closed.
//
// Only one stream may be active at a time; a second Listen returns
// ErrListening. After the stream ends, Listen may be called again to
// start over.
//
// Example:
//
//	events, err := sub.Listen(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for event := range events {
//		switch e := event.(type) {
//		case redissub.Message:
//			fmt.Println(e.Channel, e.Payload)
//		}
//	}
//
// Since: v1.0.0
func (s *Subscriber) Listen(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.listening {
		return nil, ErrListening
	}
	s.listening = true

	events := make(chan Event, s.config.eventBuffer)
	go s.run(ctx, events)
	return events, nil
}

// Close gracefully shuts down the subscriber
//
// The session loop stops, the live connection (if any) is closed and the
// event channel is closed. Close is idempotent; API calls after Close
// return ErrClosed.
//
// Example:
//
//	defer sub.Close()
//
// Since: v1.0.0
func (s *Subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	close(s.closeCh)
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// Stats returns current session statistics
//
// Example:
//
//	stats := sub.Stats()
//	fmt.Printf("connected: %v events: %d\n", stats.Connected, stats.EventsDelivered)
//
// Since: v1.0.0
func (s *Subscriber) Stats() Stats {
	channels, patterns := s.subs.counts()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	return Stats{
		Addr:            s.addr,
		Connected:       s.stats.connected,
		ConnectionID:    s.stats.connectionID,
		Connects:        s.stats.connects,
		Disconnects:     s.stats.disconnects,
		EventsDelivered: s.stats.eventsDelivered,
		DecodeErrors:    s.stats.decodeErrors,
		CommandsSent:    s.stats.commandsSent,
		LastConnectTime: s.stats.lastConnectTime,
		Channels:        channels,
		Patterns:        patterns,
	}
}

// IsConnected returns true if the session currently holds a live,
// replayed connection
//
// Since: v1.0.0
func (s *Subscriber) IsConnected() bool {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()
	return s.stats.connected
}

// run is the main session loop: connect, replay, stream, repeat
func (s *Subscriber) run(ctx context.Context, events chan<- Event) {
	defer func() {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		close(events)
	}()

	for {
		if s.stopping(ctx) {
			return
		}

		start := time.Now()
		conn, err := s.connect(ctx)
		if err != nil {
			if s.stopping(ctx) {
				return
			}
			s.config.logger.Error("Connect cycle failed, starting over",
				Field{Key: "addr", Value: s.addr},
				Field{Key: "error", Value: err})
			s.recordMetricError("connect")
			continue
		}

		// Install the writer before replay so subscription calls and the
		// replay share one send path.
		s.installConn(conn)

		if err := s.resubscribe(); err != nil {
			s.config.logger.Error("Subscription replay failed",
				Field{Key: "addr", Value: s.addr},
				Field{Key: "error", Value: err})
			s.recordMetricError("resubscribe")
			s.dropConn(conn)
			continue
		}

		connID := uuid.NewString()
		s.markConnected(connID)
		if s.config.metrics != nil {
			s.config.metrics.RecordConnect(time.Since(start))
		}
		s.config.logger.Info("Connected",
			Field{Key: "addr", Value: s.addr},
			Field{Key: "conn_id", Value: connID})

		if !s.emit(ctx, events, Connected{}) {
			s.dropConn(conn)
			s.markDisconnected()
			return
		}

		s.stream(ctx, conn, events, connID)
	}
}

// connect runs one bounded cycle of dial attempts with backoff between
// failures
func (s *Subscriber) connect(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: s.config.connectTimeout,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", s.addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= maxConnectRetries {
			return nil, &ConnectionError{Addr: s.addr, Attempts: attempt + 1, Err: lastErr}
		}

		delay := backoffDelay(attempt + 1)
		s.config.logger.Debug("Dial failed, backing off",
			Field{Key: "addr", Value: s.addr},
			Field{Key: "attempt", Value: attempt + 1},
			Field{Key: "delay", Value: delay},
			Field{Key: "error", Value: err})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closeCh:
			return nil, ErrClosed
		}
	}
}

// resubscribe replays every registered subscription over the fresh
// connection, channels first, then patterns
func (s *Subscriber) resubscribe() error {
	channels, patterns := s.subs.snapshot()

	if len(channels)+len(patterns) > 0 {
		s.config.logger.Debug("Replaying subscriptions",
			Field{Key: "channels", Value: len(channels)},
			Field{Key: "patterns", Value: len(patterns)})
	}

	for _, name := range channels {
		if err := s.sendCommand(protocol.Command{Verb: protocol.VerbSubscribe, Name: name}); err != nil {
			return fmt.Errorf("replay subscribe %q: %w", name, err)
		}
	}
	for _, name := range patterns {
		if err := s.sendCommand(protocol.Command{Verb: protocol.VerbPSubscribe, Name: name}); err != nil {
			return fmt.Errorf("replay psubscribe %q: %w", name, err)
		}
	}
	return nil
}

// stream reads the connection until it fails, decoding chunks and
// delivering events
func (s *Subscriber) stream(ctx context.Context, conn net.Conn, events chan<- Event, connID string) {
	// A blocked Read has no portable interrupt; the watcher closes the
	// socket when the consumer cancels or the subscriber closes.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.closeCh:
		case <-watchDone:
			return
		}
		conn.Close()
	}()

	dec := protocol.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		if s.config.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.readTimeout)); err != nil {
				s.config.logger.Error("Failed to set read deadline",
					Field{Key: "error", Value: err})
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if !s.processChunk(ctx, events, dec, buf[:n]) {
				s.dropConn(conn)
				s.markDisconnected()
				return
			}
		}
		if err != nil {
			s.dropConn(conn)
			s.markDisconnected()

			if s.stopping(ctx) {
				return
			}

			cause := err
			if errors.Is(err, io.EOF) {
				cause = ErrConnectionClosed
			}

			s.config.logger.Info("Disconnected",
				Field{Key: "conn_id", Value: connID},
				Field{Key: "cause", Value: cause})
			if s.config.metrics != nil {
				s.config.metrics.RecordDisconnect(disconnectCause(cause))
			}

			s.emit(ctx, events, Disconnected{Cause: cause})
			return
		}
	}
}

// processChunk validates, decodes and delivers one read chunk. It
// returns false when delivery was interrupted by cancellation.
func (s *Subscriber) processChunk(ctx context.Context, events chan<- Event, dec *protocol.Decoder, chunk []byte) bool {
	if s.config.metrics != nil {
		s.config.metrics.RecordNetworkBytes(int64(len(chunk)))
	}

	// The stream is expected to be textual end to end; a chunk that is
	// not valid UTF-8 is dropped whole rather than resynchronized.
	if !utf8.Valid(chunk) {
		s.noteDecodeError("utf8")
		return s.emit(ctx, events, DecodeError{Cause: ErrInvalidUTF8})
	}

	dec.Feed(chunk)
	values, decErr := dec.Decode()

	for _, v := range values {
		event, err := ParseEvent(v)
		if err != nil {
			s.noteDecodeError("mapping")
			s.config.logger.Debug("Discarding unmappable value",
				Field{Key: "error", Value: err})
			if !s.emit(ctx, events, DecodeError{Cause: err}) {
				return false
			}
			continue
		}

		s.noteEvent(event)
		if !s.emit(ctx, events, event) {
			return false
		}
	}

	if decErr != nil {
		// Grammar violations cannot heal on their own; the buffer is
		// discarded and the stream continues with the next server bytes.
		dec.Reset()
		s.noteDecodeError("protocol")
		s.config.logger.Error("Protocol decode failed, discarding buffer",
			Field{Key: "error", Value: decErr})
		return s.emit(ctx, events, DecodeError{Cause: decErr})
	}

	return true
}

// sendCommand writes one command over the current connection. When the
// session is disconnected it succeeds without sending: the registry
// carries the intent and the next replay delivers it.
func (s *Subscriber) sendCommand(cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if s.config.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	s.config.logger.Debug("Sending command",
		Field{Key: "command", Value: cmd.String()})

	if _, err := s.conn.Write(cmd.Encode()); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Verb, err)
	}

	if s.config.metrics != nil {
		s.config.metrics.RecordCommandSent(string(cmd.Verb))
	}
	s.updateStats(func(st *subscriberStats) {
		st.commandsSent++
	})
	return nil
}

// emit delivers one event, giving up when the consumer is gone
func (s *Subscriber) emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	case <-s.closeCh:
		return false
	}
}

// installConn publishes the fresh connection as the shared writer
func (s *Subscriber) installConn(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// dropConn clears the shared writer if it still points at conn and
// closes the socket
func (s *Subscriber) dropConn(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

// ensureOpen fails fast after Close
func (s *Subscriber) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// stopping reports whether the session should unwind
func (s *Subscriber) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

// markConnected records a successful connect cycle
func (s *Subscriber) markConnected(connID string) {
	s.updateStats(func(st *subscriberStats) {
		st.connected = true
		st.connectionID = connID
		st.connects++
		st.lastConnectTime = time.Now()
	})
}

// markDisconnected records a dropped connection; safe to call twice
func (s *Subscriber) markDisconnected() {
	s.updateStats(func(st *subscriberStats) {
		if !st.connected {
			return
		}
		st.connected = false
		st.connectionID = ""
		st.disconnects++
	})
}

// updateStats atomically updates statistics
func (s *Subscriber) updateStats(fn func(*subscriberStats)) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	fn(s.stats)
}

// noteEvent records a delivered event
func (s *Subscriber) noteEvent(event Event) {
	s.updateStats(func(st *subscriberStats) {
		st.eventsDelivered++
	})
	if s.config.metrics != nil {
		s.config.metrics.RecordEvent(string(event.Kind()))
	}
}

// noteDecodeError records a decode or mapping failure
func (s *Subscriber) noteDecodeError(errorType string) {
	s.updateStats(func(st *subscriberStats) {
		st.decodeErrors++
	})
	s.recordMetricError(errorType)
}

// recordMetricError records an error metric
func (s *Subscriber) recordMetricError(errorType string) {
	if s.config.metrics != nil {
		s.config.metrics.RecordError(errorType)
	}
}

// disconnectCause classifies a disconnect error for metrics labels
func disconnectCause(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "io"
	}
}
