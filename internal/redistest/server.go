// Package redistest provides an in-process pub/sub server stub for
// exercising subscriber sessions against real TCP connections.
//
// The stub speaks the inline command form used by subscribers
// ("SUBSCRIBE <name>\r\n") and answers with RESP notification arrays.
// Tests drive it directly: Publish delivers messages to matching
// subscriptions, DropAll severs connections to simulate a server
// failure, and SendRaw injects arbitrary bytes.
package redistest

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/raniellyferreira/redis-subscriber/protocol"
)

// Server is a scripted pub/sub endpoint listening on a loopback port
type Server struct {
	listener net.Listener

	mu       sync.Mutex
	clients  map[net.Conn]*client
	commands []string
	closed   bool

	wg sync.WaitGroup
}

// client tracks one accepted connection and its subscription state
type client struct {
	mu       sync.Mutex
	conn     net.Conn
	writer   *protocol.Writer
	channels map[string]struct{}
	patterns map[string]struct{}
}

// Start launches a stub server on an ephemeral loopback port. The
// server is shut down automatically when the test finishes.
func Start(t testing.TB) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("redistest: listen failed: %v", err)
	}

	s := &Server{
		listener: listener,
		clients:  make(map[net.Conn]*client),
	}

	s.wg.Add(1)
	go s.acceptConnections()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the listener and severs all connections. Safe to call
// more than once.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.listener.Close()
	for _, c := range s.snapshotClients() {
		c.conn.Close()
	}
	s.wg.Wait()
}

// Publish delivers a payload to every connection subscribed to the
// channel, and a pmessage to every connection holding a matching
// pattern. Returns the number of deliveries.
func (s *Server) Publish(channel, payload string) int {
	delivered := 0
	for _, c := range s.snapshotClients() {
		c.mu.Lock()
		if _, ok := c.channels[channel]; ok {
			if c.send(
				bulkValue("message"),
				bulkValue(channel),
				bulkValue(payload),
			) {
				delivered++
			}
		}
		for pattern := range c.patterns {
			if matchPattern(channel, pattern) {
				if c.send(
					bulkValue("pmessage"),
					bulkValue(pattern),
					bulkValue(channel),
					bulkValue(payload),
				) {
					delivered++
				}
			}
		}
		c.mu.Unlock()
	}
	return delivered
}

// SendRaw writes bytes to every live connection, bypassing the protocol
// writer. Used to inject malformed input. Returns the number of
// connections written.
func (s *Server) SendRaw(data []byte) int {
	sent := 0
	for _, c := range s.snapshotClients() {
		c.mu.Lock()
		if _, err := c.conn.Write(data); err == nil {
			sent++
		}
		c.mu.Unlock()
	}
	return sent
}

// DropAll severs every live connection, simulating a server failure.
// The listener stays up so clients can reconnect.
func (s *Server) DropAll() {
	for _, c := range s.snapshotClients() {
		c.conn.Close()
	}
}

// Commands returns every command line received so far, in arrival order
// across all connections
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// ConnCount returns the number of live connections
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		c := &client{
			conn:     conn,
			writer:   protocol.NewWriter(conn),
			channels: make(map[string]struct{}),
			patterns: make(map[string]struct{}),
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.clients[conn] = c
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

// serve reads inline commands off one connection until it drops
func (s *Server) serve(c *client) {
	defer s.wg.Done()
	defer s.dropClient(c)

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		s.dispatch(c, line)
	}
}

func (s *Server) dispatch(c *client, line string) {
	verb, name, _ := strings.Cut(line, " ")

	c.mu.Lock()
	defer c.mu.Unlock()

	switch strings.ToUpper(verb) {
	case "SUBSCRIBE":
		c.channels[name] = struct{}{}
		c.ack("subscribe", name)
	case "UNSUBSCRIBE":
		delete(c.channels, name)
		c.ack("unsubscribe", name)
	case "PSUBSCRIBE":
		c.patterns[name] = struct{}{}
		c.ack("psubscribe", name)
	case "PUNSUBSCRIBE":
		delete(c.patterns, name)
		c.ack("punsubscribe", name)
	default:
		c.writer.WriteError("ERR unknown command '" + verb + "'")
		c.writer.Flush()
	}
}

func (s *Server) dropClient(c *client) {
	c.conn.Close()
	s.mu.Lock()
	delete(s.clients, c.conn)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// ack confirms a subscription change. Caller holds c.mu.
func (c *client) ack(kind, name string) {
	count := int64(len(c.channels) + len(c.patterns))
	c.send(
		bulkValue(kind),
		bulkValue(name),
		protocol.Value{Type: protocol.TypeInteger, Integer: count},
	)
}

// send writes one notification array and reports whether it reached the
// socket. Caller holds c.mu.
func (c *client) send(elems ...protocol.Value) bool {
	if err := c.writer.WriteArray(elems); err != nil {
		return false
	}
	return c.writer.Flush() == nil
}

func bulkValue(s string) protocol.Value {
	return protocol.Value{Type: protocol.TypeBulkString, Data: []byte(s)}
}

// matchPattern reports whether channel matches a glob-style pattern.
// "*" never matches the empty string and an empty pattern matches only
// the empty channel.
func matchPattern(channel, pattern string) bool {
	if pattern == "*" && channel == "" {
		return false
	}
	if pattern == "" {
		return channel == ""
	}

	matched, err := filepath.Match(pattern, channel)
	if err != nil {
		return channel == pattern
	}
	return matched
}
