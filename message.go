package redissub

import (
	"fmt"
	"strings"

	"github.com/raniellyferreira/redis-subscriber/protocol"
)

// EventKind identifies the variant of an Event. Kinds double as stable
// label values for logs and metrics.
type EventKind string

const (
	// Event kinds
	KindSubscribe    EventKind = "subscribe"
	KindUnsubscribe  EventKind = "unsubscribe"
	KindPSubscribe   EventKind = "psubscribe"
	KindPUnsubscribe EventKind = "punsubscribe"
	KindMessage      EventKind = "message"
	KindPMessage     EventKind = "pmessage"
	KindConnected    EventKind = "connected"
	KindDisconnected EventKind = "disconnected"
	KindDecodeError  EventKind = "decode_error"
)

// Event is a single item of the stream returned by Listen. Consumers
// switch on the concrete type:
//
//	switch e := event.(type) {
//	case redissub.Message:
//		fmt.Println(e.Channel, e.Payload)
//	case redissub.Disconnected:
//		log.Println("dropped:", e.Cause)
//	}
//
// Kind is available when only a label is needed.
type Event interface {
	Kind() EventKind
}

// Subscribed reports a server acknowledgment of a channel subscription.
// Count is the server-side number of active subscriptions on this
// connection after the change.
type Subscribed struct {
	Channel string
	Count   int64
}

// Kind returns KindSubscribe
func (Subscribed) Kind() EventKind { return KindSubscribe }

// Unsubscribed reports a server acknowledgment of a channel unsubscription
type Unsubscribed struct {
	Channel string
	Count   int64
}

// Kind returns KindUnsubscribe
func (Unsubscribed) Kind() EventKind { return KindUnsubscribe }

// PatternSubscribed reports a server acknowledgment of a pattern
// subscription
type PatternSubscribed struct {
	Pattern string
	Count   int64
}

// Kind returns KindPSubscribe
func (PatternSubscribed) Kind() EventKind { return KindPSubscribe }

// PatternUnsubscribed reports a server acknowledgment of a pattern
// unsubscription
type PatternUnsubscribed struct {
	Pattern string
	Count   int64
}

// Kind returns KindPUnsubscribe
func (PatternUnsubscribed) Kind() EventKind { return KindPUnsubscribe }

// Message is a payload published to a channel this subscriber follows
type Message struct {
	Channel string
	Payload string
}

// Kind returns KindMessage
func (Message) Kind() EventKind { return KindMessage }

// PatternMessage is a payload published to a channel that matched one of
// this subscriber's patterns. Channel is the concrete channel the message
// was published to.
type PatternMessage struct {
	Pattern string
	Channel string
	Payload string
}

// Kind returns KindPMessage
func (PatternMessage) Kind() EventKind { return KindPMessage }

// Connected reports that a connection was established and every
// registered subscription has been replayed to the server. It is emitted
// before any event of the new connection.
type Connected struct{}

// Kind returns KindConnected
func (Connected) Kind() EventKind { return KindConnected }

// Disconnected reports a lost connection. The session reconnects on its
// own; the event tells the consumer why the stream paused.
type Disconnected struct {
	Cause error
}

// Kind returns KindDisconnected
func (Disconnected) Kind() EventKind { return KindDisconnected }

// DecodeError reports inbound bytes that could not be decoded or mapped.
// The offending input is discarded and the stream continues.
type DecodeError struct {
	Cause error
}

// Kind returns KindDecodeError
func (DecodeError) Kind() EventKind { return KindDecodeError }

// ParseEvent maps a decoded protocol value onto a pub/sub event. Servers
// push notifications as arrays whose first element selects the kind; the
// selector is matched case-insensitively and textual fields accept bulk
// or simple strings. Values that are not notification arrays, carry an
// unknown selector, or are missing fields produce an error.
func ParseEvent(v protocol.Value) (Event, error) {
	if v.Type != protocol.TypeArray {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedResponse)
	}

	selector, ok := textAt(v.Array, 0)
	if !ok {
		return nil, fmt.Errorf("%w: non-textual selector", ErrMalformedResponse)
	}

	switch strings.ToLower(selector) {
	case "subscribe":
		return parseSubscribed(v.Array)
	case "unsubscribe":
		return parseUnsubscribed(v.Array)
	case "psubscribe":
		return parsePatternSubscribed(v.Array)
	case "punsubscribe":
		return parsePatternUnsubscribed(v.Array)
	case "message":
		return parseMessage(v.Array)
	case "pmessage":
		return parsePatternMessage(v.Array)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, selector)
	}
}

func parseSubscribed(array []protocol.Value) (Event, error) {
	channel, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("subscribe notification: %w", ErrInvalidChannel)
	}
	count, ok := intAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("subscribe notification: %w", ErrInvalidCount)
	}
	return Subscribed{Channel: channel, Count: count}, nil
}

func parseUnsubscribed(array []protocol.Value) (Event, error) {
	channel, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("unsubscribe notification: %w", ErrInvalidChannel)
	}
	count, ok := intAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("unsubscribe notification: %w", ErrInvalidCount)
	}
	return Unsubscribed{Channel: channel, Count: count}, nil
}

func parsePatternSubscribed(array []protocol.Value) (Event, error) {
	pattern, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("psubscribe notification: %w", ErrInvalidPattern)
	}
	count, ok := intAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("psubscribe notification: %w", ErrInvalidCount)
	}
	return PatternSubscribed{Pattern: pattern, Count: count}, nil
}

func parsePatternUnsubscribed(array []protocol.Value) (Event, error) {
	pattern, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("punsubscribe notification: %w", ErrInvalidPattern)
	}
	count, ok := intAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("punsubscribe notification: %w", ErrInvalidCount)
	}
	return PatternUnsubscribed{Pattern: pattern, Count: count}, nil
}

func parseMessage(array []protocol.Value) (Event, error) {
	channel, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("message notification: %w", ErrInvalidChannel)
	}
	payload, ok := textAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("message notification: %w", ErrInvalidPayload)
	}
	return Message{Channel: channel, Payload: payload}, nil
}

func parsePatternMessage(array []protocol.Value) (Event, error) {
	pattern, ok := textAt(array, 1)
	if !ok {
		return nil, fmt.Errorf("pmessage notification: %w", ErrInvalidPattern)
	}
	channel, ok := textAt(array, 2)
	if !ok {
		return nil, fmt.Errorf("pmessage notification: %w", ErrInvalidChannel)
	}
	payload, ok := textAt(array, 3)
	if !ok {
		return nil, fmt.Errorf("pmessage notification: %w", ErrInvalidPayload)
	}
	return PatternMessage{Pattern: pattern, Channel: channel, Payload: payload}, nil
}

// textAt returns the textual content of array[i], accepting bulk and
// simple strings
func textAt(array []protocol.Value, i int) (string, bool) {
	if i >= len(array) {
		return "", false
	}
	return array[i].Text()
}

// intAt returns the integer content of array[i]
func intAt(array []protocol.Value, i int) (int64, bool) {
	if i >= len(array) || array[i].Type != protocol.TypeInteger {
		return 0, false
	}
	return array[i].Integer, true
}
