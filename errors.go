package redissub

import (
	"errors"
	"fmt"
)

// Error types for specific failure scenarios
var (
	// ErrNotSubscribed indicates an unsubscribe for a channel or pattern
	// that was never subscribed
	ErrNotSubscribed = errors.New("not subscribed")

	// ErrClosed indicates the subscriber has been closed
	ErrClosed = errors.New("subscriber is closed")

	// ErrListening indicates Listen was called while a previous event
	// stream is still active
	ErrListening = errors.New("subscriber is already listening")

	// ErrInvalidConfig indicates invalid configuration options
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionClosed indicates the server closed the connection
	// (a zero-byte read on the stream)
	ErrConnectionClosed = errors.New("connection closed by server")

	// ErrInvalidUTF8 indicates a read chunk that is not valid UTF-8
	ErrInvalidUTF8 = errors.New("stream chunk is not valid UTF-8")
)

// Mapping errors describe why a decoded protocol value could not be
// turned into a pub/sub event. They are delivered inside DecodeError
// events and never terminate the stream.
var (
	// ErrMalformedResponse indicates a server push that is not a
	// pub/sub notification array
	ErrMalformedResponse = errors.New("malformed pubsub response")

	// ErrUnknownEventType indicates a notification selector this client
	// does not recognize
	ErrUnknownEventType = errors.New("unknown pubsub event type")

	// ErrInvalidChannel indicates a missing or non-textual channel element
	ErrInvalidChannel = errors.New("invalid channel element")

	// ErrInvalidPattern indicates a missing or non-textual pattern element
	ErrInvalidPattern = errors.New("invalid pattern element")

	// ErrInvalidCount indicates a missing or non-integer subscription count
	ErrInvalidCount = errors.New("invalid subscription count element")

	// ErrInvalidPayload indicates a missing or non-textual message payload
	ErrInvalidPayload = errors.New("invalid payload element")
)

// ConnectionError represents an exhausted connect cycle with additional context
type ConnectionError struct {
	Addr     string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("connection error to %s after %d attempts: %v", e.Addr, e.Attempts, e.Err)
	}
	return fmt.Sprintf("connection error to %s: %v", e.Addr, e.Err)
}

// Unwrap returns the wrapped error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
