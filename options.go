package redissub

import (
	"time"
)

// config holds the configuration for a Subscriber
type config struct {
	// Timeouts
	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	// Event delivery
	eventBuffer int

	// Observability
	logger  Logger
	metrics MetricsCollector
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		connectTimeout: 5 * time.Second,
		readTimeout:    0, // block until the server pushes data
		writeTimeout:   10 * time.Second,
		eventBuffer:    0, // unbuffered: events are pulled by the consumer
		logger:         &defaultLogger{},
	}
}

// Option represents a configuration option for a Subscriber
type Option func(*config) error

// WithConnectTimeout sets the dial timeout for each connection attempt
//
// Example:
//   WithConnectTimeout(10 * time.Second)
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.connectTimeout = timeout
		return nil
	}
}

// WithReadTimeout sets an idle timeout for stream reads. A read that sees
// no data for this long counts as a connection failure and triggers a
// reconnect. Zero (the default) blocks indefinitely, matching servers
// that push nothing between messages.
//
// Example:
//   WithReadTimeout(90 * time.Second)
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.readTimeout = timeout
		return nil
	}
}

// WithWriteTimeout sets the write timeout for outbound commands
//
// Example:
//   WithWriteTimeout(5 * time.Second)
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.writeTimeout = timeout
		return nil
	}
}

// WithEventBuffer sets the capacity of the event channel returned by
// Listen. The default of zero keeps delivery lazy: the session loop
// blocks until the consumer takes each event. A small buffer decouples
// slow consumers from the socket at the cost of that laziness.
//
// Example:
//   WithEventBuffer(64)
func WithEventBuffer(size int) Option {
	return func(c *config) error {
		if size < 0 {
			return ErrInvalidConfig
		}
		c.eventBuffer = size
		return nil
	}
}

// WithLogger sets a custom logger for the subscriber
//
// Example:
//   WithLogger(myCustomLogger)
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics enables metrics collection with the provided collector
//
// Example:
//   WithMetrics(myMetricsCollector)
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}
