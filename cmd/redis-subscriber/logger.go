package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	redissub "github.com/raniellyferreira/redis-subscriber"
)

// newLogger builds the console logger for the process. Logs go to
// stderr so message output on stdout stays pipeable.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "redis-subscriber").Logger().Level(lvl)
}

// subscriberLogger adapts a zerolog logger to the redissub.Logger
// interface
type subscriberLogger struct {
	log zerolog.Logger
}

func (l *subscriberLogger) Debug(msg string, fields ...redissub.Field) {
	l.emit(l.log.Debug(), msg, fields)
}

func (l *subscriberLogger) Info(msg string, fields ...redissub.Field) {
	l.emit(l.log.Info(), msg, fields)
}

func (l *subscriberLogger) Error(msg string, fields ...redissub.Field) {
	l.emit(l.log.Error(), msg, fields)
}

func (l *subscriberLogger) emit(event *zerolog.Event, msg string, fields []redissub.Field) {
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}
