package redissub_test

import (
	"errors"
	"testing"

	redissub "github.com/raniellyferreira/redis-subscriber"
	"github.com/raniellyferreira/redis-subscriber/protocol"
)

func bulk(s string) protocol.Value {
	return protocol.Value{Type: protocol.TypeBulkString, Data: []byte(s)}
}

func simple(s string) protocol.Value {
	return protocol.Value{Type: protocol.TypeSimpleString, Data: []byte(s)}
}

func integer(n int64) protocol.Value {
	return protocol.Value{Type: protocol.TypeInteger, Integer: n}
}

func array(elems ...protocol.Value) protocol.Value {
	return protocol.Value{Type: protocol.TypeArray, Array: elems}
}

func TestParseEventNotifications(t *testing.T) {
	tests := []struct {
		name  string
		input protocol.Value
		want  redissub.Event
	}{
		{
			name:  "subscribe",
			input: array(bulk("subscribe"), bulk("news"), integer(1)),
			want:  redissub.Subscribed{Channel: "news", Count: 1},
		},
		{
			name:  "unsubscribe",
			input: array(bulk("unsubscribe"), bulk("news"), integer(0)),
			want:  redissub.Unsubscribed{Channel: "news", Count: 0},
		},
		{
			name:  "psubscribe",
			input: array(bulk("psubscribe"), bulk("news.*"), integer(2)),
			want:  redissub.PatternSubscribed{Pattern: "news.*", Count: 2},
		},
		{
			name:  "punsubscribe",
			input: array(bulk("punsubscribe"), bulk("news.*"), integer(1)),
			want:  redissub.PatternUnsubscribed{Pattern: "news.*", Count: 1},
		},
		{
			name:  "message",
			input: array(bulk("message"), bulk("news"), bulk("hello world")),
			want:  redissub.Message{Channel: "news", Payload: "hello world"},
		},
		{
			name:  "pmessage",
			input: array(bulk("pmessage"), bulk("news.*"), bulk("news.tech"), bulk("hello")),
			want:  redissub.PatternMessage{Pattern: "news.*", Channel: "news.tech", Payload: "hello"},
		},
		{
			name:  "uppercase selector",
			input: array(bulk("SUBSCRIBE"), bulk("news"), integer(1)),
			want:  redissub.Subscribed{Channel: "news", Count: 1},
		},
		{
			name:  "mixed case selector",
			input: array(bulk("Message"), bulk("news"), bulk("hi")),
			want:  redissub.Message{Channel: "news", Payload: "hi"},
		},
		{
			name:  "simple string selector",
			input: array(simple("subscribe"), bulk("news"), integer(1)),
			want:  redissub.Subscribed{Channel: "news", Count: 1},
		},
		{
			name:  "simple string fields",
			input: array(simple("message"), simple("news"), simple("hi")),
			want:  redissub.Message{Channel: "news", Payload: "hi"},
		},
		{
			name:  "empty payload",
			input: array(bulk("message"), bulk("news"), bulk("")),
			want:  redissub.Message{Channel: "news", Payload: ""},
		},
		{
			name:  "large count",
			input: array(bulk("subscribe"), bulk("news"), integer(1000000)),
			want:  redissub.Subscribed{Channel: "news", Count: 1000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := redissub.ParseEvent(tt.input)
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEvent() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   protocol.Value
		wantErr error
	}{
		{
			name:    "simple string value",
			input:   simple("subscribe"),
			wantErr: redissub.ErrMalformedResponse,
		},
		{
			name:    "integer value",
			input:   integer(42),
			wantErr: redissub.ErrMalformedResponse,
		},
		{
			name:    "null value",
			input:   protocol.Value{Type: protocol.TypeNull},
			wantErr: redissub.ErrMalformedResponse,
		},
		{
			name:    "empty array",
			input:   array(),
			wantErr: redissub.ErrMalformedResponse,
		},
		{
			name:    "integer selector",
			input:   array(integer(1), bulk("news"), integer(1)),
			wantErr: redissub.ErrMalformedResponse,
		},
		{
			name:    "unknown selector",
			input:   array(bulk("foobar"), bulk("news")),
			wantErr: redissub.ErrUnknownEventType,
		},
		{
			name:    "subscribe missing channel",
			input:   array(bulk("subscribe")),
			wantErr: redissub.ErrInvalidChannel,
		},
		{
			name:    "subscribe integer channel",
			input:   array(bulk("subscribe"), integer(7), integer(1)),
			wantErr: redissub.ErrInvalidChannel,
		},
		{
			name:    "subscribe missing count",
			input:   array(bulk("subscribe"), bulk("news")),
			wantErr: redissub.ErrInvalidCount,
		},
		{
			name:    "subscribe textual count",
			input:   array(bulk("subscribe"), bulk("news"), bulk("1")),
			wantErr: redissub.ErrInvalidCount,
		},
		{
			name:    "unsubscribe missing count",
			input:   array(bulk("unsubscribe"), bulk("news")),
			wantErr: redissub.ErrInvalidCount,
		},
		{
			name:    "psubscribe missing pattern",
			input:   array(bulk("psubscribe")),
			wantErr: redissub.ErrInvalidPattern,
		},
		{
			name:    "punsubscribe null pattern",
			input:   array(bulk("punsubscribe"), protocol.Value{Type: protocol.TypeNull}, integer(0)),
			wantErr: redissub.ErrInvalidPattern,
		},
		{
			name:    "message missing payload",
			input:   array(bulk("message"), bulk("news")),
			wantErr: redissub.ErrInvalidPayload,
		},
		{
			name:    "message missing channel",
			input:   array(bulk("message")),
			wantErr: redissub.ErrInvalidChannel,
		},
		{
			name:    "pmessage missing pattern",
			input:   array(bulk("pmessage")),
			wantErr: redissub.ErrInvalidPattern,
		},
		{
			name:    "pmessage missing channel",
			input:   array(bulk("pmessage"), bulk("news.*")),
			wantErr: redissub.ErrInvalidChannel,
		},
		{
			name:    "pmessage missing payload",
			input:   array(bulk("pmessage"), bulk("news.*"), bulk("news.tech")),
			wantErr: redissub.ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := redissub.ParseEvent(tt.input)
			if err == nil {
				t.Fatalf("ParseEvent() = %#v, want error", got)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseEvent() error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("ParseEvent() = %#v, want nil event on error", got)
			}
		})
	}
}

func TestParseEventFromWire(t *testing.T) {
	dec := protocol.NewDecoder()
	dec.Feed([]byte("*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$5\r\nhello\r\n"))

	values, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("Decode() returned %d values, want 1", len(values))
	}

	event, err := redissub.ParseEvent(values[0])
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}

	want := redissub.Message{Channel: "news", Payload: "hello"}
	if event != redissub.Event(want) {
		t.Errorf("ParseEvent() = %#v, want %#v", event, want)
	}
}

func TestEventKinds(t *testing.T) {
	tests := []struct {
		event redissub.Event
		want  redissub.EventKind
	}{
		{redissub.Subscribed{}, redissub.KindSubscribe},
		{redissub.Unsubscribed{}, redissub.KindUnsubscribe},
		{redissub.PatternSubscribed{}, redissub.KindPSubscribe},
		{redissub.PatternUnsubscribed{}, redissub.KindPUnsubscribe},
		{redissub.Message{}, redissub.KindMessage},
		{redissub.PatternMessage{}, redissub.KindPMessage},
		{redissub.Connected{}, redissub.KindConnected},
		{redissub.Disconnected{}, redissub.KindDisconnected},
		{redissub.DecodeError{}, redissub.KindDecodeError},
	}

	for _, tt := range tests {
		if got := tt.event.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.event, got, tt.want)
		}
	}
}
