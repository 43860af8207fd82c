package protocol_test

import (
	"bytes"
	"testing"

	"github.com/raniellyferreira/redis-subscriber/protocol"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name     string
		command  protocol.Command
		expected string
	}{
		{
			name:     "subscribe",
			command:  protocol.Command{Verb: protocol.VerbSubscribe, Name: "news"},
			expected: "SUBSCRIBE news\r\n",
		},
		{
			name:     "unsubscribe",
			command:  protocol.Command{Verb: protocol.VerbUnsubscribe, Name: "news"},
			expected: "UNSUBSCRIBE news\r\n",
		},
		{
			name:     "psubscribe",
			command:  protocol.Command{Verb: protocol.VerbPSubscribe, Name: "news.*"},
			expected: "PSUBSCRIBE news.*\r\n",
		},
		{
			name:     "punsubscribe",
			command:  protocol.Command{Verb: protocol.VerbPUnsubscribe, Name: "news.*"},
			expected: "PUNSUBSCRIBE news.*\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.command.Encode(); !bytes.Equal(got, []byte(tt.expected)) {
				t.Errorf("Encode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	cmd := protocol.Command{Verb: protocol.VerbSubscribe, Name: "alerts"}
	if got, want := cmd.String(), "SUBSCRIBE alerts"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
