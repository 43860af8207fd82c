package protocol

// Verb identifies an outbound subscription command
type Verb string

const (
	// Subscription command verbs
	VerbSubscribe    Verb = "SUBSCRIBE"
	VerbUnsubscribe  Verb = "UNSUBSCRIBE"
	VerbPSubscribe   Verb = "PSUBSCRIBE"
	VerbPUnsubscribe Verb = "PUNSUBSCRIBE"
)

// Command is a single outbound subscription command carrying a channel
// name or pattern. Commands are encoded in the inline format rather than
// as RESP arrays; servers accept both and the inline form keeps the write
// path trivial.
type Command struct {
	Verb Verb
	Name string
}

// Encode renders the command in the inline wire format: the verb and the
// name separated by a single space, terminated by CRLF.
func (c Command) Encode() []byte {
	b := make([]byte, 0, len(c.Verb)+len(c.Name)+3)
	b = append(b, c.Verb...)
	b = append(b, ' ')
	b = append(b, c.Name...)
	b = append(b, CRLF...)
	return b
}

// String returns a string representation of the command
func (c Command) String() string {
	return string(c.Verb) + " " + c.Name
}
