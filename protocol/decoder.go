package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const (
	// CRLF is the Redis protocol line terminator
	CRLF = "\r\n"

	// maxBulkSize is the maximum size for bulk strings (1GB)
	maxBulkSize = 1024 * 1024 * 1024

	// maxArraySize is the maximum size for arrays
	maxArraySize = 1024 * 1024
)

var (
	crlfBytes = []byte(CRLF)

	// errIncomplete reports that the buffer holds only a prefix of a value.
	// It never escapes the package: Decode translates it into "wait for
	// more bytes".
	errIncomplete = errors.New("incomplete value")
)

// Decoder is an incremental RESP parser. Bytes arrive in arbitrary chunks
// via Feed, and Decode consumes every complete value sitting at the front
// of the buffer. A value split across reads stays buffered untouched until
// the rest of it arrives, so a Feed/Decode cycle per socket read is enough
// to reassemble a stream no matter where the network fragments it.
//
// Decoder distinguishes two failure modes: a truncated value is not an
// error (Decode simply returns what it has), while bytes that can never
// form a valid value are reported as an error. The offending bytes stay
// buffered; callers that want to keep using the stream should Reset the
// decoder to discard them.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty incremental decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends freshly read bytes to the decode buffer
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting to be decoded
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes
func (d *Decoder) Reset() {
	d.buf = nil
}

// Decode parses every complete value at the front of the buffer and
// removes the consumed bytes. It returns the values decoded so far even
// when the remaining bytes are malformed, so a valid value followed by
// garbage is not lost.
func (d *Decoder) Decode() ([]Value, error) {
	var values []Value
	for len(d.buf) > 0 {
		v, n, err := decodeValue(d.buf)
		if errors.Is(err, errIncomplete) {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, v)
		d.buf = d.buf[n:]
	}
	d.buf = nil
	return values, nil
}

// decodeValue parses a single value from the start of buf and returns it
// together with the number of bytes it occupied on the wire.
func decodeValue(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return Value{}, 0, errIncomplete
	}

	switch ValueType(buf[0]) {
	case TypeSimpleString:
		return decodeSimpleString(buf)
	case TypeError:
		return decodeError(buf)
	case TypeInteger:
		return decodeInteger(buf)
	case TypeBulkString:
		return decodeBulkString(buf)
	case TypeArray:
		return decodeArray(buf)
	default:
		return Value{}, 0, fmt.Errorf("unknown RESP type: %c (0x%02x)", buf[0], buf[0])
	}
}

// decodeSimpleString parses a simple string value
func decodeSimpleString(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}

	return Value{
		Type: TypeSimpleString,
		Data: bytes.Clone(line),
	}, 1 + n, nil
}

// decodeError parses an error value
func decodeError(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}

	return Value{
		Type: TypeError,
		Data: bytes.Clone(line),
	}, 1 + n, nil
}

// decodeInteger parses an integer value
func decodeInteger(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}

	integer, err := parseInt64(line)
	if err != nil {
		return Value{}, 0, fmt.Errorf("invalid integer: %s", line)
	}

	return Value{
		Type:    TypeInteger,
		Integer: integer,
	}, 1 + n, nil
}

// decodeBulkString parses a bulk string value. The $-1 length sentinel
// decodes to the null value; every other negative length is malformed.
func decodeBulkString(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}

	length, err := parseInt64(line)
	if err != nil {
		return Value{}, 0, fmt.Errorf("invalid bulk string length: %s", line)
	}

	if length == -1 {
		return Value{Type: TypeNull}, 1 + n, nil
	}

	if length < 0 || length > maxBulkSize {
		return Value{}, 0, fmt.Errorf("invalid bulk string length: %d", length)
	}

	header := 1 + n
	total := header + int(length) + len(CRLF)
	if len(buf) < total {
		return Value{}, 0, errIncomplete
	}

	// The declared length is authoritative; the data must be followed by
	// its own CRLF terminator.
	term := buf[header+int(length) : total]
	if !bytes.Equal(term, crlfBytes) {
		return Value{}, 0, fmt.Errorf("expected CRLF terminator [13, 10], got [%d, %d]", term[0], term[1])
	}

	return Value{
		Type: TypeBulkString,
		Data: bytes.Clone(buf[header : header+int(length)]),
	}, total, nil
}

// decodeArray parses an array value. Elements are decoded recursively; if
// any element is still in transit the whole array stays buffered.
func decodeArray(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}

	length, err := parseInt64(line)
	if err != nil {
		return Value{}, 0, fmt.Errorf("invalid array length: %s", line)
	}

	if length < 0 || length > maxArraySize {
		return Value{}, 0, fmt.Errorf("invalid array length: %d", length)
	}

	offset := 1 + n
	array := make([]Value, 0, length)
	for i := int64(0); i < length; i++ {
		value, consumed, err := decodeValue(buf[offset:])
		if err != nil {
			return Value{}, 0, err
		}
		array = append(array, value)
		offset += consumed
	}

	return Value{
		Type:  TypeArray,
		Array: array,
	}, offset, nil
}

// decodeLine locates a CRLF-terminated line at the start of buf and
// returns its content along with the number of bytes consumed including
// the terminator. A buffer without a newline is incomplete; a newline
// without a preceding carriage return is malformed.
func decodeLine(buf []byte) ([]byte, int, error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, 0, errIncomplete
	}

	if i == 0 || buf[i-1] != '\r' {
		return nil, 0, fmt.Errorf("missing CRLF terminator, got [%d] instead of [13, 10]", buf[i])
	}

	return buf[:i-1], i + 1, nil
}

// parseInt64 parses an int64 from a byte slice without allocation
func parseInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var neg bool
	var i int

	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	default:
		i = 0
	}

	if i >= len(b) {
		return 0, strconv.ErrSyntax
	}

	var n int64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, strconv.ErrSyntax
		}

		// Check for overflow
		if n > (1<<63-1)/10 {
			return 0, strconv.ErrRange
		}

		n = n*10 + int64(b[i]-'0')
	}

	if neg {
		return -n, nil
	}
	return n, nil
}
