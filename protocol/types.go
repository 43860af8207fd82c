package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of a RESP value
type ValueType byte

const (
	// RESP value types
	TypeSimpleString ValueType = '+'
	TypeError        ValueType = '-'
	TypeInteger      ValueType = ':'
	TypeBulkString   ValueType = '$'
	TypeArray        ValueType = '*'
	TypeNull         ValueType = 'N' // decoded form of the $-1 null sentinel
)

// Value represents a parsed RESP value
type Value struct {
	Type    ValueType
	Data    []byte
	Integer int64
	Array   []Value
}

// String returns a string representation of the value
func (v Value) String() string {
	switch v.Type {
	case TypeSimpleString:
		return string(v.Data)
	case TypeError:
		return string(v.Data)
	case TypeInteger:
		return strconv.FormatInt(v.Integer, 10)
	case TypeBulkString:
		return string(v.Data)
	case TypeArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeNull:
		return "(nil)"
	default:
		return fmt.Sprintf("unknown type %c", v.Type)
	}
}

// Bytes returns the byte representation of the value
func (v Value) Bytes() []byte {
	return v.Data
}

// Int returns the integer value, or 0 if not an integer
func (v Value) Int() int64 {
	return v.Integer
}

// Text returns the textual content of a simple string or bulk string
// value. The second return is false for every other value type.
func (v Value) Text() (string, bool) {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		return string(v.Data), true
	default:
		return "", false
	}
}

// IsNull returns true if this is the null value
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// IsError returns true if this is an error value
func (v Value) IsError() bool {
	return v.Type == TypeError
}
