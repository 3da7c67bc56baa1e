package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry. It is an ordered tuple of primitive values
// (strings, booleans and numbers); build one with K.
type Key []any

// K builds a Key from parts. It panics when a part is not a primitive,
// since that can only be a programming error.
func K(parts ...any) Key {
	for i, p := range parts {
		if !isPrimitive(p) {
			panic(fmt.Sprintf("query: key part %d has unsupported type %T", i, p))
		}
	}
	key := make(Key, len(parts))
	copy(key, parts)
	return key
}

// String returns the canonical encoding of the key, e.g. ["carwash",7].
func (k Key) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range k {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(encodePart(p))
	}
	b.WriteByte(']')
	return b.String()
}

// HasPrefix reports whether prefix matches the leading elements of k.
// Numbers compare by value, so int 7 and int64 7 match.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if encodePart(k[i]) != encodePart(prefix[i]) {
			return false
		}
	}
	return true
}

// Root returns the first element as text. Metrics use it as a bounded label.
func (k Key) Root() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return encodePart(k[0])
}

func encodePart(p any) string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(p))
	}
	return string(b)
}

func isPrimitive(p any) bool {
	switch p.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
