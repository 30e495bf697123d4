package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a logical read, e.g. Key{"products", params} or
// Key{"product", 42}. Two keys are equal when their JSON encodings are.
type Key []any

// Hash returns the canonical encoding of k used as the cache key.
func (k Key) Hash() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = hashValue(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HasPrefix reports whether the first len(prefix) elements of k equal prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if hashValue(k[i]) != hashValue(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return k.Hash()
}

// json.Marshal sorts map keys, so maps and structs hash deterministically.
func hashValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprintf("%#v", v))
	}
	return string(b)
}
