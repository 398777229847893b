package usage

import (
	"fmt"
	"strconv"
	"strings"
)

// evalPointer resolves an RFC 6901 JSON pointer against a decoded document
// and coerces the result to an unsigned integer. JSON numbers and numeric
// strings are both accepted.
func evalPointer(doc any, pointer string) (uint64, error) {
	if pointer == "" {
		return coerceUint(doc)
	}
	if !strings.HasPrefix(pointer, "/") {
		return 0, fmt.Errorf("pointer %q does not start with /", pointer)
	}

	cur := doc
	for _, token := range strings.Split(pointer[1:], "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")

		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return 0, fmt.Errorf("pointer %q: no member %q", pointer, token)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(node) {
				return 0, fmt.Errorf("pointer %q: bad array index %q", pointer, token)
			}
			cur = node[idx]
		default:
			return 0, fmt.Errorf("pointer %q: %q applied to a scalar", pointer, token)
		}
	}
	return coerceUint(cur)
}

func coerceUint(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %v", n)
		}
		return uint64(n), nil
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric string %q", n)
		}
		return u, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
