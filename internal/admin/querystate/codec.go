// Package querystate converts filter mappings to and from query strings and
// holds the URL query that every URL-aware component of a view shares.
package querystate

import (
	"fmt"
	"net/url"
	"strconv"
)

// Values is the loosely typed mapping accepted by Encode. Supported values are
// strings, booleans, integers, string pointers, fmt.Stringer and nil.
type Values map[string]any

// Encode renders values as a query string. Entries that are nil, empty or
// false are dropped entirely and never rendered as "key=". Keys are sorted.
func Encode(values Values) string {
	query := url.Values{}
	for key, value := range values {
		if key == "" {
			continue
		}
		str, ok := stringify(value)
		if !ok {
			continue
		}
		query.Set(key, str)
	}
	return query.Encode()
}

// Decode parses a query string into a flat string mapping without any type
// inference. A leading "?" is ignored, malformed pairs are skipped and the
// last occurrence of a repeated key wins.
func Decode(query string) map[string]string {
	if len(query) > 0 && query[0] == '?' {
		query = query[1:]
	}
	// ParseQuery keeps every well-formed pair and reports only the first bad one.
	parsed, _ := url.ParseQuery(query)
	out := make(map[string]string, len(parsed))
	for key, values := range parsed {
		if len(values) == 0 {
			continue
		}
		out[key] = values[len(values)-1]
	}
	return out
}

func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case *string:
		if v == nil || *v == "" {
			return "", false
		}
		return *v, true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	default:
		s := fmt.Sprint(v)
		return s, s != ""
	}
}
