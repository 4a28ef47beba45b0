package filters

import (
	"maps"

	"finitefield.org/taskboard/internal/admin/querystate"
)

// Value is a filter value: either a string or a boolean.
type Value struct {
	str    string
	flag   bool
	isBool bool
}

// String constructs a string value.
func String(s string) Value { return Value{str: s} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{flag: b, isBool: true} }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.isBool }

// Empty reports whether v is "" or false. Empty values are never "set".
func (v Value) Empty() bool {
	if v.isBool {
		return !v.flag
	}
	return v.str == ""
}

// Bool returns the boolean form. String values are true only when "true".
func (v Value) Bool() bool {
	if v.isBool {
		return v.flag
	}
	return v.str == "true"
}

// String returns the query-string form of v.
func (v Value) String() string {
	if v.isBool {
		if v.flag {
			return "true"
		}
		return "false"
	}
	return v.str
}

// Values maps field names to their active values.
type Values map[string]Value

// Equal reports shallow key/value equality. nil and empty mappings are equal.
func (v Values) Equal(other Values) bool {
	return maps.Equal(v, other)
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	return out
}

// Compact returns a copy without empty values.
func (v Values) Compact() Values {
	out := make(Values, len(v))
	for name, value := range v {
		if !value.Empty() {
			out[name] = value
		}
	}
	return out
}

// Encode renders the non-empty values as a query string.
func (v Values) Encode() string {
	raw := make(querystate.Values, len(v))
	for name, value := range v {
		if value.isBool {
			raw[name] = value.flag
			continue
		}
		raw[name] = value.str
	}
	return querystate.Encode(raw)
}

// Strings returns the string form of every value.
func (v Values) Strings() map[string]string {
	out := make(map[string]string, len(v))
	for name, value := range v {
		out[name] = value.String()
	}
	return out
}
