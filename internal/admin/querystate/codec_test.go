package querystate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDropsEmptyValues(t *testing.T) {
	empty := ""
	got := Encode(Values{"a": "", "b": false, "c": "x", "d": nil, "e": &empty, "f": (*string)(nil)})
	require.Equal(t, "c=x", got)
}

func TestEncodeStringifiesScalars(t *testing.T) {
	name := "ada lovelace"
	got := Encode(Values{"done": true, "page": 3, "total": int64(42), "name": &name})
	require.Equal(t, "done=true&name=ada+lovelace&page=3&total=42", got)
}

func TestEncodeEmptyMapping(t *testing.T) {
	require.Equal(t, "", Encode(nil))
	require.Equal(t, "", Encode(Values{"q": ""}))
}

func TestDecodeKeepsStrings(t *testing.T) {
	got := Decode("?q=hello+world&completed=true&page=NaN")
	require.Equal(t, map[string]string{"q": "hello world", "completed": "true", "page": "NaN"}, got)
}

func TestDecodeToleratesMalformedPairs(t *testing.T) {
	got := Decode("q=%zz&status=active&status=completed")
	require.Equal(t, map[string]string{"status": "completed"}, got)
}

func TestRoundTrip(t *testing.T) {
	input := Values{"q": "milk & eggs", "status": "active", "completed": true, "from": "2024-03-01"}
	require.Equal(t, map[string]string{
		"q":         "milk & eggs",
		"status":    "active",
		"completed": "true",
		"from":      "2024-03-01",
	}, Decode(Encode(input)))
}
