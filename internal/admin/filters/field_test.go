package filters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/taskboard/internal/admin/querystate"
)

func TestValueEmptiness(t *testing.T) {
	require.True(t, String("").Empty())
	require.True(t, Bool(false).Empty())
	require.False(t, String("false").Empty())
	require.False(t, Bool(true).Empty())
	require.Equal(t, "true", Bool(true).String())
	require.True(t, String("true").Bool())
}

func TestValuesEncodeDropsEmpty(t *testing.T) {
	got := Values{"a": String(""), "b": Bool(false), "c": String("x")}.Encode()
	require.Equal(t, "c=x", got)
}

func TestRoundTripThroughRegistry(t *testing.T) {
	registry := todoRegistry()
	input := Values{
		"q":         String("milk & eggs"),
		"status":    String("active"),
		"completed": Bool(true),
		"from":      String("2024-03-01"),
	}
	decoded := querystate.Decode(input.Encode())
	require.Equal(t, input, registry.Reinterpret(decoded))
}

func TestReinterpretDropsUnknownAndEmpty(t *testing.T) {
	got := todoRegistry().Reinterpret(map[string]string{"q": "", "completed": "false", "page": "2", "status": "active"})
	require.Equal(t, Values{"status": String("active")}, got)
}

func TestRegistryLookup(t *testing.T) {
	registry := todoRegistry()
	require.Equal(t, []string{"q", "status", "completed", "from", "x"}, registry.Names())

	field, ok := registry.Field("completed")
	require.True(t, ok)
	require.Equal(t, KindCheckbox, field.Kind)
	require.Equal(t, Bool(false), field.EmptyValue())

	_, ok = registry.Field("missing")
	require.False(t, ok)
	require.Equal(t, "checkbox", KindCheckbox.String())
}

func TestRegistryValidateReportsCallerMistakes(t *testing.T) {
	require.NoError(t, todoRegistry().Validate())

	err := NewRegistry(
		Field{Name: "q"},
		Field{Name: "q"},
		Field{Name: "page"},
		Field{Name: "status", Kind: KindSelect},
		Field{},
	).Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate field "q"`)
	require.Contains(t, err.Error(), `"page" collides`)
	require.Contains(t, err.Error(), `select field "status" has no options`)
	require.Contains(t, err.Error(), "empty name")
}
