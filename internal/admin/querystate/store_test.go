package querystate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLStoreReadModifyWrite(t *testing.T) {
	store, err := NewURLStore("/todos?page=2&q=milk")
	require.NoError(t, err)

	store.Set("status", "active")
	require.Equal(t, "/todos?page=2&q=milk&status=active", store.Location())

	store.Delete("q")
	require.Equal(t, "page=2&status=active", store.RawQuery())

	value, ok := store.Get("page")
	require.True(t, ok)
	require.Equal(t, "2", value)
	require.False(t, store.Has("q"))
	require.Equal(t, 2, store.Writes())
}

func TestURLStoreReplaceIsSingleWrite(t *testing.T) {
	store, err := NewURLStore("/todos?page=3&pageSize=50&q=milk")
	require.NoError(t, err)

	notified := 0
	store.Subscribe(func() { notified++ })

	store.Replace(func(v url.Values) {
		v.Del("q")
		v.Set("status", "completed")
		v.Set("completed", "true")
	})
	require.Equal(t, 1, store.Writes())
	require.Equal(t, 1, notified)
	require.Equal(t, "/todos?completed=true&page=3&pageSize=50&status=completed", store.Location())
}

func TestURLStoreIdenticalReplaceDoesNotNotify(t *testing.T) {
	store, err := NewURLStore("/todos?q=milk")
	require.NoError(t, err)

	notified := 0
	store.Subscribe(func() { notified++ })

	store.Set("q", "milk")
	store.Delete("missing")
	require.Equal(t, 2, store.Writes())
	require.Zero(t, notified)
}

func TestURLStoreCancelSubscription(t *testing.T) {
	store, err := NewURLStore("/")
	require.NoError(t, err)

	var calls []string
	cancelA := store.Subscribe(func() { calls = append(calls, "a") })
	store.Subscribe(func() { calls = append(calls, "b") })

	store.Set("q", "1")
	cancelA()
	cancelA()
	store.Set("q", "2")

	require.Equal(t, []string{"a", "b", "b"}, calls)
}

func TestURLStoreValuesIsSnapshot(t *testing.T) {
	store := FromURL(&url.URL{Path: "/mock", RawQuery: "q=a"})
	snapshot := store.Values()
	snapshot.Set("q", "changed")

	value, _ := store.Get("q")
	require.Equal(t, "a", value)
	require.Equal(t, "/mock?q=a", store.Location())
}

func TestURLStoreListenerMayReadStore(t *testing.T) {
	store, err := NewURLStore("/")
	require.NoError(t, err)

	var seen string
	store.Subscribe(func() { seen, _ = store.Get("q") })
	store.Set("q", "hello")
	require.Equal(t, "hello", seen)
}
