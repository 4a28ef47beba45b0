package querystate

import (
	"net/url"
	"sync"
)

// Store is the shared query-string state of one view. Writers always edit the
// current parameters rather than replacing the whole URL, so components that
// own disjoint keys never clobber each other.
type Store interface {
	Get(key string) (string, bool)
	Has(key string) bool
	// Set and Delete each perform one navigation replace.
	Set(key, value string)
	Delete(key string)
	// Replace applies edit to a copy of the current parameters and writes the
	// result back in a single navigation replace.
	Replace(edit func(url.Values))
	Values() url.Values
	// Subscribe registers listener for query changes and returns its cancel func.
	Subscribe(listener func()) (cancel func())
}

// URLStore implements Store over a URL. Listeners run after the write, outside
// the store lock, and only when the encoded query actually changed.
type URLStore struct {
	mu        sync.Mutex
	location  url.URL
	writes    int
	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	fn func()
}

var _ Store = (*URLStore)(nil)

// NewURLStore parses location (path plus optional query) into a store.
func NewURLStore(location string) (*URLStore, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	return FromURL(u), nil
}

// FromURL builds a store from a copy of u. Only the path and query are kept.
func FromURL(u *url.URL) *URLStore {
	s := &URLStore{}
	if u != nil {
		s.location.Path = u.Path
		s.location.RawPath = u.RawPath
		s.location.RawQuery = u.Query().Encode()
	}
	return s
}

func (s *URLStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.location.Query()
	if _, ok := values[key]; !ok {
		return "", false
	}
	return values.Get(key), true
}

func (s *URLStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *URLStore) Set(key, value string) {
	s.Replace(func(v url.Values) { v.Set(key, value) })
}

func (s *URLStore) Delete(key string) {
	s.Replace(func(v url.Values) { v.Del(key) })
}

func (s *URLStore) Replace(edit func(url.Values)) {
	s.mu.Lock()
	current := s.location.Query()
	before := current.Encode()
	next := cloneValues(current)
	if edit != nil {
		edit(next)
	}
	after := next.Encode()
	s.location.RawQuery = after
	s.writes++
	var notify []func()
	if after != before {
		notify = make([]func(), 0, len(s.listeners))
		for _, l := range s.listeners {
			notify = append(notify, l.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// Values returns a snapshot of the current parameters.
func (s *URLStore) Values() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location.Query()
}

func (s *URLStore) Subscribe(listener func()) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Writes reports how many navigation replaces have been performed, including
// ones that left the query unchanged.
func (s *URLStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// RawQuery returns the encoded query without the leading "?".
func (s *URLStore) RawQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location.RawQuery
}

// Location returns the path and query, suitable for HX-Replace-Url.
func (s *URLStore) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.location
	return u.RequestURI()
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}
