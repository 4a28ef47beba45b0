package session

import (
	"maps"
	"time"
)

// User is the signed-in account as reported by the API.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Data is the cookie payload.
type Data struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
	RememberMe bool      `json:"rememberMe"`
	User       *User     `json:"user,omitempty"`
	APIToken   string    `json:"apiToken,omitempty"`
	// Drafts holds unsubmitted filter values keyed by view name.
	Drafts map[string]map[string]string `json:"drafts,omitempty"`
}

// Session is the request-scoped view of Data. It is not safe for concurrent use.
type Session struct {
	mgr       *Manager
	data      Data
	dirty     bool
	destroyed bool
}

// Read accessors for the cookie payload.
func (s *Session) ID() string { return s.data.ID }
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }
func (s *Session) LastActive() time.Time { return s.data.LastActive }
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }
func (s *Session) RememberMe() bool { return s.data.RememberMe }
func (s *Session) User() *User { return s.data.User }
func (s *Session) APIToken() string { return s.data.APIToken }

// Dirty reports whether anything changed since the session was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// SetRememberMe switches between the normal and the remember-me lifetime,
// both counted from creation.
func (s *Session) SetRememberMe(remember bool) {
	if s.data.RememberMe == remember {
		return
	}
	s.data.RememberMe = remember
	s.data.ExpiresAt = s.mgr.expiry(s.data.CreatedAt, remember)
	s.dirty = true
}

// SetUser stores a copy of user; nil signs the session out.
func (s *Session) SetUser(user *User) {
	if user == nil {
		if s.data.User != nil {
			s.data.User = nil
			s.dirty = true
		}
		return
	}
	if s.data.User != nil && *s.data.User == *user {
		return
	}
	copied := *user
	s.data.User = &copied
	s.dirty = true
}

// SetAPIToken stores the bearer token returned by the API at sign-in.
func (s *Session) SetAPIToken(token string) {
	if s.data.APIToken != token {
		s.data.APIToken = token
		s.dirty = true
	}
}

// Draft returns a copy of the draft stored for view, or nil.
func (s *Session) Draft(view string) map[string]string {
	if draft, ok := s.data.Drafts[view]; ok {
		return maps.Clone(draft)
	}
	return nil
}

// SetDraft stores a copy of draft for view. nil removes the entry while an
// empty map is kept, so a cleared form stays cleared across requests.
func (s *Session) SetDraft(view string, draft map[string]string) {
	current, ok := s.data.Drafts[view]
	switch {
	case draft == nil && !ok:
		return
	case draft == nil:
		delete(s.data.Drafts, view)
	case ok && maps.Equal(current, draft):
		return
	default:
		if s.data.Drafts == nil {
			s.data.Drafts = make(map[string]map[string]string)
		}
		s.data.Drafts[view] = maps.Clone(draft)
	}
	s.dirty = true
}

// Destroy makes the next Save clear the cookie.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

func (s *Session) touch(now time.Time) {
	if now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}
