// Package mockdata generates and serves the fake users, posts and comments
// used by the admin console's mock views and by the local mock API.
package mockdata

import (
	"slices"
	"strings"
	"time"
)

// User is a fake account.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is a fake article authored by a User.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  int       `json:"authorId"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is a fake reply on a Post.
type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"postId"`
	UserID    int       `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Database is the on-disk shape of db.json.
type Database struct {
	Users    []User    `json:"users"`
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
}

// User looks up a user by id.
func (db Database) User(id int) (User, bool) {
	for _, u := range db.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// PostFilter narrows FilterPosts. Zero fields do not filter.
type PostFilter struct {
	Query         string
	AuthorID      int
	PublishedOnly bool
	// CreatedFrom is inclusive.
	CreatedFrom time.Time
}

// FilterPosts returns the posts matching filter, newest first, sliced to the
// requested page, together with the unpaged match count.
func (db Database) FilterPosts(filter PostFilter, offset, limit int) ([]Post, int) {
	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]Post, 0, len(db.Posts))
	for _, p := range db.Posts {
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.PublishedOnly && !p.Published {
			continue
		}
		if !filter.CreatedFrom.IsZero() && p.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			continue
		}
		matched = append(matched, p)
	}
	sortPostsNewestFirst(matched)

	total := len(matched)
	if offset >= total {
		return []Post{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total
}

func sortPostsNewestFirst(posts []Post) {
	slices.SortStableFunc(posts, func(a, b Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
}
