package mockdata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var anchor = time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)

func TestGenerateDefaultCounts(t *testing.T) {
	db, err := NewGenerator(42, anchor).Generate(DefaultCounts)
	require.NoError(t, err)

	require.Len(t, db.Users, 10)
	require.Len(t, db.Posts, 20)
	require.Len(t, db.Comments, 50)

	for i, u := range db.Users {
		require.Equal(t, i+1, u.ID)
		require.NotEmpty(t, u.Name)
		require.Contains(t, u.Email, "@")
		require.False(t, u.CreatedAt.After(anchor))
	}
	for i, p := range db.Posts {
		require.Equal(t, i+1, p.ID)
		require.GreaterOrEqual(t, p.AuthorID, 1)
		require.LessOrEqual(t, p.AuthorID, 10)
		require.False(t, p.UpdatedAt.Before(p.CreatedAt))
	}
	for _, c := range db.Comments {
		require.GreaterOrEqual(t, c.PostID, 1)
		require.LessOrEqual(t, c.PostID, 20)
		require.GreaterOrEqual(t, c.UserID, 1)
		require.LessOrEqual(t, c.UserID, 10)
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a, err := NewGenerator(7, anchor).Generate(Counts{Users: 3, Posts: 3, Comments: 3})
	require.NoError(t, err)
	b, err := NewGenerator(7, anchor).Generate(Counts{Users: 3, Posts: 3, Comments: 3})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestGenerateRejectsDanglingReferences(t *testing.T) {
	gen := NewGenerator(1, anchor)
	_, err := gen.Generate(Counts{Posts: 1})
	require.Error(t, err)
	_, err = gen.Generate(Counts{Users: 1, Comments: 1})
	require.Error(t, err)
	_, err = gen.Generate(Counts{Users: -1})
	require.Error(t, err)

	db, err := gen.Generate(Counts{Users: 2})
	require.NoError(t, err)
	require.Len(t, db.Users, 2)
	require.Empty(t, db.Posts)
}

func TestSaveAndLoad(t *testing.T) {
	db, err := NewGenerator(3, anchor).Generate(Counts{Users: 2, Posts: 2, Comments: 2})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mock", "data", "db.json")
	require.NoError(t, Save(path, db))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "{\n  \"users\": ["))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Users, 2)
	require.Equal(t, db.Posts[1].Title, loaded.Posts[1].Title)
	require.True(t, db.Posts[1].CreatedAt.Equal(loaded.Posts[1].CreatedAt))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func samplePosts() Database {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 9, 0, 0, 0, time.UTC) }
	return Database{
		Users: []User{{ID: 1, Name: "Aoi"}, {ID: 2, Name: "Ren"}},
		Posts: []Post{
			{ID: 1, Title: "Go routers", Content: "chi", AuthorID: 1, Published: true, CreatedAt: day(1)},
			{ID: 2, Title: "Templates", Content: "templ components", AuthorID: 2, Published: false, CreatedAt: day(3)},
			{ID: 3, Title: "Sessions", Content: "secure cookies in go", AuthorID: 1, Published: true, CreatedAt: day(5)},
		},
	}
}

func TestFilterPosts(t *testing.T) {
	db := samplePosts()

	posts, total := db.FilterPosts(PostFilter{}, 0, 2)
	require.Equal(t, 3, total)
	require.Equal(t, []int{3, 2}, postIDs(posts))

	posts, total = db.FilterPosts(PostFilter{Query: "GO"}, 0, 10)
	require.Equal(t, 2, total)
	require.Equal(t, []int{3, 1}, postIDs(posts))

	posts, total = db.FilterPosts(PostFilter{AuthorID: 1, PublishedOnly: true, CreatedFrom: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}, 0, 10)
	require.Equal(t, 1, total)
	require.Equal(t, []int{3}, postIDs(posts))

	posts, total = db.FilterPosts(PostFilter{}, 5, 10)
	require.Equal(t, 3, total)
	require.Empty(t, posts)

	user, ok := db.User(2)
	require.True(t, ok)
	require.Equal(t, "Ren", user.Name)
	_, ok = db.User(9)
	require.False(t, ok)
}

func postIDs(posts []Post) []int {
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestQuery(t *testing.T) {
	items := []record{
		{"id": float64(1), "title": "alpha", "authorId": float64(2), "published": true},
		{"id": float64(2), "title": "Beta", "authorId": float64(1), "published": false},
		{"id": float64(3), "title": "gamma", "authorId": float64(2), "published": true},
		{"id": float64(4), "title": "delta", "authorId": float64(10), "published": false},
	}

	cases := []struct {
		name  string
		query string
		ids   []float64
		total int
	}{
		{name: "all", query: "", ids: []float64{1, 2, 3, 4}, total: 4},
		{name: "equality", query: "authorId=2", ids: []float64{1, 3}, total: 2},
		{name: "repeated equality", query: "id=1&id=4", ids: []float64{1, 4}, total: 2},
		{name: "bool equality", query: "published=false", ids: []float64{2, 4}, total: 2},
		{name: "not equal", query: "authorId_ne=2", ids: []float64{2, 4}, total: 2},
		{name: "numeric range", query: "authorId_gte=2&authorId_lte=9", ids: []float64{1, 3}, total: 2},
		{name: "like", query: "title_like=^b", ids: []float64{2}, total: 1},
		{name: "full text", query: "q=MMA", ids: []float64{3}, total: 1},
		{name: "sort desc", query: "_sort=authorId,id&_order=desc,asc", ids: []float64{4, 1, 3, 2}, total: 4},
		{name: "limit", query: "_limit=2", ids: []float64{1, 2}, total: 4},
		{name: "page", query: "_page=2&_limit=3", ids: []float64{4}, total: 4},
		{name: "page past end", query: "_page=5&_limit=3", ids: []float64{}, total: 4},
		{name: "unknown field", query: "missing=1", ids: []float64{}, total: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			got, total := Query(items, params)
			require.Equal(t, tc.total, total)
			ids := make([]float64, 0, len(got))
			for _, item := range got {
				ids = append(ids, item["id"].(float64))
			}
			require.Equal(t, tc.ids, ids)
		})
	}
}

func TestServerRoutes(t *testing.T) {
	srv, err := NewServer(samplePosts())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler(zap.NewNop()))
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/posts?_limit=2&_sort=id&_order=desc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "3", resp.Header.Get("X-Total-Count"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var posts []Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Equal(t, []int{3, 2}, postIDs(posts))

	one, err := ts.Client().Get(ts.URL + "/users/2")
	require.NoError(t, err)
	defer one.Body.Close()
	require.Equal(t, http.StatusOK, one.StatusCode)
	var user User
	require.NoError(t, json.NewDecoder(one.Body).Decode(&user))
	require.Equal(t, "Ren", user.Name)

	for _, path := range []string{"/users/99", "/widgets", "/widgets/1"} {
		missing, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		missing.Body.Close()
		require.Equal(t, http.StatusNotFound, missing.StatusCode, path)
	}

	whole, err := ts.Client().Get(ts.URL + "/db")
	require.NoError(t, err)
	defer whole.Body.Close()
	var db Database
	require.NoError(t, json.NewDecoder(whole.Body).Decode(&db))
	require.Len(t, db.Posts, 3)
	require.Empty(t, db.Comments)
}
