package mockdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Counts sets how many records of each collection Generate produces.
type Counts struct {
	Users    int
	Posts    int
	Comments int
}

// DefaultCounts matches the bundled db.json.
var DefaultCounts = Counts{Users: 10, Posts: 20, Comments: 50}

// Generator produces fake records. A fixed seed yields identical output.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewGenerator returns a Generator. seed 0 picks a random seed; now anchors
// the past and recent date ranges.
func NewGenerator(seed uint64, now time.Time) *Generator {
	if now.IsZero() {
		now = time.Now()
	}
	return &Generator{faker: gofakeit.New(seed), now: now.UTC()}
}

// Generate builds a database with sequential ids starting at 1. Foreign keys
// point into the generated ranges.
func (g *Generator) Generate(counts Counts) (Database, error) {
	if counts.Users < 0 || counts.Posts < 0 || counts.Comments < 0 {
		return Database{}, errors.New("mockdata: counts must not be negative")
	}
	if counts.Posts > 0 && counts.Users == 0 {
		return Database{}, errors.New("mockdata: posts need at least one user")
	}
	if counts.Comments > 0 && (counts.Posts == 0 || counts.Users == 0) {
		return Database{}, errors.New("mockdata: comments need at least one post and one user")
	}

	db := Database{
		Users:    make([]User, 0, counts.Users),
		Posts:    make([]Post, 0, counts.Posts),
		Comments: make([]Comment, 0, counts.Comments),
	}
	for i := 1; i <= counts.Users; i++ {
		db.Users = append(db.Users, g.user(i))
	}
	for i := 1; i <= counts.Posts; i++ {
		db.Posts = append(db.Posts, g.post(i, counts.Users))
	}
	for i := 1; i <= counts.Comments; i++ {
		db.Comments = append(db.Comments, g.comment(i, counts.Posts, counts.Users))
	}
	return db, nil
}

func (g *Generator) user(id int) User {
	name := g.faker.Name()
	return User{
		ID:        id,
		Name:      name,
		Email:     g.faker.Email(),
		Avatar:    "https://api.dicebear.com/9.x/thumbs/svg?seed=" + url.QueryEscape(name),
		CreatedAt: g.past(),
	}
}

func (g *Generator) post(id, users int) Post {
	created := g.past()
	updated := g.recent()
	if updated.Before(created) {
		updated = created
	}
	return Post{
		ID:        id,
		Title:     g.faker.Sentence(6),
		Content:   g.faker.Paragraph(3, 4, 12, "\n"),
		AuthorID:  g.faker.IntRange(1, users),
		Published: g.faker.Bool(),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func (g *Generator) comment(id, posts, users int) Comment {
	return Comment{
		ID:        id,
		PostID:    g.faker.IntRange(1, posts),
		UserID:    g.faker.IntRange(1, users),
		Content:   g.faker.Paragraph(1, 3, 10, " "),
		CreatedAt: g.recent(),
	}
}

// past is within the last year.
func (g *Generator) past() time.Time {
	return g.faker.DateRange(g.now.AddDate(-1, 0, 0), g.now).UTC().Truncate(time.Millisecond)
}

// recent is within the last day.
func (g *Generator) recent() time.Time {
	return g.faker.DateRange(g.now.Add(-24*time.Hour), g.now).UTC().Truncate(time.Millisecond)
}

// Load reads a db.json file.
func Load(path string) (Database, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Database{}, fmt.Errorf("mockdata: read %s: %w", path, err)
	}
	var db Database
	if err := json.Unmarshal(raw, &db); err != nil {
		return Database{}, fmt.Errorf("mockdata: decode %s: %w", path, err)
	}
	return db, nil
}

// Save writes db as two-space indented JSON, creating parent directories.
func Save(path string, db Database) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mockdata: create dir: %w", err)
	}
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("mockdata: encode: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("mockdata: write %s: %w", path, err)
	}
	return nil
}
