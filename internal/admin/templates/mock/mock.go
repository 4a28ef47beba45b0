// Package mock renders the mock data browser.
package mock

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/components"
	"finitefield.org/taskboard/internal/admin/templates/helpers"
	"finitefield.org/taskboard/internal/admin/templates/layout"
)

const (
	PanelID = "mock-panel"
	TableID = "mock-table"
)

// User is a card of the users grid.
type User struct {
	ID     int
	Name   string
	Email  string
	Avatar string
}

// PostRow is one post as displayed.
type PostRow struct {
	ID        int
	Title     string
	Content   string
	Author    string
	Published bool
	CreatedAt time.Time
}

// TableData feeds Table.
type TableData struct {
	Rows  []PostRow
	Pager components.PagerProps
}

// PanelData feeds Panel.
type PanelData struct {
	Filters components.FilterFormProps
	Table   TableData
}

// PageData feeds Page.
type PageData struct {
	Layout     layout.Page
	Users      []User
	Comments   int
	SourceFile string
	Panel      PanelData
}

// Page renders the users grid and the filterable posts table.
func Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw("<h1>モックデータ</h1>")
		if data.SourceFile != "" {
			w.Raw(`<p class="muted">`)
			w.Text(data.SourceFile + " / ユーザー " + strconv.Itoa(len(data.Users)) + " 件 / コメント " + strconv.Itoa(data.Comments) + " 件")
			w.Raw("</p>")
		}
		w.Raw(`<section class="card"><h2>ユーザー</h2><div class="user-grid">`)
		for _, u := range data.Users {
			w.Raw(`<div class="user-card"`)
			w.Attr("data-user-id", strconv.Itoa(u.ID))
			w.Raw(">")
			if u.Avatar != "" {
				w.Raw("<img")
				w.Attr("src", u.Avatar)
				w.Attr("alt", u.Name)
				w.Raw(">")
			}
			w.Raw("<div><p><strong>")
			w.Text(u.Name)
			w.Raw(`</strong></p><p class="muted">`)
			w.Text(u.Email)
			w.Raw("</p></div></div>")
		}
		w.Raw("</div></section>")
		w.Component(Panel(data.Panel))
		return w.Err()
	})
	return layout.Base(data.Layout, body)
}

// Panel renders the post filters and table.
func Panel(data PanelData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<div id="` + PanelID + `">`)
		w.Raw(`<section class="card">`)
		w.Component(components.FilterForm(data.Filters))
		w.Raw(`</section><section class="card"><h2>投稿</h2>`)
		w.Component(Table(data.Table))
		w.Raw("</section></div>")
		return w.Err()
	})
}

// Table renders one page of posts.
func Table(data TableData) templ.Component {
	rows := make([]components.Row, 0, len(data.Rows))
	for _, post := range data.Rows {
		tone, label := "default", "下書き"
		if post.Published {
			tone, label = "success", "公開"
		}
		rows = append(rows, components.Row{
			ID: strconv.Itoa(post.ID),
			Cells: []templ.Component{
				helpers.TextComponent(strconv.Itoa(post.ID)),
				helpers.TextComponent(post.Title),
				helpers.TextComponent(post.Author),
				badge(tone, label),
				helpers.TextComponent(helpers.DateTime(post.CreatedAt)),
			},
		})
	}
	pager := data.Pager
	pager.Target = "#" + TableID
	return components.DataTable(components.DataTableProps{
		ID: TableID,
		Columns: []components.Column{
			{Key: "id", Label: "ID"},
			{Key: "title", Label: "タイトル"},
			{Key: "author", Label: "投稿者"},
			{Key: "published", Label: "状態"},
			{Key: "createdAt", Label: "作成日時"},
		},
		Rows:  rows,
		Pager: &pager,
	})
}

func badge(tone, label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw("<span")
		w.Attr("class", helpers.BadgeClass(tone))
		w.Raw(">")
		w.Text(label)
		w.Raw("</span>")
		return w.Err()
	})
}
