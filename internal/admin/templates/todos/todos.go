// Package todos renders the todo list page and its htmx fragments.
package todos

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/components"
	"finitefield.org/taskboard/internal/admin/templates/helpers"
	"finitefield.org/taskboard/internal/admin/templates/layout"
)

const (
	// PanelID wraps the filter form and the table.
	PanelID = "todos-panel"
	// TableID wraps the table and its pager.
	TableID = "todos-table"
)

// Row is one todo as displayed.
type Row struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Selected    bool
}

// TableData feeds Table.
type TableData struct {
	Rows    []Row
	Pager   components.PagerProps
	BulkURL string
	Flash   string
	Error   string
}

// PanelData feeds Panel.
type PanelData struct {
	Filters components.FilterFormProps
	Table   TableData
}

// PageData feeds Page.
type PageData struct {
	Layout layout.Page
	Panel  PanelData
}

// Page renders the full todo list document.
func Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw("<h1>Todo一覧</h1>")
		w.Component(Panel(data.Panel))
		return w.Err()
	})
	return layout.Base(data.Layout, body)
}

// Panel renders the filter form followed by the table. Submit and reset
// responses replace it wholesale.
func Panel(data PanelData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<div id="` + PanelID + `">`)
		w.Raw(`<section class="card">`)
		w.Component(components.FilterForm(data.Filters))
		w.Raw(`</section><section class="card">`)
		w.Component(Table(data.Table))
		w.Raw("</section></div>")
		return w.Err()
	})
}

// Table renders the selectable todo table inside the bulk action form.
func Table(data TableData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<div id="` + TableID + `">`)
		if data.Flash != "" {
			w.Raw(`<div class="alert alert-info" role="status">`)
			w.Text(data.Flash)
			w.Raw("</div>")
		}
		if data.Error != "" {
			w.Raw(`<div class="alert alert-error" role="alert">`)
			w.Text(data.Error)
			w.Raw("</div>")
		}

		w.Raw(`<form class="bulk-form"`)
		w.Attr("hx-post", data.BulkURL)
		w.Attr("hx-target", "#"+TableID)
		w.Attr("hx-swap", "outerHTML")
		w.Raw(">")

		rows := make([]components.Row, 0, len(data.Rows))
		for _, todo := range data.Rows {
			rows = append(rows, components.Row{
				ID:       todo.ID,
				Selected: todo.Selected,
				Cells: []templ.Component{
					helpers.TextComponent(todo.Title),
					description(todo.Description),
					status(todo.Completed),
					helpers.TextComponent(helpers.DateTime(todo.CreatedAt)),
					helpers.TextComponent(helpers.DateTime(todo.UpdatedAt)),
				},
			})
		}
		pager := data.Pager
		pager.Target = "#" + TableID
		w.Component(components.DataTable(components.DataTableProps{
			Columns: []components.Column{
				{Key: "title", Label: "タイトル"},
				{Key: "description", Label: "説明"},
				{Key: "completed", Label: "状態"},
				{Key: "createdAt", Label: "作成日時"},
				{Key: "updatedAt", Label: "更新日時"},
			},
			Rows:       rows,
			Selectable: true,
			EmptyText:  "Todoがありません",
			Pager:      &pager,
			Actions:    bulkActions(),
		}))
		w.Raw("</form></div>")
		return w.Err()
	})
}

func bulkActions() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<div class="bulk-actions">`)
		w.Raw(`<button type="submit" name="action" value="complete"`)
		w.Attr("class", helpers.ButtonClass(""))
		w.Raw(">選択を完了にする</button>")
		w.Raw(`<button type="submit" name="action" value="delete" hx-confirm="選択したTodoを削除しますか？"`)
		w.Attr("class", helpers.ButtonClass("danger"))
		w.Raw(">選択を削除</button>")
		w.Raw("</div>")
		return w.Err()
	})
}

func status(completed bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		if completed {
			w.Raw(`<span class="` + helpers.BadgeClass("success") + `">完了</span>`)
		} else {
			w.Raw(`<span class="` + helpers.BadgeClass("warning") + `">未完了</span>`)
		}
		return w.Err()
	})
}

func description(src string) templ.Component {
	if src == "" {
		return helpers.TextComponent("-")
	}
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<div class="markdown">`)
		w.Component(helpers.Markdown(src))
		w.Raw("</div>")
		return w.Err()
	})
}
