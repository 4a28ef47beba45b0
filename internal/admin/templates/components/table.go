package components

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/helpers"
)

// Column is a table header.
type Column struct {
	Key   string
	Label string
	Class string
}

// Row is one rendered record. Cells line up with the table's columns.
type Row struct {
	ID       string
	Cells    []templ.Component
	Selected bool
}

// DataTableProps configures DataTable.
type DataTableProps struct {
	ID         string
	Columns    []Column
	Rows       []Row
	Selectable bool
	// SelectName is the form name of the row checkboxes, "ids" by default.
	SelectName string
	EmptyText  string
	Pager      *PagerProps
	// Actions renders above the table, typically bulk action buttons.
	Actions templ.Component
}

// DataTable renders rows with an optional selection column and pager. The
// root element carries ID so htmx responses can replace it wholesale.
func DataTable(props DataTableProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		selectName := props.SelectName
		if selectName == "" {
			selectName = "ids"
		}

		w.Raw(`<div class="data-table"`)
		w.AttrIf("id", props.ID)
		w.Raw(">")

		if len(props.Rows) == 0 {
			empty := props.EmptyText
			if empty == "" {
				empty = "データがありません"
			}
			w.Raw(`<div class="data-table-empty">`)
			w.Text(empty)
			w.Raw("</div></div>")
			return w.Err()
		}

		w.Component(props.Actions)

		w.Raw(`<table class="table"><thead><tr>`)
		if props.Selectable {
			w.Raw(`<th class="select-col"><input type="checkbox" data-select-all aria-label="すべて選択"></th>`)
		}
		for _, col := range props.Columns {
			w.Raw("<th")
			w.AttrIf("class", col.Class)
			w.AttrIf("data-key", col.Key)
			w.Raw(">")
			w.Text(col.Label)
			w.Raw("</th>")
		}
		w.Raw("</tr></thead><tbody>")

		for _, row := range props.Rows {
			w.Raw("<tr")
			w.AttrIf("data-id", row.ID)
			if row.Selected {
				w.Attr("data-state", "selected")
			}
			w.Raw(">")
			if props.Selectable {
				w.Raw(`<td class="select-col"><input type="checkbox"`)
				w.Attr("name", selectName)
				w.Attr("value", row.ID)
				w.Flag("checked", row.Selected)
				w.Raw("></td>")
			}
			for i := range props.Columns {
				w.Raw("<td>")
				if i < len(row.Cells) {
					w.Component(row.Cells[i])
				}
				w.Raw("</td>")
			}
			w.Raw("</tr>")
		}
		w.Raw("</tbody></table>")

		if props.Pager != nil {
			w.Component(Pager(*props.Pager))
		}
		w.Raw("</div>")
		return w.Err()
	})
}
