// Package components holds the stateless building blocks shared by admin views.
package components

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/filters"
	"finitefield.org/taskboard/internal/admin/templates/helpers"
)

// FieldControl pairs a field descriptor with its resolved value.
type FieldControl struct {
	Field filters.Field
	Value filters.Value
}

// FilterFieldProps configures a single filter control.
type FilterFieldProps struct {
	Control FieldControl
	// ChangeURL receives an htmx POST with "field" set to the field name.
	ChangeURL string
	// Target and Swap describe where the change response goes. An empty
	// Target discards the response.
	Target string
	Swap   string
}

// FilterFormProps configures the filter form of a view.
type FilterFormProps struct {
	ID       string
	Title    string
	Controls []FieldControl
	Explicit bool

	ChangeURL string
	SubmitURL string
	ResetURL  string

	// PanelTarget is replaced by submit and reset responses.
	PanelTarget string
	// TableTarget is replaced by auto-submit field changes.
	TableTarget string

	SubmitLabel string
}

// FilterForm renders every control of a view plus its submit and reset buttons.
func FilterForm(props FilterFormProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		mode := "auto"
		if props.Explicit {
			mode = "explicit"
		}

		w.Raw(`<form class="filter-form"`)
		w.AttrIf("id", props.ID)
		w.Attr("data-mode", mode)
		w.Attr("hx-post", props.SubmitURL)
		w.Attr("hx-target", props.PanelTarget)
		w.Attr("hx-swap", "outerHTML")
		w.Raw(">")
		if props.Title != "" {
			w.Raw(`<h2 class="filter-title">`)
			w.Text(props.Title)
			w.Raw("</h2>")
		}

		w.Raw(`<div class="filter-grid">`)
		for _, control := range props.Controls {
			field := FilterFieldProps{Control: control, ChangeURL: props.ChangeURL}
			if !props.Explicit {
				field.Target = props.TableTarget
				field.Swap = "outerHTML"
			}
			w.Component(FilterField(field))
		}
		w.Raw("</div>")

		w.Raw(`<div class="filter-actions">`)
		if props.Explicit {
			label := props.SubmitLabel
			if label == "" {
				label = "検索"
			}
			w.Raw(`<button type="submit"`)
			w.Attr("class", helpers.ButtonClass("primary"))
			w.Raw(">")
			w.Text(label)
			w.Raw("</button>")
		}
		w.Raw(`<button type="button" data-action="reset"`)
		w.Attr("class", helpers.ButtonClass(""))
		w.Attr("hx-post", props.ResetURL)
		w.Attr("hx-target", props.PanelTarget)
		w.Attr("hx-swap", "outerHTML")
		w.Raw(">リセット</button>")
		w.Raw("</div></form>")
		return w.Err()
	})
}

// FilterField renders one control by kind. Checkboxes carry their own label.
func FilterField(props FilterFieldProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		field := props.Control.Field
		value := props.Control.Value
		id := "filter-" + field.Name

		if field.Kind == filters.KindCheckbox {
			w.Raw(`<div class="filter-field filter-checkbox"><label>`)
			w.Raw(`<input type="checkbox" value="true"`)
			w.Attr("id", id)
			w.Attr("name", field.Name)
			w.Flag("checked", value.Bool())
			w.Flag("disabled", field.Disabled)
			writeChangeAttrs(w, props, "change")
			w.Raw("> ")
			w.Text(field.Label)
			w.Raw("</label></div>")
			return w.Err()
		}

		w.Raw(`<div class="filter-field">`)
		if field.Label != "" {
			w.Raw(`<label class="filter-label"`)
			w.Attr("for", id)
			w.Raw(">")
			w.Text(field.Label)
			w.Raw("</label>")
		}

		switch field.Kind {
		case filters.KindSelect:
			w.Raw("<select")
			w.Attr("id", id)
			w.Attr("name", field.Name)
			w.Flag("disabled", field.Disabled)
			writeChangeAttrs(w, props, "change")
			w.Raw(">")
			w.Raw(`<option value=""`)
			w.Flag("selected", value.String() == "")
			w.Raw(">")
			if field.Placeholder != "" {
				w.Text(field.Placeholder)
			} else {
				w.Text("選択してください")
			}
			w.Raw("</option>")
			for _, opt := range field.Options {
				w.Raw("<option")
				w.Attr("value", opt.Value)
				w.Flag("selected", opt.Value == value.String())
				w.Raw(">")
				w.Text(opt.Label)
				w.Raw("</option>")
			}
			w.Raw("</select>")
		case filters.KindDate:
			w.Raw(`<input type="date"`)
			w.Attr("id", id)
			w.Attr("name", field.Name)
			w.Attr("value", value.String())
			w.Flag("disabled", field.Disabled)
			writeChangeAttrs(w, props, "change")
			w.Raw(">")
		default:
			w.Raw(`<input type="text"`)
			w.Attr("id", id)
			w.Attr("name", field.Name)
			w.Attr("value", value.String())
			w.AttrIf("placeholder", field.Placeholder)
			w.Flag("disabled", field.Disabled)
			writeChangeAttrs(w, props, "input changed delay:300ms, change")
			w.Raw(">")
		}
		w.Raw("</div>")
		return w.Err()
	})
}

func writeChangeAttrs(w *helpers.Writer, props FilterFieldProps, trigger string) {
	if props.ChangeURL == "" || props.Control.Field.Disabled {
		return
	}
	vals, _ := json.Marshal(map[string]string{"field": props.Control.Field.Name})
	w.Attr("hx-post", props.ChangeURL)
	w.Attr("hx-trigger", trigger)
	w.Attr("hx-vals", string(vals))
	if props.Target != "" {
		w.Attr("hx-target", props.Target)
		w.AttrIf("hx-swap", props.Swap)
	} else {
		w.Attr("hx-swap", "none")
	}
}
