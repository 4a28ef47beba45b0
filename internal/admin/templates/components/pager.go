package components

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/helpers"
)

// PageLink addresses a page both as a full document and as a table fragment.
type PageLink struct {
	Href     string
	Fragment string
}

// PageSizeOption is one entry of the page size switcher.
type PageSizeOption struct {
	Size     int
	Link     PageLink
	Selected bool
}

// PagerProps configures Pager.
type PagerProps struct {
	Total      int64
	Page       int
	PageSize   int
	TotalPages int

	First PageLink
	Prev  PageLink
	Next  PageLink
	Last  PageLink
	Sizes []PageSizeOption

	// Target is the element replaced by fragment responses.
	Target string
}

// Range returns the 1-based indexes of the first and last row on the page.
func (p PagerProps) Range() (start, end int64) {
	if p.Total <= 0 || p.PageSize <= 0 {
		return 0, 0
	}
	start = int64(p.Page-1)*int64(p.PageSize) + 1
	end = min(int64(p.Page)*int64(p.PageSize), p.Total)
	if start > end {
		return 0, 0
	}
	return start, end
}

// Pager renders the result summary, navigation buttons and page size links.
func Pager(props PagerProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		atStart := props.Page <= 1
		atEnd := props.Page >= props.TotalPages

		w.Raw(`<nav class="pager" aria-label="ページ送り">`)
		w.Raw(`<div class="pager-summary">`)
		if start, end := props.Range(); start > 0 {
			w.Text("全 " + strconv.FormatInt(props.Total, 10) + " 件中 " +
				strconv.FormatInt(start, 10) + " - " + strconv.FormatInt(end, 10) + " 件表示")
		}
		w.Raw("</div>")

		w.Raw(`<div class="pager-buttons">`)
		writePageLink(w, props.First, "最初", "first", atStart, props.Target)
		writePageLink(w, props.Prev, "前へ", "prev", atStart, props.Target)
		w.Raw(`<span class="pager-position">`)
		w.Text(strconv.Itoa(props.Page) + " / " + strconv.Itoa(max(1, props.TotalPages)))
		w.Raw("</span>")
		writePageLink(w, props.Next, "次へ", "next", atEnd, props.Target)
		writePageLink(w, props.Last, "最後", "last", atEnd, props.Target)
		w.Raw("</div>")

		if len(props.Sizes) > 0 {
			w.Raw(`<div class="pager-sizes"><span>表示件数</span>`)
			for _, opt := range props.Sizes {
				label := strconv.Itoa(opt.Size) + "件"
				if opt.Selected {
					w.Raw(`<span class="pager-size current" aria-current="true">`)
					w.Text(label)
					w.Raw("</span>")
					continue
				}
				w.Raw(`<a class="pager-size"`)
				w.Attr("data-size", strconv.Itoa(opt.Size))
				writeLinkAttrs(w, opt.Link, props.Target)
				w.Raw(">")
				w.Text(label)
				w.Raw("</a>")
			}
			w.Raw("</div>")
		}
		w.Raw("</nav>")
		return w.Err()
	})
}

func writePageLink(w *helpers.Writer, link PageLink, label, rel string, disabled bool, target string) {
	if disabled || link.Href == "" {
		w.Raw(`<span class="btn disabled" aria-disabled="true"`)
		w.Attr("data-rel", rel)
		w.Raw(">")
		w.Text(label)
		w.Raw("</span>")
		return
	}
	w.Raw(`<a class="btn"`)
	w.Attr("data-rel", rel)
	writeLinkAttrs(w, link, target)
	w.Raw(">")
	w.Text(label)
	w.Raw("</a>")
}

func writeLinkAttrs(w *helpers.Writer, link PageLink, target string) {
	w.Attr("href", link.Href)
	if link.Fragment != "" {
		w.Attr("hx-get", link.Fragment)
		w.AttrIf("hx-target", target)
		w.Attr("hx-swap", "outerHTML")
	}
}
