// Package helpers holds formatting functions and the HTML writer shared by the
// admin templates.
//
// The admin views have no .templ sources. Each page is a templ.ComponentFunc
// whose body is written with Writer, in the shape templ generate would emit,
// so components still compose through templ.Component and templ's escaping.
package helpers

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Writer accumulates HTML output and remembers the first write error so
// component bodies can be written without checking every call.
type Writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

// NewWriter wraps w for a single component render.
func NewWriter(ctx context.Context, w io.Writer) *Writer {
	return &Writer{ctx: ctx, w: w}
}

// Raw writes trusted markup.
func (w *Writer) Raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Text writes escaped text.
func (w *Writer) Text(s string) {
	w.Raw(templ.EscapeString(s))
}

// Int writes a decimal integer.
func (w *Writer) Int(n int64) {
	w.Raw(strconv.FormatInt(n, 10))
}

// Attr writes ` name="value"` with the value escaped.
func (w *Writer) Attr(name, value string) {
	w.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// AttrIf writes Attr when value is not empty.
func (w *Writer) AttrIf(name, value string) {
	if value != "" {
		w.Attr(name, value)
	}
}

// Flag writes a boolean attribute when on is true.
func (w *Writer) Flag(name string, on bool) {
	if on {
		w.Raw(" " + name)
	}
}

// Component renders c in place. Nil components are skipped.
func (w *Writer) Component(c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(w.ctx, w.w)
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}
