// Package layout renders the document shell shared by every admin page.
package layout

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/helpers"
)

const (
	appName   = "Taskboard"
	htmxSrc   = "https://unpkg.com/htmx.org@2.0.4"
	staticDir = "/public/static/"
)

// NavItem is one entry of the top navigation.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// Page carries the chrome shared by every page.
type Page struct {
	Title       string
	BasePath    string
	CSRFToken   string
	Environment string
	UserName    string
	LogoutURL   string
	Nav         []NavItem
}

// Base wraps body in the HTML document. Pages without a signed-in user get no
// navigation bar.
func Base(page Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.Raw("<title>")
		if page.Title != "" {
			w.Text(page.Title + " | " + appName)
		} else {
			w.Text(appName)
		}
		w.Raw("</title>")
		w.Raw(`<link rel="stylesheet" href="` + staticDir + `app.css">`)
		w.Raw(`<script src="` + htmxSrc + `" defer></script>`)
		w.Raw(`<script src="` + staticDir + `app.js" defer></script>`)
		w.Raw("</head><body")
		if page.CSRFToken != "" {
			headers, _ := json.Marshal(map[string]string{"X-CSRF-Token": page.CSRFToken})
			w.Attr("hx-headers", string(headers))
		}
		w.Raw(">")

		if page.UserName != "" {
			w.Component(topbar(page))
		}
		w.Raw(`<main class="content">`)
		w.Component(body)
		w.Raw("</main></body></html>")
		return w.Err()
	})
}

func topbar(page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<header class="topbar"><div><strong>` + appName + `</strong>`)
		if page.Environment != "" && page.Environment != "production" {
			w.Raw(` <span class="env-badge">`)
			w.Text(page.Environment)
			w.Raw("</span>")
		}
		w.Raw("</div><nav>")
		for _, item := range page.Nav {
			w.Raw("<a")
			w.Attr("href", item.Href)
			if item.Active {
				w.Attr("class", "active")
				w.Attr("aria-current", "page")
			}
			w.Raw(">")
			w.Text(item.Label)
			w.Raw("</a>")
		}
		w.Raw(`</nav><div class="topbar-user"><span class="user-name">`)
		w.Text(page.UserName)
		w.Raw("</span>")
		if page.LogoutURL != "" {
			w.Raw(`<form method="post" style="display:inline"`)
			w.Attr("action", page.LogoutURL)
			w.Raw(`><input type="hidden" name="csrf_token"`)
			w.Attr("value", page.CSRFToken)
			w.Raw(`><button type="submit" class="btn">ログアウト</button></form>`)
		}
		w.Raw("</div></header>")
		return w.Err()
	})
}
