package ui

import (
	"net/http"
	"net/url"
	"slices"

	"go.uber.org/zap"

	custommw "finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/filters"
	"finitefield.org/taskboard/internal/admin/pageparams"
	"finitefield.org/taskboard/internal/admin/querystate"
	"finitefield.org/taskboard/internal/admin/templates/components"
	"finitefield.org/taskboard/internal/platform/requestctx"
)

var pageSizeChoices = []int{10, 20, 50}

// listView is a page whose filters and pagination live in its URL query.
type listView struct {
	// key names the route segment and the session draft slot.
	key      string
	title    string
	registry *filters.Registry
	explicit bool
	pageSize int
	defaults filters.Values
}

func (v *listView) pagePath(base string) string {
	return custommw.JoinBase(base, "/"+v.key)
}

func (v *listView) tablePath(base string) string {
	return v.pagePath(base) + "/table"
}

func (v *listView) actionPath(base, action string) string {
	return v.pagePath(base) + "/filters/" + action
}

// listState is the per-request view of a listView: the URL store, the
// reconciler mounted on it and the pagination adapter.
type listState struct {
	view    *listView
	base    string
	store   *querystate.URLStore
	filters *filters.Reconciler
	pages   *pageparams.Adapter
}

// open mounts the view for r. GET requests read the request URL; actions read
// the page URL htmx reports. restoreDraft reloads the explicit-submit draft
// kept in the session, otherwise it is seeded from the URL.
func (v *listView) open(r *http.Request, restoreDraft bool) *listState {
	base := custommw.BasePathFromContext(r.Context())
	st := &listState{
		view:  v,
		base:  base,
		store: querystate.FromURL(&url.URL{Path: v.pagePath(base), RawQuery: sourceQuery(r)}),
	}
	st.pages = pageparams.New(st.store, v.pageSize)

	var mode filters.Mode = filters.AutoSubmit{}
	if v.explicit {
		explicit := &filters.ExplicitSubmit{}
		if restoreDraft {
			if sess, ok := custommw.SessionFromContext(r.Context()); ok {
				if stored := sess.Draft(v.key); stored != nil {
					explicit.Draft = v.registry.Reinterpret(stored)
				}
			}
		}
		mode = explicit
	}

	mounted := false
	st.filters = filters.New(v.registry, st.store, mode, filters.Options{
		Defaults: v.defaults,
		OnFilterChange: func(active filters.Values) {
			if !mounted {
				return
			}
			requestctx.Logger(r.Context()).Debug("filters changed",
				zap.String("view", v.key),
				zap.String("filters", active.Encode()))
			st.pages.SetPage(1)
		},
	})
	mounted = true
	return st
}

// sourceQuery returns the query the view state is derived from.
func sourceQuery(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.RawQuery
	}
	for _, raw := range []string{
		custommw.HTMXInfoFromContext(r.Context()).CurrentURL,
		r.Header.Get("Referer"),
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil {
			return u.RawQuery
		}
	}
	return ""
}

// finish detaches the reconciler, stores the draft and tells htmx which URL
// now describes the page.
func (st *listState) finish(w http.ResponseWriter, r *http.Request) {
	st.filters.Close()
	if st.view.explicit {
		if sess, ok := custommw.SessionFromContext(r.Context()); ok {
			sess.SetDraft(st.view.key, st.filters.Draft().Strings())
		}
	}
	if custommw.IsHTMXRequest(r.Context()) {
		custommw.HXReplaceURL(w, st.store.Location())
	}
}

func (st *listState) controls() []components.FieldControl {
	fields := st.view.registry.Fields()
	out := make([]components.FieldControl, 0, len(fields))
	for _, f := range fields {
		out = append(out, components.FieldControl{Field: f, Value: st.filters.FieldValue(f.Name)})
	}
	return out
}

func (st *listState) filterForm(panelID, tableID string) components.FilterFormProps {
	return components.FilterFormProps{
		ID:          st.view.key + "-filters",
		Title:       "絞り込み",
		Controls:    st.controls(),
		Explicit:    st.view.explicit,
		ChangeURL:   st.view.actionPath(st.base, "field"),
		SubmitURL:   st.view.actionPath(st.base, "submit"),
		ResetURL:    st.view.actionPath(st.base, "reset"),
		PanelTarget: "#" + panelID,
		TableTarget: "#" + tableID,
	}
}

// pager builds navigation links by applying page edits to a copy of the store.
func (st *listState) pager(total int64) components.PagerProps {
	state := st.pages.State()
	totalPages := state.TotalPages(total)

	link := func(edit func(*pageparams.Adapter)) components.PageLink {
		clone := querystate.FromURL(&url.URL{RawQuery: st.store.RawQuery()})
		edit(pageparams.New(clone, st.view.pageSize))
		return components.PageLink{
			Href:     withQuery(st.view.pagePath(st.base), clone.RawQuery()),
			Fragment: withQuery(st.view.tablePath(st.base), clone.RawQuery()),
		}
	}
	goTo := func(page int) components.PageLink {
		return link(func(a *pageparams.Adapter) { a.SetPage(page) })
	}

	choices := pageSizeChoices
	if !slices.Contains(choices, st.view.pageSize) {
		choices = append(slices.Clone(choices), st.view.pageSize)
		slices.Sort(choices)
	}
	sizes := make([]components.PageSizeOption, 0, len(choices))
	for _, size := range choices {
		sizes = append(sizes, components.PageSizeOption{
			Size:     size,
			Selected: size == state.PageSize,
			Link:     link(func(a *pageparams.Adapter) { a.SetPageSize(size) }),
		})
	}

	return components.PagerProps{
		Total:      total,
		Page:       state.Page,
		PageSize:   state.PageSize,
		TotalPages: totalPages,
		First:      goTo(1),
		Prev:       goTo(max(1, state.Page-1)),
		Next:       goTo(min(totalPages, state.Page+1)),
		Last:       goTo(totalPages),
		Sizes:      sizes,
	}
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// listPage binds a listView to the renderers of its fragments.
type listPage struct {
	view  *listView
	table func(w http.ResponseWriter, r *http.Request, st *listState)
	panel func(w http.ResponseWriter, r *http.Request, st *listState)
}

// FieldChange applies one edited control. Auto-submit views answer with the
// refreshed table; explicit-submit views only record the draft.
func (p listPage) FieldChange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("field")
	field, ok := p.view.registry.Field(name)
	if !ok {
		http.Error(w, "unknown filter field", http.StatusBadRequest)
		return
	}

	st := p.view.open(r, true)
	if !field.Disabled {
		st.filters.HandleFieldChange(name, field.Parse(r.PostFormValue(name)))
	}
	if p.view.explicit {
		st.finish(w, r)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	p.table(w, r, st)
}

// Submit applies every posted control, commits the draft and answers with the
// whole panel.
func (p listPage) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	st := p.view.open(r, true)
	draft := st.filters.Draft()
	for _, field := range p.view.registry.Fields() {
		if field.Disabled {
			continue
		}
		value := field.Parse(r.PostFormValue(field.Name))
		current := draft[field.Name]
		if draft == nil {
			current = st.filters.FieldValue(field.Name)
		}
		if value == current || (value.Empty() && current.Empty()) {
			continue
		}
		st.filters.HandleFieldChange(field.Name, value)
	}
	st.filters.HandleSubmit()
	p.panel(w, r, st)
}

// Reset clears every filter and answers with the whole panel.
func (p listPage) Reset(w http.ResponseWriter, r *http.Request) {
	st := p.view.open(r, true)
	st.filters.HandleReset()
	p.panel(w, r, st)
}

// Table renders the table fragment for pager navigation.
func (p listPage) Table(w http.ResponseWriter, r *http.Request) {
	p.table(w, r, p.view.open(r, false))
}
