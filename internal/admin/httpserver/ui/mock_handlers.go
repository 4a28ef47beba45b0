package ui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/filters"
	mocktpl "finitefield.org/taskboard/internal/admin/templates/mock"
	"finitefield.org/taskboard/internal/mockdata"
)

// newMockView always uses explicit submit: the filters are only applied once
// the search button is pressed.
func newMockView(db *mockdata.Database, pageSize int) *listView {
	authors := make([]filters.Option, 0, len(db.Users))
	for _, u := range db.Users {
		authors = append(authors, filters.Option{Value: strconv.Itoa(u.ID), Label: u.Name})
	}
	return &listView{
		key:   "mock",
		title: "モックデータ",
		registry: filters.NewRegistry(
			filters.Field{Name: "q", Kind: filters.KindText, Label: "キーワード", Placeholder: "タイトル・本文を検索"},
			filters.Field{Name: "authorId", Kind: filters.KindSelect, Label: "投稿者", Placeholder: "すべて", Options: authors},
			filters.Field{Name: "published", Kind: filters.KindCheckbox, Label: "公開済みのみ"},
			filters.Field{Name: "createdFrom", Kind: filters.KindDate, Label: "作成日（から）"},
		),
		explicit: true,
		pageSize: pageSize,
	}
}

// MockPage renders the users grid and the posts table.
func (h *Handlers) MockPage(w http.ResponseWriter, r *http.Request) {
	st := h.mockPage.view.open(r, false)
	panel := h.mockPanelData(st)
	st.finish(w, r)

	users := make([]mocktpl.User, 0, len(h.mock.Users))
	for _, u := range h.mock.Users {
		users = append(users, mocktpl.User{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar})
	}
	payload := mocktpl.PageData{
		Layout:     h.layoutPage(r, h.mockPage.view.title, h.mockPage.view.key),
		Users:      users,
		Comments:   len(h.mock.Comments),
		SourceFile: h.mockSource,
		Panel:      panel,
	}
	templ.Handler(mocktpl.Page(payload)).ServeHTTP(w, r)
}

// MockTable renders the posts table fragment.
func (h *Handlers) MockTable(w http.ResponseWriter, r *http.Request) {
	h.mockPage.Table(w, r)
}

// MockFilterField records a filter edit in the draft.
func (h *Handlers) MockFilterField(w http.ResponseWriter, r *http.Request) {
	h.mockPage.FieldChange(w, r)
}

// MockFilterSubmit commits the draft.
func (h *Handlers) MockFilterSubmit(w http.ResponseWriter, r *http.Request) {
	h.mockPage.Submit(w, r)
}

// MockFilterReset clears every filter.
func (h *Handlers) MockFilterReset(w http.ResponseWriter, r *http.Request) {
	h.mockPage.Reset(w, r)
}

func (h *Handlers) renderMockTable(w http.ResponseWriter, r *http.Request, st *listState) {
	table := h.mockTableData(st)
	st.finish(w, r)
	templ.Handler(mocktpl.Table(table)).ServeHTTP(w, r)
}

func (h *Handlers) renderMockPanel(w http.ResponseWriter, r *http.Request, st *listState) {
	panel := h.mockPanelData(st)
	st.finish(w, r)
	templ.Handler(mocktpl.Panel(panel)).ServeHTTP(w, r)
}

func (h *Handlers) mockPanelData(st *listState) mocktpl.PanelData {
	return mocktpl.PanelData{
		Filters: st.filterForm(mocktpl.PanelID, mocktpl.TableID),
		Table:   h.mockTableData(st),
	}
}

func (h *Handlers) mockTableData(st *listState) mocktpl.TableData {
	active := st.filters.CurrentFilters()
	filter := mockdata.PostFilter{
		Query:         active["q"].String(),
		PublishedOnly: active["published"].Bool(),
	}
	if id, err := strconv.Atoi(active["authorId"].String()); err == nil {
		filter.AuthorID = id
	}
	if from, err := time.ParseInLocation("2006-01-02", active["createdFrom"].String(), time.Local); err == nil {
		filter.CreatedFrom = from
	}

	state := st.pages.State()
	posts, total := h.mock.FilterPosts(filter, state.Offset, state.PageSize)

	rows := make([]mocktpl.PostRow, 0, len(posts))
	for _, p := range posts {
		author := "ID: " + strconv.Itoa(p.AuthorID)
		if u, ok := h.mock.User(p.AuthorID); ok {
			author = u.Name
		}
		rows = append(rows, mocktpl.PostRow{
			ID:        p.ID,
			Title:     p.Title,
			Content:   p.Content,
			Author:    author,
			Published: p.Published,
			CreatedAt: p.CreatedAt,
		})
	}
	return mocktpl.TableData{Rows: rows, Pager: st.pager(int64(total))}
}
