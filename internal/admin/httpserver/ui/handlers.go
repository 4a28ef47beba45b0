package ui

import (
	"context"
	"net/http"

	"finitefield.org/taskboard/internal/admin/apiclient"
	custommw "finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/templates/layout"
	"finitefield.org/taskboard/internal/mockdata"
)

// TodoService is the slice of the API client the todo pages use.
type TodoService interface {
	ListTodos(ctx context.Context, token string, q apiclient.TodoQuery) (apiclient.TodoPage, error)
	UpdateTodo(ctx context.Context, token, id string, update apiclient.TodoUpdate) (apiclient.Todo, error)
	DeleteTodo(ctx context.Context, token, id string) error
}

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Todos TodoService
	// MockData enables the mock data browser when set.
	MockData   *mockdata.Database
	MockSource string
	PageSize   int
	// ExplicitTodos switches the todo filters to explicit-submit mode.
	ExplicitTodos bool
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	todos      TodoService
	mock       *mockdata.Database
	mockSource string

	todoPage listPage
	mockPage listPage
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	if deps.Todos == nil {
		panic("ui: todo service is required")
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	h := &Handlers{
		todos:      deps.Todos,
		mock:       deps.MockData,
		mockSource: deps.MockSource,
	}
	h.todoPage = listPage{
		view:  newTodoView(deps.ExplicitTodos, pageSize),
		table: h.renderTodoTable,
		panel: h.renderTodoPanel,
	}
	if h.mock != nil {
		h.mockPage = listPage{
			view:  newMockView(h.mock, pageSize),
			table: h.renderMockTable,
			panel: h.renderMockPanel,
		}
	}
	return h
}

// HasMockData reports whether the mock data routes should be mounted.
func (h *Handlers) HasMockData() bool {
	return h.mock != nil
}

// Home redirects to the todo list.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	base := custommw.BasePathFromContext(r.Context())
	http.Redirect(w, r, h.todoPage.view.pagePath(base), http.StatusFound)
}

func (h *Handlers) layoutPage(r *http.Request, title, active string) layout.Page {
	ctx := r.Context()
	info := custommw.RequestInfoFromContext(ctx)

	name := ""
	if user, ok := custommw.UserFromContext(ctx); ok {
		name = user.Name
		if name == "" {
			name = user.Email
		}
		if name == "" {
			name = user.ID
		}
	}

	nav := []layout.NavItem{{
		Label:  "Todo一覧",
		Href:   h.todoPage.view.pagePath(info.BasePath),
		Active: active == h.todoPage.view.key,
	}}
	if h.mock != nil {
		nav = append(nav, layout.NavItem{
			Label:  "モックデータ",
			Href:   h.mockPage.view.pagePath(info.BasePath),
			Active: active == h.mockPage.view.key,
		})
	}

	return layout.Page{
		Title:       title,
		BasePath:    info.BasePath,
		CSRFToken:   custommw.CSRFTokenFromContext(ctx),
		Environment: info.Environment,
		UserName:    name,
		LogoutURL:   custommw.JoinBase(info.BasePath, "/logout"),
		Nav:         nav,
	}
}

// apiToken returns the API bearer token stored at sign-in. Firebase sessions
// have none and call the API anonymously.
func apiToken(r *http.Request) string {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		return sess.APIToken()
	}
	return ""
}
