package ui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/admin/apiclient"
	"finitefield.org/taskboard/internal/admin/filters"
	todostpl "finitefield.org/taskboard/internal/admin/templates/todos"
	"finitefield.org/taskboard/internal/platform/pagination"
	"finitefield.org/taskboard/internal/platform/requestctx"
)

func newTodoView(explicit bool, pageSize int) *listView {
	return &listView{
		key:   "todos",
		title: "Todo一覧",
		registry: filters.NewRegistry(
			filters.Field{Name: "q", Kind: filters.KindText, Label: "キーワード", Placeholder: "タイトル・説明を検索"},
			filters.Field{
				Name:        "status",
				Kind:        filters.KindSelect,
				Label:       "状態",
				Placeholder: "すべて",
				Options: []filters.Option{
					{Value: "active", Label: "未完了"},
					{Value: "completed", Label: "完了"},
				},
			},
			filters.Field{Name: "createdFrom", Kind: filters.KindDate, Label: "作成日（から）"},
			filters.Field{Name: "createdTo", Kind: filters.KindDate, Label: "作成日（まで）"},
		),
		explicit: explicit,
		pageSize: pageSize,
	}
}

// TodosPage renders the full todo list.
func (h *Handlers) TodosPage(w http.ResponseWriter, r *http.Request) {
	st := h.todoPage.view.open(r, false)
	panel := h.todoPanelData(r, st)
	st.finish(w, r)

	payload := todostpl.PageData{
		Layout: h.layoutPage(r, h.todoPage.view.title, h.todoPage.view.key),
		Panel:  panel,
	}
	templ.Handler(todostpl.Page(payload)).ServeHTTP(w, r)
}

// TodosTable renders the table fragment.
func (h *Handlers) TodosTable(w http.ResponseWriter, r *http.Request) {
	h.todoPage.Table(w, r)
}

// TodosFilterField handles a single filter edit.
func (h *Handlers) TodosFilterField(w http.ResponseWriter, r *http.Request) {
	h.todoPage.FieldChange(w, r)
}

// TodosFilterSubmit commits the filter form.
func (h *Handlers) TodosFilterSubmit(w http.ResponseWriter, r *http.Request) {
	h.todoPage.Submit(w, r)
}

// TodosFilterReset clears every filter.
func (h *Handlers) TodosFilterReset(w http.ResponseWriter, r *http.Request) {
	h.todoPage.Reset(w, r)
}

// TodosBulk completes or deletes the selected todos and re-renders the table.
func (h *Handlers) TodosBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	action := r.PostFormValue("action")
	if action != "complete" && action != "delete" {
		http.Error(w, "unknown bulk action", http.StatusBadRequest)
		return
	}

	ids := make([]string, 0, len(r.PostForm["ids"]))
	for _, id := range r.PostForm["ids"] {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	logger := requestctx.Logger(r.Context())
	token := apiToken(r)
	done, failed := 0, 0
	for _, id := range ids {
		var err error
		switch action {
		case "complete":
			completed := true
			_, err = h.todos.UpdateTodo(r.Context(), token, id, apiclient.TodoUpdate{Completed: &completed})
		case "delete":
			err = h.todos.DeleteTodo(r.Context(), token, id)
		}
		if err != nil {
			failed++
			logger.Warn("todo bulk action failed", zap.String("action", action), zap.String("todo_id", id), zap.Error(err))
			continue
		}
		done++
	}

	st := h.todoPage.view.open(r, true)
	table := h.todoTableData(r, st)
	st.finish(w, r)
	switch {
	case len(ids) == 0:
		table.Flash = "Todoを選択してください。"
	case action == "complete":
		table.Flash = strconv.Itoa(done) + "件を完了にしました。"
	default:
		table.Flash = strconv.Itoa(done) + "件を削除しました。"
	}
	if failed > 0 {
		table.Error = strconv.Itoa(failed) + "件の更新に失敗しました。"
	}
	templ.Handler(todostpl.Table(table)).ServeHTTP(w, r)
}

func (h *Handlers) renderTodoTable(w http.ResponseWriter, r *http.Request, st *listState) {
	table := h.todoTableData(r, st)
	st.finish(w, r)
	templ.Handler(todostpl.Table(table)).ServeHTTP(w, r)
}

func (h *Handlers) renderTodoPanel(w http.ResponseWriter, r *http.Request, st *listState) {
	panel := h.todoPanelData(r, st)
	st.finish(w, r)
	templ.Handler(todostpl.Panel(panel)).ServeHTTP(w, r)
}

func (h *Handlers) todoPanelData(r *http.Request, st *listState) todostpl.PanelData {
	return todostpl.PanelData{
		Filters: st.filterForm(todostpl.PanelID, todostpl.TableID),
		Table:   h.todoTableData(r, st),
	}
}

func (h *Handlers) todoTableData(r *http.Request, st *listState) todostpl.TableData {
	active := st.filters.CurrentFilters()
	params := st.pages.State().Params()
	params.Orders = []pagination.Order{{Field: "createdAt", Desc: true}}

	data := todostpl.TableData{BulkURL: st.view.pagePath(st.base) + "/bulk"}
	page, err := h.todos.ListTodos(r.Context(), apiToken(r), apiclient.TodoQuery{
		Query:       active["q"].String(),
		Status:      active["status"].String(),
		CreatedFrom: active["createdFrom"].String(),
		CreatedTo:   active["createdTo"].String(),
		Page:        params,
	})
	if err != nil {
		requestctx.Logger(r.Context()).Error("list todos failed", zap.Error(err))
		data.Error = "Todoの取得に失敗しました。時間を置いて再度お試しください。"
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			data.Error = "検索条件が正しくありません: " + apiErr.Message
		}
		data.Pager = st.pager(0)
		return data
	}

	data.Rows = make([]todostpl.Row, 0, len(page.Items))
	for _, todo := range page.Items {
		row := todostpl.Row{
			ID:        todo.ID,
			Title:     todo.Title,
			Completed: todo.Completed,
			CreatedAt: todo.CreatedAt,
			UpdatedAt: todo.UpdatedAt,
		}
		if todo.Description != nil {
			row.Description = *todo.Description
		}
		data.Rows = append(data.Rows, row)
	}
	data.Pager = st.pager(page.Total)
	return data
}
