package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/platform/pagination"
	"finitefield.org/taskboard/internal/services"
)

const (
	maxTodoRequestBody = 16 * 1024
	dateParamLayout    = "2006-01-02"
	timestampLayout    = "2006-01-02T15:04:05.000Z07:00"
)

// TodoListOptions controls listing pagination for the todo endpoints.
var TodoListOptions = pagination.Options{
	DefaultPageSize:    20,
	MaxPageSize:        100,
	AllowedOrderFields: []string{"createdAt", "updatedAt", "title"},
	DefaultOrders:      []pagination.Order{{Field: "createdAt", Desc: true}},
}

// TodoHandlers exposes the todo CRUD endpoints.
type TodoHandlers struct {
	todos services.TodoService
}

// NewTodoHandlers constructs the todo handlers.
func NewTodoHandlers(todos services.TodoService) *TodoHandlers {
	return &TodoHandlers{todos: todos}
}

// Routes registers the todo endpoints on the provided router.
func (h *TodoHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/todos", func(rt chi.Router) {
		rt.Get("/", h.listTodos)
		rt.Post("/", h.createTodo)
		rt.Get("/{todoId}", h.getTodo)
		rt.Put("/{todoId}", h.updateTodo)
		rt.Delete("/{todoId}", h.deleteTodo)
	})
}

type todoResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type todoListResponse struct {
	Items    []todoResponse `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type createTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// updateTodoRequest distinguishes an absent description from an explicit null.
type updateTodoRequest struct {
	Title       *string         `json:"title"`
	Description json.RawMessage `json:"description"`
	Completed   *bool           `json:"completed"`
}

func (h *TodoHandlers) listTodos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	params, err := pagination.Parse(query, TodoListOptions)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	filter, err := parseTodoFilter(query)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.TodoListCommand{Filter: filter, Page: params.Page, PageSize: params.PageSize}
	if len(params.Orders) > 0 {
		cmd.OrderBy = params.Orders[0].Field
		cmd.Desc = params.Orders[0].Desc
	}
	page, err := h.todos.List(ctx, cmd)
	if err != nil {
		writeTodoError(w, r, err)
		return
	}

	resp := todoListResponse{
		Items:    make([]todoResponse, 0, len(page.Items)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for _, todo := range page.Items {
		resp.Items = append(resp.Items, toTodoResponse(todo))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(page.Total, 10))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func parseTodoFilter(query map[string][]string) (domain.TodoFilter, error) {
	get := func(key string) string {
		if values := query[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}

	filter := domain.TodoFilter{Query: get("q"), Status: domain.TodoStatus(get("status"))}
	if raw := get("createdFrom"); raw != "" {
		from, err := time.ParseInLocation(dateParamLayout, raw, time.UTC)
		if err != nil {
			return domain.TodoFilter{}, errors.New("createdFrom must be YYYY-MM-DD")
		}
		filter.CreatedFrom = &from
	}
	if raw := get("createdTo"); raw != "" {
		to, err := time.ParseInLocation(dateParamLayout, raw, time.UTC)
		if err != nil {
			return domain.TodoFilter{}, errors.New("createdTo must be YYYY-MM-DD")
		}
		// Inclusive day in the query, exclusive bound in the filter.
		end := to.AddDate(0, 0, 1)
		filter.CreatedTo = &end
	}
	return filter, nil
}

func (h *TodoHandlers) getTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todos.Get(r.Context(), chi.URLParam(r, "todoId"))
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(todo))
}

func (h *TodoHandlers) createTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := httpx.DecodeJSON(r, maxTodoRequestBody, &req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.BodyError(err))
		return
	}
	todo, err := h.todos.Create(r.Context(), services.CreateTodoCommand{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTodoResponse(todo))
}

func (h *TodoHandlers) updateTodo(w http.ResponseWriter, r *http.Request) {
	var req updateTodoRequest
	if err := httpx.DecodeJSON(r, maxTodoRequestBody, &req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.BodyError(err))
		return
	}

	patch := domain.TodoPatch{Title: req.Title, Completed: req.Completed}
	switch raw := strings.TrimSpace(string(req.Description)); raw {
	case "":
	case "null":
		patch.ClearDescription = true
	default:
		var description string
		if err := json.Unmarshal(req.Description, &description); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "description must be a string or null", http.StatusBadRequest))
			return
		}
		patch.Description = &description
	}

	todo, err := h.todos.Update(r.Context(), chi.URLParam(r, "todoId"), patch)
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(todo))
}

func (h *TodoHandlers) deleteTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todos.Delete(r.Context(), chi.URLParam(r, "todoId"))
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(todo))
}

func writeTodoError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrTodoInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrTodoNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("todo_not_found", "Todo not found", http.StatusNotFound))
	case errors.Is(err, services.ErrTodoConflict):
		httpx.WriteError(ctx, w, httpx.NewError("todo_conflict", "todo was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrTodoRepositoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("todo_service_unavailable", "todo repository unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to process todo request", http.StatusInternalServerError))
	}
}

func toTodoResponse(todo domain.Todo) todoResponse {
	return todoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		CreatedAt:   todo.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:   todo.UpdatedAt.UTC().Format(timestampLayout),
	}
}
