package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/taskboard/internal/domain"
	pfirestore "finitefield.org/taskboard/internal/platform/firestore"
	"finitefield.org/taskboard/internal/repositories"
)

const todosCollection = "todos"

var todoOrderFields = map[string]string{
	"createdAt": "createdAt",
	"updatedAt": "updatedAt",
	"title":     "title",
}

type todoDocument struct {
	Title       string    `firestore:"title"`
	Description *string   `firestore:"description"`
	Completed   bool      `firestore:"completed"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (d todoDocument) toDomain(id string) domain.Todo {
	return domain.Todo{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// TodoRepository stores todos as documents in the todos collection.
type TodoRepository struct {
	provider *pfirestore.Provider
}

// NewTodoRepository constructs a Firestore-backed todo repository.
func NewTodoRepository(provider *pfirestore.Provider) (*TodoRepository, error) {
	if provider == nil {
		return nil, errors.New("todo repository: firestore provider is required")
	}
	return &TodoRepository{provider: provider}, nil
}

var _ repositories.TodoRepository = (*TodoRepository)(nil)

func (r *TodoRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(todosCollection), nil
}

// List applies equality and range filters server side. Firestore has no substring
// match, so a text query is evaluated client side over the filtered documents.
func (r *TodoRepository) List(ctx context.Context, q repositories.TodoListQuery) ([]domain.Todo, int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := coll.Query
	switch q.Filter.Status {
	case domain.TodoStatusActive:
		query = query.Where("completed", "==", false)
	case domain.TodoStatusCompleted:
		query = query.Where("completed", "==", true)
	}
	if q.Filter.CreatedFrom != nil {
		query = query.Where("createdAt", ">=", q.Filter.CreatedFrom.UTC())
	}
	if q.Filter.CreatedTo != nil {
		query = query.Where("createdAt", "<", q.Filter.CreatedTo.UTC())
	}
	field, ok := todoOrderFields[q.OrderBy]
	if !ok {
		field = "createdAt"
	}
	direction := firestore.Asc
	if q.Desc {
		direction = firestore.Desc
	}
	query = query.OrderBy(field, direction)

	text := strings.ToLower(strings.TrimSpace(q.Filter.Query))
	if text == "" {
		return r.listPaged(ctx, query, q)
	}

	var matched []domain.Todo
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, pfirestore.WrapError("todos.list", err)
		}
		todo, err := decodeTodo(snap)
		if err != nil {
			return nil, 0, err
		}
		if matchesText(todo, text) {
			matched = append(matched, todo)
		}
	}

	total := int64(len(matched))
	start := min(q.Offset, len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (r *TodoRepository) listPaged(ctx context.Context, query firestore.Query, q repositories.TodoListQuery) ([]domain.Todo, int64, error) {
	result, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, pfirestore.WrapError("todos.count", err)
	}
	total := countValue(result["total"])

	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, pfirestore.WrapError("todos.list", err)
	}
	items := make([]domain.Todo, 0, len(snaps))
	for _, snap := range snaps {
		todo, err := decodeTodo(snap)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, todo)
	}
	return items, total, nil
}

func countValue(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case interface{ GetIntegerValue() int64 }:
		return n.GetIntegerValue()
	default:
		return 0
	}
}

func matchesText(todo domain.Todo, text string) bool {
	if strings.Contains(strings.ToLower(todo.Title), text) {
		return true
	}
	return todo.Description != nil && strings.Contains(strings.ToLower(*todo.Description), text)
}

func decodeTodo(snap *firestore.DocumentSnapshot) (domain.Todo, error) {
	var doc todoDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Todo{}, pfirestore.WrapError("todos.decode", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// FindByID loads a single todo document.
func (r *TodoRepository) FindByID(ctx context.Context, id string) (domain.Todo, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Todo{}, err
	}
	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		return domain.Todo{}, pfirestore.WrapError("todos.get", err)
	}
	return decodeTodo(snap)
}

// Insert creates the document, failing with a conflict if the id exists.
func (r *TodoRepository) Insert(ctx context.Context, todo domain.Todo) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	doc := todoDocument{
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		CreatedAt:   todo.CreatedAt.UTC(),
		UpdatedAt:   todo.UpdatedAt.UTC(),
	}
	if _, err := coll.Doc(todo.ID).Create(ctx, doc); err != nil {
		return pfirestore.WrapError("todos.insert", err)
	}
	return nil
}

// Update applies patch in a transaction and returns the stored document.
func (r *TodoRepository) Update(ctx context.Context, id string, patch domain.TodoPatch, updatedAt time.Time) (domain.Todo, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Todo{}, err
	}
	ref := client.Collection(todosCollection).Doc(id)

	var result domain.Todo
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc todoDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		updates := []firestore.Update{{Path: "updatedAt", Value: updatedAt.UTC()}}
		if patch.Title != nil {
			doc.Title = *patch.Title
			updates = append(updates, firestore.Update{Path: "title", Value: doc.Title})
		}
		if patch.ClearDescription {
			doc.Description = nil
			updates = append(updates, firestore.Update{Path: "description", Value: nil})
		} else if patch.Description != nil {
			desc := *patch.Description
			doc.Description = &desc
			updates = append(updates, firestore.Update{Path: "description", Value: desc})
		}
		if patch.Completed != nil {
			doc.Completed = *patch.Completed
			updates = append(updates, firestore.Update{Path: "completed", Value: doc.Completed})
		}
		doc.UpdatedAt = updatedAt.UTC()
		result = doc.toDomain(id)
		return tx.Update(ref, updates)
	})
	if err != nil {
		return domain.Todo{}, pfirestore.WrapError("todos.update", err)
	}
	return result, nil
}

// Delete removes the document and returns its last state.
func (r *TodoRepository) Delete(ctx context.Context, id string) (domain.Todo, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Todo{}, err
	}
	ref := client.Collection(todosCollection).Doc(id)

	var result domain.Todo
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		todo, err := decodeTodo(snap)
		if err != nil {
			return err
		}
		result = todo
		return tx.Delete(ref, firestore.Exists)
	})
	if err != nil {
		return domain.Todo{}, pfirestore.WrapError("todos.delete", err)
	}
	return result, nil
}

// DeleteAll removes every todo document using a bulk writer.
func (r *TodoRepository) DeleteAll(ctx context.Context) (int64, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	refs, err := client.Collection(todosCollection).DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, pfirestore.WrapError("todos.deleteAll", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	writer := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := writer.Delete(ref)
		if err != nil {
			writer.End()
			return 0, pfirestore.WrapError("todos.deleteAll", err)
		}
		jobs = append(jobs, job)
	}
	writer.End()

	var deleted int64
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return deleted, pfirestore.WrapError("todos.deleteAll", err)
		}
		deleted++
	}
	return deleted, nil
}
