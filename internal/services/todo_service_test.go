package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/repositories/memory"
)

type recordingPublisher struct {
	events []TodoEvent
	err    error
}

func (p *recordingPublisher) PublishTodoEvent(_ context.Context, event TodoEvent) (string, error) {
	p.events = append(p.events, event)
	return fmt.Sprintf("msg-%d", len(p.events)), p.err
}

func newTestTodoService(t *testing.T, publisher TodoEventPublisher) (TodoService, *time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seq := 0
	svc, err := NewTodoService(TodoServiceDeps{
		Repository: memory.NewRegistry().Todos(),
		Events:     publisher,
		Clock:      func() time.Time { return now },
		IDGen: func() string {
			seq++
			return fmt.Sprintf("todo-%02d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewTodoService: %v", err)
	}
	return svc, &now
}

func TestTodoServiceCreateSanitisesInput(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestTodoService(t, pub)

	desc := "  <b>milk</b> & bread  "
	todo, err := svc.Create(context.Background(), CreateTodoCommand{Title: "<script>x</script>Shop", Description: &desc})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if todo.Title != "Shop" {
		t.Fatalf("expected markup stripped from title, got %q", todo.Title)
	}
	if todo.Description == nil || *todo.Description != "milk & bread" {
		t.Fatalf("unexpected description %v", todo.Description)
	}
	if len(pub.events) != 1 || pub.events[0].Type != TodoCreated || pub.events[0].TodoID != todo.ID {
		t.Fatalf("expected created event, got %+v", pub.events)
	}
}

func TestTodoServiceCreateRejectsBlankTitle(t *testing.T) {
	svc, _ := newTestTodoService(t, nil)
	_, err := svc.Create(context.Background(), CreateTodoCommand{Title: "  <i></i> "})
	if !errors.Is(err, ErrTodoInvalidInput) {
		t.Fatalf("expected ErrTodoInvalidInput, got %v", err)
	}
}

func TestTodoServicePublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("pubsub down")}
	svc, _ := newTestTodoService(t, pub)
	if _, err := svc.Create(context.Background(), CreateTodoCommand{Title: "write"}); err != nil {
		t.Fatalf("expected create to succeed despite publish failure, got %v", err)
	}
}

func TestTodoServiceUpdateAndClearDescription(t *testing.T) {
	svc, now := newTestTodoService(t, nil)
	ctx := context.Background()
	desc := "initial"
	created, err := svc.Create(ctx, CreateTodoCommand{Title: "a", Description: &desc})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	*now = now.Add(time.Minute)
	done := true
	blank := "   "
	updated, err := svc.Update(ctx, created.ID, domain.TodoPatch{Completed: &done, Description: &blank})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Completed || updated.Description != nil {
		t.Fatalf("expected completed with cleared description, got %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}

	if _, err := svc.Update(ctx, "missing", domain.TodoPatch{Completed: &done}); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}

func TestTodoServiceListFiltersAndPaginates(t *testing.T) {
	svc, now := newTestTodoService(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		*now = now.Add(time.Hour)
		if _, err := svc.Create(ctx, CreateTodoCommand{Title: fmt.Sprintf("Task %d", i), Completed: i%2 == 0}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := svc.List(ctx, TodoListCommand{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Title != "Task 4" {
		t.Fatalf("expected newest first, got %q", page.Items[0].Title)
	}

	active, err := svc.List(ctx, TodoListCommand{Filter: domain.TodoFilter{Status: domain.TodoStatusActive}})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if active.Total != 2 {
		t.Fatalf("expected two active todos, got %d", active.Total)
	}

	// Full-width digits normalise to ASCII before matching.
	found, err := svc.List(ctx, TodoListCommand{Filter: domain.TodoFilter{Query: "ｔａｓｋ　３"}})
	if err != nil {
		t.Fatalf("List query: %v", err)
	}
	if found.Total != 1 || found.Items[0].Title != "Task 3" {
		t.Fatalf("expected NFKC-normalised match, got %+v", found.Items)
	}

	if _, err := svc.List(ctx, TodoListCommand{Filter: domain.TodoFilter{Status: "archived"}}); !errors.Is(err, ErrTodoInvalidInput) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestTodoServiceReseed(t *testing.T) {
	svc, _ := newTestTodoService(t, nil)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateTodoCommand{Title: "old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created, err := svc.Reseed(ctx, SampleTodos())
	if err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("expected 5 seeded todos, got %d", len(created))
	}
	page, _ := svc.List(ctx, TodoListCommand{PageSize: 100})
	if page.Total != 5 {
		t.Fatalf("expected only seeded todos to remain, got %d", page.Total)
	}
}

func TestTodoServiceDeletePublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestTodoService(t, pub)
	ctx := context.Background()
	todo, _ := svc.Create(ctx, CreateTodoCommand{Title: "bye"})
	deleted, err := svc.Delete(ctx, todo.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != todo.ID {
		t.Fatalf("expected deleted todo returned")
	}
	if last := pub.events[len(pub.events)-1]; last.Type != TodoDeleted {
		t.Fatalf("expected delete event, got %s", last.Type)
	}
	if _, err := svc.Get(ctx, todo.ID); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
