package gqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/checklist/internal/cache"
	"github.com/idilsaglam/checklist/internal/graphql"
	"github.com/idilsaglam/checklist/internal/model"
)

// GraphQL-backed todo storage. The server owns the data; the cache only
// mirrors the last GetTodos result plus whatever mutations returned.

// ErrEmptyText is returned by Add when the trimmed text is empty.
var ErrEmptyText = errors.New("todo text is empty")

// Executor runs a GraphQL operation. *graphql.Client implements it.
type Executor interface {
	Execute(ctx context.Context, op graphql.Operation, vars map[string]any, out any) error
}

type Store struct {
	exec  Executor
	cache *cache.Cache
	log   logrus.FieldLogger
}

func New(exec Executor, c *cache.Cache, log logrus.FieldLogger) *Store {
	if c == nil {
		c = cache.New()
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Store{exec: exec, cache: c, log: log}
}

type mutationResult struct {
	Returning []model.Todo `json:"returning"`
}

// Fetch runs GetTodos and replaces the cached result. On error the cache is left alone.
func (s *Store) Fetch(ctx context.Context) ([]model.Todo, error) {
	var out struct {
		Todos []model.Todo `json:"todos"`
	}
	if err := s.exec.Execute(ctx, graphql.GetTodos, nil, &out); err != nil {
		s.log.WithField("op", graphql.GetTodos.Name).WithError(err).Error("fetch todos")
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	s.cache.WriteQuery(graphql.GetTodos.Name, out.Todos)
	s.log.WithField("op", graphql.GetTodos.Name).WithField("count", len(out.Todos)).Info("fetched todos")
	todos, _ := s.cache.ReadQuery(graphql.GetTodos.Name)
	return todos, nil
}

// Cached returns the last known GetTodos result.
func (s *Store) Cached() ([]model.Todo, bool) {
	return s.cache.ReadQuery(graphql.GetTodos.Name)
}

// Add inserts a todo with the trimmed text and returns the created row.
// Unlike a bare Apollo client, which leaves GetTodos stale until the next
// refetch, the row is appended to the cached list when one exists.
func (s *Store) Add(ctx context.Context, text string) (model.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Todo{}, ErrEmptyText
	}
	log := s.log.WithField("op", graphql.AddTodos.Name)

	var out struct {
		InsertTodos *mutationResult `json:"insert_todos"`
	}
	if err := s.exec.Execute(ctx, graphql.AddTodos, map[string]any{"text": text}, &out); err != nil {
		log.WithError(err).Error("add todo")
		return model.Todo{}, fmt.Errorf("add todo: %w", err)
	}
	if out.InsertTodos == nil || len(out.InsertTodos.Returning) == 0 {
		log.Error("add todo: no row returned")
		return model.Todo{}, errors.New("add todo: no row returned")
	}
	created := out.InsertTodos.Returning[0]
	s.cache.Merge(created)
	s.appendToList(created)
	log.WithField("id", created.ID).Info("added todo")
	return created, nil
}

// appendToList adds a freshly inserted row to the cached list, if one exists.
func (s *Store) appendToList(t model.Todo) {
	s.cache.UpdateQuery(graphql.GetTodos.Name, func(todos []model.Todo) []model.Todo {
		for _, existing := range todos {
			if existing.ID == t.ID {
				return todos
			}
		}
		return append(todos, t)
	})
}

// Toggle flips done for id. currentDone is the value the caller last saw.
func (s *Store) Toggle(ctx context.Context, id uuid.UUID, currentDone bool) (model.Todo, error) {
	log := s.log.WithFields(logrus.Fields{"op": graphql.ToggleTodo.Name, "id": id})

	var out struct {
		UpdateTodos *mutationResult `json:"update_todos"`
	}
	vars := map[string]any{"id": id, "done": !currentDone}
	if err := s.exec.Execute(ctx, graphql.ToggleTodo, vars, &out); err != nil {
		log.WithError(err).Error("toggle todo")
		return model.Todo{}, fmt.Errorf("toggle todo: %w", err)
	}
	if out.UpdateTodos == nil || len(out.UpdateTodos.Returning) == 0 {
		log.Warn("toggle todo: no row matched")
		return model.Todo{}, fmt.Errorf("toggle todo %s: no row matched", id)
	}
	s.cache.Merge(out.UpdateTodos.Returning...)
	updated := out.UpdateTodos.Returning[0]
	log.WithField("done", updated.Done).Info("toggled todo")
	return updated, nil
}

// Delete removes id on the server, then prunes it from the cached list.
// Deleted rows never come back in a mutation result, so the pruning is manual.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	log := s.log.WithFields(logrus.Fields{"op": graphql.DeleteTodo.Name, "id": id})

	var out struct {
		DeleteTodos *mutationResult `json:"delete_todos"`
	}
	if err := s.exec.Execute(ctx, graphql.DeleteTodo, map[string]any{"id": id}, &out); err != nil {
		log.WithError(err).Error("delete todo")
		return fmt.Errorf("delete todo: %w", err)
	}

	s.cache.Remove(id)

	n := 0
	if out.DeleteTodos != nil {
		n = len(out.DeleteTodos.Returning)
	}
	log.WithField("affected", n).Info("deleted todo")
	return nil
}
