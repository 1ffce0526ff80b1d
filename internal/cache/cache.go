// Package cache is a small normalized cache for todo query results.
//
// Rows are stored once, keyed by id. Query results hold only ids, so merging
// a row returned by a mutation updates every result that references it.
package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/idilsaglam/checklist/internal/model"
)

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]model.Todo
	queries  map[string][]uuid.UUID
}

func New() *Cache {
	return &Cache{
		entities: map[uuid.UUID]model.Todo{},
		queries:  map[string][]uuid.UUID{},
	}
}

// WriteQuery stores todos as the result of the named query.
func (c *Cache) WriteQuery(name string, todos []model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]uuid.UUID, 0, len(todos))
	for _, t := range todos {
		c.entities[t.ID] = t
		refs = append(refs, t.ID)
	}
	c.queries[name] = refs
}

// ReadQuery returns the cached result of the named query.
// Refs to missing rows are skipped.
func (c *Cache) ReadQuery(name string) ([]model.Todo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs, ok := c.queries[name]
	if !ok {
		return nil, false
	}
	out := make([]model.Todo, 0, len(refs))
	for _, id := range refs {
		if t, ok := c.entities[id]; ok {
			out = append(out, t)
		}
	}
	return out, true
}

// Merge updates rows in place by id without touching query results.
func (c *Cache) Merge(todos ...model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range todos {
		c.entities[t.ID] = t
	}
}

// UpdateQuery replaces the named result with fn applied to it, under a single
// lock. fn is not called and false is returned when the query was never written.
func (c *Cache) UpdateQuery(name string, fn func([]model.Todo) []model.Todo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs, ok := c.queries[name]
	if !ok {
		return false
	}
	cur := make([]model.Todo, 0, len(refs))
	for _, id := range refs {
		if t, ok := c.entities[id]; ok {
			cur = append(cur, t)
		}
	}
	next := fn(cur)
	refs = make([]uuid.UUID, 0, len(next))
	for _, t := range next {
		c.entities[t.ID] = t
		refs = append(refs, t.ID)
	}
	c.queries[name] = refs
	return true
}

// Remove drops a row together with every query ref to it.
func (c *Cache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entities, id)
	for name, refs := range c.queries {
		kept := refs[:0]
		for _, ref := range refs {
			if ref != id {
				kept = append(kept, ref)
			}
		}
		c.queries[name] = kept
	}
}
