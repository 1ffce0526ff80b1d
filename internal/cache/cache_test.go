package cache

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/checklist/internal/model"
)

func todos(texts ...string) []model.Todo {
	out := make([]model.Todo, 0, len(texts))
	for _, s := range texts {
		out = append(out, model.Todo{ID: uuid.New(), Text: s})
	}
	return out
}

func TestReadQueryMiss(t *testing.T) {
	c := New()
	got, ok := c.ReadQuery("GetTodos")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWriteThenReadKeepsOrder(t *testing.T) {
	c := New()
	in := todos("a", "b", "c")
	c.WriteQuery("GetTodos", in)

	got, ok := c.ReadQuery("GetTodos")
	require.True(t, ok)
	assert.Equal(t, in, got)
}

func TestWriteEmptyResultIsAHit(t *testing.T) {
	c := New()
	c.WriteQuery("GetTodos", nil)
	got, ok := c.ReadQuery("GetTodos")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestMergeUpdatesQueryResults(t *testing.T) {
	c := New()
	in := todos("a", "b")
	c.WriteQuery("GetTodos", in)
	c.WriteQuery("Other", in[1:])

	updated := in[1]
	updated.Done = true
	c.Merge(updated)

	got, _ := c.ReadQuery("GetTodos")
	assert.True(t, got[1].Done)
	other, _ := c.ReadQuery("Other")
	assert.True(t, other[0].Done)
}

func TestMergeUnknownRowDoesNotJoinResults(t *testing.T) {
	c := New()
	c.WriteQuery("GetTodos", todos("a"))
	extra := model.Todo{ID: uuid.New(), Text: "new"}
	c.Merge(extra)

	got, _ := c.ReadQuery("GetTodos")
	assert.Len(t, got, 1)
	assert.Equal(t, extra, c.entities[extra.ID])
}

func TestUpdateQuery(t *testing.T) {
	c := New()
	assert.False(t, c.UpdateQuery("GetTodos", func(in []model.Todo) []model.Todo {
		t.Fatal("fn must not run on a miss")
		return in
	}))

	in := todos("a", "b")
	c.WriteQuery("GetTodos", in)
	extra := todos("c")[0]
	require.True(t, c.UpdateQuery("GetTodos", func(cur []model.Todo) []model.Todo {
		assert.Equal(t, in, cur)
		return append(cur, extra)
	}))

	got, _ := c.ReadQuery("GetTodos")
	assert.Equal(t, append(in, extra), got)
}

func TestRemove(t *testing.T) {
	c := New()
	in := todos("a", "b")
	c.WriteQuery("GetTodos", in)
	c.WriteQuery("Other", in[:1])
	c.Remove(in[0].ID)

	got, ok := c.ReadQuery("GetTodos")
	require.True(t, ok)
	assert.Equal(t, in[1:], got)
	other, ok := c.ReadQuery("Other")
	require.True(t, ok)
	assert.Empty(t, other)
	assert.NotContains(t, c.entities, in[0].ID)

	// a later write of the same row must not resurrect a stale ref
	c.Merge(in[0])
	got, _ = c.ReadQuery("GetTodos")
	assert.Equal(t, in[1:], got)
}

func TestConcurrentUpdateQueryLosesNothing(t *testing.T) {
	c := New()
	c.WriteQuery("GetTodos", nil)
	rows := todos("a", "b", "c", "d", "e", "f", "g", "h")

	var wg sync.WaitGroup
	for _, row := range rows {
		wg.Add(1)
		go func(row model.Todo) {
			defer wg.Done()
			c.UpdateQuery("GetTodos", func(cur []model.Todo) []model.Todo {
				return append(cur, row)
			})
		}(row)
	}
	wg.Wait()

	got, _ := c.ReadQuery("GetTodos")
	assert.ElementsMatch(t, rows, got)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	in := todos("a", "b", "c", "d")
	c.WriteQuery("GetTodos", in)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				row := in[(i+j)%len(in)]
				row.Done = j%2 == 0
				c.Merge(row)
				c.ReadQuery("GetTodos")
			}
		}(i)
	}
	wg.Wait()

	got, _ := c.ReadQuery("GetTodos")
	assert.Len(t, got, len(in))
}
