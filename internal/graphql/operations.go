// Package graphql talks to a Hasura-style GraphQL endpoint exposing CRUD
// resolvers over the todos table.
package graphql

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphql
var schemaSDL string

var loadSchema = sync.OnceValues(func() (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})
	if err != nil {
		return nil, err
	}
	return schema, nil
})

// Validate parses doc and checks it against the embedded backend schema.
func Validate(doc string) (*ast.QueryDocument, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	qd, errs := gqlparser.LoadQuery(schema, doc)
	if len(errs) > 0 {
		return nil, errs
	}
	return qd, nil
}

// Operation is a validated, named GraphQL document.
type Operation struct {
	Name     string
	Kind     ast.Operation
	Document string
}

const getTodosDoc = `
query GetTodos {
  todos {
    id
    done
    text
  }
}`

const toggleTodoDoc = `
mutation toggleTodo($id: uuid!, $done: Boolean!) {
  update_todos(where: {id: {_eq: $id}}, _set: {done: $done}) {
    returning {
      done
      id
      text
    }
  }
}`

const deleteTodoDoc = `
mutation deleteTodo($id: uuid!) {
  delete_todos(where: {id: {_eq: $id}}) {
    returning {
      id
    }
  }
}`

const addTodosDoc = `
mutation addTodos($text: String!) {
  insert_todos(objects: [{text: $text}]) {
    returning {
      done
      id
      text
    }
  }
}`

var registry = map[string]Operation{}

var (
	GetTodos   = mustRegister(getTodosDoc)
	ToggleTodo = mustRegister(toggleTodoDoc)
	DeleteTodo = mustRegister(deleteTodoDoc)
	AddTodos   = mustRegister(addTodosDoc)
)

// Lookup returns the registered operation with the given name.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

func mustRegister(doc string) Operation {
	qd, err := Validate(doc)
	if err != nil {
		panic(fmt.Sprintf("graphql: invalid document: %v", err))
	}
	if len(qd.Operations) != 1 {
		panic(fmt.Sprintf("graphql: want exactly one operation, got %d", len(qd.Operations)))
	}
	def := qd.Operations[0]
	op := Operation{Name: def.Name, Kind: def.Operation, Document: doc}
	registry[op.Name] = op
	return op
}
