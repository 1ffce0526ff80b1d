// Package graphqltest provides an in-memory todos backend speaking the same
// GraphQL dialect as the real endpoint.
package graphqltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/idilsaglam/checklist/internal/graphql"
	"github.com/idilsaglam/checklist/internal/model"
)

type failure struct {
	status  int
	message string
}

// Server is a fake backend. Every document is validated against the schema
// before it is dispatched by operation name.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	todos    []model.Todo
	requests []graphql.Request
	headers  []http.Header
	failures map[string]failure
}

// NewServer starts a backend seeded with todos and closes it on test cleanup.
func NewServer(t testing.TB, seed ...model.Todo) *Server {
	t.Helper()
	s := &Server{
		todos:    append([]model.Todo(nil), seed...),
		failures: map[string]failure{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the URL to pass to graphql.NewClient.
func (s *Server) Endpoint() string { return s.URL + "/v1/graphql" }

// FailHTTP makes every request for op answer with status.
func (s *Server) FailHTTP(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status}
}

// FailGraphQL makes every request for op answer with a GraphQL error.
func (s *Server) FailGraphQL(op, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{message: message}
}

// Recover clears the failure configured for op.
func (s *Server) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// Todos returns a copy of the table.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []graphql.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]graphql.Request(nil), s.requests...)
}

// RequestsFor returns the requests received for op.
func (s *Server) RequestsFor(op string) []graphql.Request {
	var out []graphql.Request
	for _, r := range s.Requests() {
		if r.OperationName == op {
			out = append(out, r)
		}
	}
	return out
}

// LastHeader returns the headers of the most recent request.
func (s *Server) LastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req graphql.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.headers = append(s.headers, r.Header.Clone())

	if f, ok := s.failures[req.OperationName]; ok {
		if f.status != 0 {
			http.Error(w, http.StatusText(f.status), f.status)
			return
		}
		writeErrors(w, f.message, "unexpected")
		return
	}
	if _, err := graphql.Validate(req.Query); err != nil {
		writeErrors(w, err.Error(), "validation-failed")
		return
	}

	op, ok := graphql.Lookup(req.OperationName)
	if !ok {
		writeErrors(w, (&unknownOperation{req.OperationName}).Error(), "validation-failed")
		return
	}
	data, err := s.dispatch(op, req)
	if err != nil {
		writeErrors(w, err.Error(), "data-exception")
		return
	}
	writeJSON(w, graphql.Response{Data: data})
}

type returning struct {
	Returning []model.Todo `json:"returning"`
}

func (s *Server) dispatch(op graphql.Operation, req graphql.Request) (json.RawMessage, error) {
	switch op.Name {
	case graphql.GetTodos.Name:
		todos := s.todos
		if todos == nil {
			todos = []model.Todo{}
		}
		return json.Marshal(map[string]any{"todos": todos})

	case graphql.AddTodos.Name:
		text, _ := req.Variables["text"].(string)
		t := model.Todo{ID: uuid.New(), Text: text}
		s.todos = append(s.todos, t)
		return json.Marshal(map[string]any{"insert_todos": returning{[]model.Todo{t}}})

	case graphql.ToggleTodo.Name:
		id, err := idVar(req)
		if err != nil {
			return nil, err
		}
		done, _ := req.Variables["done"].(bool)
		out := []model.Todo{}
		for i := range s.todos {
			if s.todos[i].ID == id {
				s.todos[i].Done = done
				out = append(out, s.todos[i])
			}
		}
		return json.Marshal(map[string]any{"update_todos": returning{out}})

	case graphql.DeleteTodo.Name:
		id, err := idVar(req)
		if err != nil {
			return nil, err
		}
		out := []model.Todo{}
		kept := s.todos[:0]
		for _, t := range s.todos {
			if t.ID == id {
				out = append(out, model.Todo{ID: t.ID})
				continue
			}
			kept = append(kept, t)
		}
		s.todos = kept
		return json.Marshal(map[string]any{"delete_todos": returning{out}})
	}
	return nil, &unknownOperation{op.Name}
}

type unknownOperation struct{ name string }

func (e *unknownOperation) Error() string { return "unknown operation " + e.name }

func idVar(req graphql.Request) (uuid.UUID, error) {
	raw, _ := req.Variables["id"].(string)
	return uuid.Parse(raw)
}

func writeErrors(w http.ResponseWriter, message, code string) {
	writeJSON(w, graphql.Response{Errors: graphql.Errors{{
		Message:    message,
		Extensions: map[string]any{"code": code},
	}}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
