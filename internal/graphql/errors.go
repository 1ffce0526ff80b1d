package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("graphql: transport")
	// ErrDecode wraps malformed response bodies.
	ErrDecode = errors.New("graphql: decode")
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:197] + "..."
	}
	if body == "" {
		return fmt.Sprintf("graphql: http %d", e.StatusCode)
	}
	return fmt.Sprintf("graphql: http %d: %s", e.StatusCode, body)
}

// Error is a single entry of a response's "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string { return e.Message }

// Code returns extensions.code, which Hasura sets on every error.
func (e Error) Code() string {
	if c, ok := e.Extensions["code"].(string); ok {
		return c
	}
	return ""
}

// Errors is the "errors" array of a response.
type Errors []Error

func (errs Errors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}
