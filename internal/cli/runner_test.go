package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/checklist/internal/auth"
	"github.com/idilsaglam/checklist/internal/cache"
	"github.com/idilsaglam/checklist/internal/graphql"
	"github.com/idilsaglam/checklist/internal/graphql/graphqltest"
	"github.com/idilsaglam/checklist/internal/model"
	"github.com/idilsaglam/checklist/internal/store/gqlstore"
	"github.com/idilsaglam/checklist/internal/ui"
)

type harness struct {
	srv    *graphqltest.Server
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    Env

	interactiveCalls int
}

func newHarness(t *testing.T, stdin string, seed ...model.Todo) *harness {
	t.Helper()
	ui.SetTheme("mono")
	t.Cleanup(func() { ui.SetTheme("classic") })

	h := &harness{srv: graphqltest.NewServer(t, seed...)}
	h.env = Env{
		Stdin:  strings.NewReader(stdin),
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		Tokens: auth.NewStore(t.TempDir(), func(string) (string, bool) { return "", false }),
		Connect: func() (Store, error) {
			c, err := graphql.NewClient(h.srv.Endpoint())
			if err != nil {
				return nil, err
			}
			return gqlstore.New(c, cache.New(), nil), nil
		},
		Interactive: func(context.Context, Store) error {
			h.interactiveCalls++
			return nil
		},
	}
	return h
}

func (h *harness) run(args ...string) int {
	return Run(context.Background(), args, Options{}, h.env)
}

func seed() []model.Todo {
	return []model.Todo{
		{ID: uuid.New(), Text: "buy milk"},
		{ID: uuid.New(), Text: "walk dog", Done: true},
	}
}

func TestUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"no-args":      {},
		"unknown":      {"frobnicate"},
		"add-no-text":  {"add"},
		"done-no-idx":  {"done"},
		"done-not-num": {"done", "two"},
		"rm-extra":     {"rm", "1", "2"},
		"auth-no-verb": {"auth"},
		"auth-bad":     {"auth", "sudo"},
		"print-flag":   {"print", "--wide"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, "")
			assert.Equal(t, 2, h.run(args...))
			assert.Empty(t, h.srv.Requests())
		})
	}
}

func TestHelp(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 0, h.run("help"))
	assert.Contains(t, h.stdout.String(), "todo - a GraphQL checklist")
}

func TestList(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 0, h.run("ls"))
	assert.Equal(t, 1, h.interactiveCalls)

	h.env.Interactive = func(context.Context, Store) error { return errors.New("no tty") }
	assert.Equal(t, 1, h.run("ls"))
	assert.Contains(t, h.stderr.String(), "tui: no tty")
}

func TestPrint(t *testing.T) {
	h := newHarness(t, "", seed()...)
	require.Equal(t, 0, h.run("print"))

	out := h.stdout.String()
	assert.Contains(t, out, " 1. [ ] buy milk")
	assert.Contains(t, out, " 2. [x] walk dog")
	assert.Contains(t, out, "Total 2")
}

func TestPrintGrouped(t *testing.T) {
	h := newHarness(t, "", seed()...)
	require.Equal(t, 0, h.run("print", "--group"))

	out := h.stdout.String()
	pending := strings.Index(out, "Pending")
	done := strings.Index(out, "Done")
	require.True(t, pending >= 0 && done > pending)
	assert.Contains(t, out[done:], " 2. [x] walk dog")
}

func TestPrintFetchFailure(t *testing.T) {
	h := newHarness(t, "", seed()...)
	h.srv.FailHTTP("GetTodos", http.StatusBadGateway)
	assert.Equal(t, 1, h.run("print"))
	assert.Contains(t, h.stderr.String(), "Error fetching todos!")
	assert.NotContains(t, h.stdout.String(), "buy milk")
}

func TestPrintAfterBackendRecovers(t *testing.T) {
	h := newHarness(t, "", seed()...)
	h.srv.FailGraphQL("GetTodos", "database unavailable")
	require.Equal(t, 1, h.run("print"))
	assert.Contains(t, h.stderr.String(), "database unavailable")

	h.srv.Recover("GetTodos")
	require.Equal(t, 0, h.run("print"))
	assert.Contains(t, h.stdout.String(), " 1. [ ] buy milk")
	assert.Len(t, h.srv.RequestsFor("GetTodos"), 2)
}

func TestAdd(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.run("add", " buy", "bread "))

	reqs := h.srv.RequestsFor("addTodos")
	require.Len(t, reqs, 1)
	assert.Equal(t, "buy bread", reqs[0].Variables["text"])
	assert.Contains(t, h.stdout.String(), "added: buy bread")
}

func TestAddBlank(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 2, h.run("add", "  ", " "))
	assert.Empty(t, h.srv.Requests())
}

func TestDone(t *testing.T) {
	in := seed()
	h := newHarness(t, "", in...)
	require.Equal(t, 0, h.run("done", "2"))

	reqs := h.srv.RequestsFor("toggleTodo")
	require.Len(t, reqs, 1)
	assert.Equal(t, in[1].ID.String(), reqs[0].Variables["id"])
	assert.Equal(t, false, reqs[0].Variables["done"])
	assert.False(t, h.srv.Todos()[1].Done)
}

func TestDoneOutOfRange(t *testing.T) {
	h := newHarness(t, "", seed()...)
	assert.Equal(t, 2, h.run("done", "3"))
	assert.Contains(t, h.stderr.String(), "index out of range: have 2, got 3")
	assert.Empty(t, h.srv.RequestsFor("toggleTodo"))
}

func TestRemove(t *testing.T) {
	tests := map[string]struct {
		stdin       string
		args        []string
		wantDeleted bool
	}{
		"confirmed":     {stdin: "y\n", args: []string{"rm", "1"}, wantDeleted: true},
		"confirmed-yes": {stdin: "YES\n", args: []string{"rm", "1"}, wantDeleted: true},
		"declined":      {stdin: "n\n", args: []string{"rm", "1"}},
		"default-no":    {stdin: "\n", args: []string{"rm", "1"}},
		"eof":           {stdin: "", args: []string{"rm", "1"}},
		"skip-prompt":   {args: []string{"rm", "-y", "1"}, wantDeleted: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := seed()
			h := newHarness(t, tt.stdin, in...)
			require.Equal(t, 0, h.run(tt.args...))

			reqs := h.srv.RequestsFor("deleteTodo")
			if !tt.wantDeleted {
				assert.Empty(t, reqs)
				assert.Len(t, h.srv.Todos(), 2)
				return
			}
			require.Len(t, reqs, 1)
			assert.Equal(t, in[0].ID.String(), reqs[0].Variables["id"])
			assert.Equal(t, []model.Todo{in[1]}, h.srv.Todos())
			assert.Contains(t, h.stdout.String(), "removed: buy milk")
		})
	}
}

func TestConnectFailure(t *testing.T) {
	h := newHarness(t, "")
	h.env.Connect = func() (Store, error) { return nil, errors.New("bad endpoint") }
	assert.Equal(t, 1, h.run("print"))
	assert.Contains(t, h.stderr.String(), "connect: bad endpoint")
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t, "Bearer opaque-token\n")

	require.Equal(t, 0, h.run("auth", "status"))
	assert.Contains(t, h.stdout.String(), "not logged in")

	require.Equal(t, 0, h.run("auth", "login"))
	ti, err := h.env.Tokens.Get()
	require.NoError(t, err)
	require.NotNil(t, ti)
	assert.Equal(t, "opaque-token", ti.Token)

	h.stdout.Reset()
	require.Equal(t, 0, h.run("auth", "status"))
	assert.Contains(t, h.stdout.String(), "source: file")
	assert.Contains(t, h.stdout.String(), "expires: (unknown)")

	h.stdout.Reset()
	require.Equal(t, 0, h.run("auth", "whoami"))
	assert.Contains(t, h.stdout.String(), "Opaque token")

	require.Equal(t, 0, h.run("auth", "logout"))
	ti, err = h.env.Tokens.Get()
	require.NoError(t, err)
	assert.Nil(t, ti)
	assert.Equal(t, 2, h.run("auth", "whoami"))
}

func TestAuthWhoAmIJWT(t *testing.T) {
	// header {"alg":"none"} payload {"sub":"user-1"}
	const token = "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1c2VyLTEifQ."
	h := newHarness(t, token+"\n")
	require.Equal(t, 0, h.run("auth", "login"))

	h.stdout.Reset()
	require.Equal(t, 0, h.run("auth", "whoami"))
	assert.Contains(t, h.stdout.String(), "JWT payload:")
	assert.Contains(t, h.stdout.String(), `"sub": "user-1"`)
}

func TestAuthLoginSchemeOnly(t *testing.T) {
	h := newHarness(t, "Bearer \n")
	assert.Equal(t, 1, h.run("auth", "login"))
	assert.Contains(t, h.stderr.String(), "empty token")

	ti, err := h.env.Tokens.Get()
	require.NoError(t, err)
	assert.Nil(t, ti)
}
