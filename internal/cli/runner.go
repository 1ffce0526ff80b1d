package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idilsaglam/checklist/internal/auth"
	"github.com/idilsaglam/checklist/internal/model"
	"github.com/idilsaglam/checklist/internal/store/gqlstore"
	"github.com/idilsaglam/checklist/internal/ui"
)

// Store is the todo backend the subcommands drive.
type Store interface {
	Fetch(ctx context.Context) ([]model.Todo, error)
	Add(ctx context.Context, text string) (model.Todo, error)
	Toggle(ctx context.Context, id uuid.UUID, currentDone bool) (model.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Cached() ([]model.Todo, bool)
}

// Options tune output behavior from root flags.
type Options struct {
	Group bool // print grouped by pending/done
	Yes   bool // rm without asking
}

// Env connects the runner to the process.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Tokens *auth.Store
	// Connect builds the store on first use; auth subcommands never call it.
	Connect func() (Store, error)
	// Interactive runs the TUI until the user quits.
	Interactive func(ctx context.Context, s Store) error
}

type runner struct {
	ctx context.Context
	opt Options
	env Env
	in  *bufio.Reader
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options, env Env) int {
	if len(args) == 0 {
		PrintHelp(env.Stdout)
		return 2
	}
	if env.Stdin == nil {
		env.Stdin = strings.NewReader("")
	}
	r := &runner{ctx: ctx, opt: opt, env: env, in: bufio.NewReader(env.Stdin)}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(env.Stdout)
		return 0

	case "ls":
		return r.doList()

	case "print":
		for _, f := range a {
			switch f {
			case "-g", "--group", "-group":
				r.opt.Group = true
			default:
				r.fail("usage: todo print [--group]")
				return 2
			}
		}
		return r.doPrint()

	case "add":
		if len(a) == 0 {
			r.fail("usage: todo add <text...>")
			return 2
		}
		return r.doAdd(strings.Join(a, " "))

	case "done":
		n, code := r.indexArg("done", a)
		if code != 0 {
			return code
		}
		return r.doToggle(n)

	case "rm":
		var rest []string
		for _, x := range a {
			if x == "-y" || x == "--yes" {
				r.opt.Yes = true
				continue
			}
			rest = append(rest, x)
		}
		n, code := r.indexArg("rm", rest)
		if code != 0 {
			return code
		}
		return r.doRemove(n)

	case "auth":
		if len(a) == 0 {
			r.fail("usage: todo auth <login|logout|status|whoami>")
			return 2
		}
		switch a[0] {
		case "login":
			return r.doAuthLogin()
		case "logout":
			return r.doAuthLogout()
		case "status":
			return r.doAuthStatus()
		case "whoami":
			return r.doAuthWhoAmI()
		default:
			r.fail("usage: todo auth <login|logout|status|whoami>")
			return 2
		}
	}

	r.fail("unknown subcommand: " + cmd)
	fmt.Fprintln(env.Stderr)
	PrintHelp(env.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a GraphQL checklist

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls                 Interactive list (a add, space toggle, d delete, r reload, q quit)
  print [--group]    Print the list with 1-based indexes
  add <text...>      Add a new todo (text can be multiple words)
  done <index>       Toggle done for the todo at 1-based index
  rm [-y] <index>    Delete the todo at 1-based index after confirmation
  auth <login|logout|status|whoami>   Bearer token management

Flags:
  -group             Group print output by pending/done
  -y                 Delete without asking
  -config <path>     Config file (default ~/.tada/config.yaml)
  -endpoint <url>    GraphQL endpoint
  -theme <name>      classic | neon | mono
  -log-level <lvl>   debug | info | warn | error

Environment:
  TADA_ENDPOINT TADA_TOKEN TADA_ADMIN_SECRET TADA_ROLE TADA_THEME
  TADA_LOG_FILE TADA_LOG_LEVEL TADA_RETRY_MAX TADA_TIMEOUT (.env is read too)

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
  todo rm 3
`)
}

func (r *runner) ok(msg string)   { ui.OK(r.env.Stdout, msg) }
func (r *runner) fail(msg string) { ui.Fail(r.env.Stderr, msg) }

func (r *runner) hint(msg string) {
	fmt.Fprintln(r.env.Stderr, ui.Current().Muted.Render(msg))
}

func (r *runner) indexArg(cmd string, a []string) (int, int) {
	if len(a) != 1 {
		r.fail(fmt.Sprintf("usage: todo %s <index>", cmd))
		return 0, 2
	}
	n, err := strconv.Atoi(a[0])
	if err != nil {
		r.fail(cmd + ": not a number: " + a[0])
		return 0, 2
	}
	return n, 0
}

func (r *runner) connect() (Store, bool) {
	s, err := r.env.Connect()
	if err != nil {
		r.fail("connect: " + err.Error())
		return nil, false
	}
	return s, true
}

// pick fetches the list and resolves a 1-based index.
func (r *runner) pick(s Store, userIndex int) (model.Todo, int) {
	todos, err := s.Fetch(r.ctx)
	if err != nil {
		r.fail("load: " + err.Error())
		return model.Todo{}, 1
	}
	if userIndex < 1 || userIndex > len(todos) {
		r.fail(fmt.Sprintf("index out of range: have %d, got %d", len(todos), userIndex))
		r.hint("Hint: run `todo print` to see valid indexes")
		return model.Todo{}, 2
	}
	return todos[userIndex-1], 0
}

// -------------- subcommand impls ----------------

func (r *runner) doList() int {
	s, ok := r.connect()
	if !ok {
		return 1
	}
	if err := r.env.Interactive(r.ctx, s); err != nil {
		r.fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func (r *runner) doPrint() int {
	s, ok := r.connect()
	if !ok {
		return 1
	}
	todos, err := s.Fetch(r.ctx)
	if err != nil {
		r.fail("💩 Error fetching todos! " + err.Error())
		return 1
	}

	th := ui.Current()
	d, p := model.Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		th.Title.Render("Todos"),
		th.Success.Render(th.SymDone), d,
		th.Pending.Render(th.SymPending), p,
		th.Accent.Render("Total"), len(todos),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, th.Muted.Render(ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if r.opt.Group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos, 1)...)
	}
	lines = append(lines, "")
	lines = append(lines, th.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(r.env.Stdout, lines)
	return 0
}

func (r *runner) doAdd(text string) int {
	s, ok := r.connect()
	if !ok {
		return 1
	}
	t, err := s.Add(r.ctx, text)
	if errors.Is(err, gqlstore.ErrEmptyText) {
		r.fail("add: empty text")
		return 2
	}
	if err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok("added: " + t.Text)
	return 0
}

func (r *runner) doToggle(userIndex int) int {
	s, ok := r.connect()
	if !ok {
		return 1
	}
	t, code := r.pick(s, userIndex)
	if code != 0 {
		return code
	}
	updated, err := s.Toggle(r.ctx, t.ID, t.Done)
	if err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok(fmt.Sprintf("toggled: %s %s", ui.Current().Box(updated.Done), updated.Text))
	return 0
}

func (r *runner) doRemove(userIndex int) int {
	s, ok := r.connect()
	if !ok {
		return 1
	}
	t, code := r.pick(s, userIndex)
	if code != 0 {
		return code
	}
	if !r.opt.Yes && !r.confirm(fmt.Sprintf("Do you want to delete this todo? %q [y/N] ", t.Text)) {
		fmt.Fprintln(r.env.Stdout, ui.Current().Muted.Render("cancelled"))
		return 0
	}
	if err := s.Delete(r.ctx, t.ID); err != nil {
		r.fail(err.Error())
		return 1
	}
	r.ok("removed: " + t.Text)
	return 0
}

// confirm blocks on stdin; only y/yes counts as consent.
func (r *runner) confirm(prompt string) bool {
	fmt.Fprint(r.env.Stdout, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(r.env.Stdout)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// ---------------------------------------------------
// Auth subcommands
// ---------------------------------------------------

func (r *runner) doAuthLogin() int {
	fmt.Fprint(r.env.Stdout, "Paste your token: ")
	line, err := r.in.ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		r.fail("read token: " + err.Error())
		return 1
	}
	ti, err := r.env.Tokens.Set(line)
	if err != nil {
		r.fail("save token: " + err.Error())
		return 1
	}
	fmt.Fprintln(r.env.Stdout)
	if ti.ExpiresAt != nil {
		r.ok("logged in (expires " + ti.ExpiresAt.Format(time.RFC3339) + ")")
		return 0
	}
	r.ok("logged in")
	return 0
}

func (r *runner) doAuthLogout() int {
	ti, _ := r.env.Tokens.Get()
	if ti != nil && ti.Source == "env" {
		r.ok("token is provided by " + auth.EnvToken + " env var (nothing to delete)")
		return 0
	}
	if err := r.env.Tokens.Delete(); err != nil {
		r.fail("logout: " + err.Error())
		return 1
	}
	r.ok("logged out")
	return 0
}

func (r *runner) doAuthStatus() int {
	out := r.env.Stdout
	ti, err := r.env.Tokens.Get()
	if err != nil {
		r.fail(err.Error())
		return 1
	}
	if ti == nil {
		fmt.Fprintln(out, ui.Current().Muted.Render("not logged in"))
		fmt.Fprintln(out, "Run: todo auth login")
		return 0
	}
	fmt.Fprintf(out, "source: %s\n", ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		fmt.Fprintln(out, "expires: (unknown)")
	case ti.Expired(time.Now()):
		fmt.Fprintf(out, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339), ui.Current().Error.Render("(expired)"))
	default:
		fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(out, "env override: "+auth.EnvToken)
	return 0
}

// whoami decodes a JWT locally (unverified); opaque tokens print basic info.
func (r *runner) doAuthWhoAmI() int {
	ti, _ := r.env.Tokens.Get()
	if ti == nil {
		r.fail("not logged in. Run: todo auth login")
		return 2
	}
	out := r.env.Stdout
	claims, err := auth.Claims(ti.Token)
	if err != nil {
		fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
		fmt.Fprintln(out, "source:", ti.Source)
		return 0
	}
	b, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		r.fail("claims: " + err.Error())
		return 1
	}
	fmt.Fprintln(out, "JWT payload:")
	fmt.Fprintln(out, string(b))
	return 0
}

// -------------- rendering helpers --------------

func flatLines(todos []model.Todo, first int) []string {
	th := ui.Current()
	if len(todos) == 0 {
		return []string{th.Muted.Render("no todos")}
	}
	out := make([]string, 0, len(todos))
	for i, t := range todos {
		idx := fmt.Sprintf("%2d.", first+i)
		box := th.Muted.Render(th.BoxUnchecked)
		text := t.Text
		if len([]rune(text)) > 80 {
			text = string([]rune(text)[:77]) + "..."
		}
		if t.Done {
			box = th.Success.Render(th.BoxChecked)
			text = th.Done.Render(text)
		}
		out = append(out, fmt.Sprintf("%s %s %s", th.Muted.Render(idx), box, text))
	}
	return out
}

// groupLines keeps the fetch-order index so it still works with done/rm.
func groupLines(todos []model.Todo) []string {
	th := ui.Current()
	var pend, done []string
	for i, t := range todos {
		line := flatLines([]model.Todo{t}, i+1)[0]
		if t.Done {
			done = append(done, line)
		} else {
			pend = append(pend, line)
		}
	}
	var lines []string
	lines = append(lines, th.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, th.Muted.Render("(none)"))
	} else {
		lines = append(lines, pend...)
	}
	lines = append(lines, "")
	lines = append(lines, th.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, th.Muted.Render("(none)"))
	} else {
		lines = append(lines, done...)
	}
	return lines
}
