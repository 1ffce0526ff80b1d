package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/checklist/internal/model"
	"github.com/idilsaglam/checklist/internal/ui"
)

// Store is what the view needs from the todo backend.
type Store interface {
	Fetch(ctx context.Context) ([]model.Todo, error)
	Add(ctx context.Context, text string) (model.Todo, error)
	Toggle(ctx context.Context, id uuid.UUID, currentDone bool) (model.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Cached() ([]model.Todo, bool)
}

type viewState int

const (
	stateLoading viewState = iota
	stateFailed
	stateReady
)

const confirmPrompt = "Do you want to delete this todo?"

// listItem adapts model.Todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) FilterValue() string { return i.todo.Text }

// Messages produced by commands.
type (
	todosLoadedMsg struct{ todos []model.Todo }
	loadFailedMsg  struct{ err error }
	todoAddedMsg   struct{ todo model.Todo }
	todoToggledMsg struct{ todo model.Todo }
	todoDeletedMsg struct{ id uuid.UUID }
)

// mutationFailedMsg carries a rejected add, toggle or delete.
type mutationFailedMsg struct {
	op  string
	err error
}

// Model is the todo list view.
type Model struct {
	ctx   context.Context
	store Store
	log   logrus.FieldLogger

	state viewState
	err   error

	list  list.Model
	input textinput.Model // draft text of the add form

	// delete confirmation; while set, every key answers it
	confirming *model.Todo

	status string
	keys   keyMap
	width  int
	height int
}

type keyMap struct {
	Add, Toggle, Delete, Reload, Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:    key.NewBinding(key.WithKeys("a", "tab"), key.WithHelp("a", "add")),
		Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Delete: key.NewBinding(key.WithKeys("d", "x", "delete"), key.WithHelp("d", "delete")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// itemDelegate renders one todo per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	th := ui.Current()
	box := th.Muted.Render(th.BoxUnchecked)
	text := it.todo.Text
	if it.todo.Done {
		box = th.Success.Render(th.BoxChecked)
		text = th.Done.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = th.Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

// New builds the view. Nothing is fetched until Init runs.
func New(ctx context.Context, store Store, log logrus.FieldLogger) Model {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	th := ui.Current()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = th.Title
	l.Styles.HelpStyle = th.Help
	l.Styles.PaginationStyle = th.Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	keys := newKeyMap()
	extra := func() []key.Binding { return []key.Binding{keys.Add, keys.Toggle, keys.Delete, keys.Reload} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Write your todo"
	ti.CharLimit = 500

	m := Model{
		ctx:   ctx,
		store: store,
		log:   log,
		state: stateLoading,
		list:  l,
		input: ti,
		keys:  keys,
	}
	m.resize(80, 24)
	return m
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctx context.Context, store Store, log logrus.FieldLogger) error {
	p := tea.NewProgram(New(ctx, store, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd { return m.fetch() }

// ---- commands ----

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		todos, err := m.store.Fetch(m.ctx)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return todosLoadedMsg{todos: todos}
	}
}

func (m Model) add(text string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.store.Add(m.ctx, text)
		if err != nil {
			return mutationFailedMsg{op: "add", err: err}
		}
		return todoAddedMsg{todo: t}
	}
}

func (m Model) toggle(t model.Todo) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.Toggle(m.ctx, t.ID, t.Done)
		if err != nil {
			return mutationFailedMsg{op: "toggle", err: err}
		}
		return todoToggledMsg{todo: updated}
	}
}

func (m Model) delete(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Delete(m.ctx, id); err != nil {
			return mutationFailedMsg{op: "delete", err: err}
		}
		return todoDeletedMsg{id: id}
	}
}

// ---- update ----

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case todosLoadedMsg:
		m.state = stateReady
		m.err = nil
		cmd := m.setItems(msg.todos)
		return m, cmd

	case loadFailedMsg:
		m.state = stateFailed
		m.err = msg.err
		cmd := m.list.SetItems(nil)
		return m, cmd

	case todoAddedMsg:
		m.input.SetValue("")
		m.status = "added"
		cmd := m.refresh()
		return m, cmd

	case todoToggledMsg:
		m.status = "toggled"
		cmd := m.refresh()
		return m, cmd

	case todoDeletedMsg:
		m.status = "deleted"
		cmd := m.refresh()
		return m, cmd

	case mutationFailedMsg:
		m.log.WithField("op", msg.op).WithError(msg.err).Warn("mutation failed")
		m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.confirming != nil {
		t := *m.confirming
		m.confirming = nil
		if s := msg.String(); s == "y" || s == "Y" {
			m.status = "deleting…"
			return m, m.delete(t.ID)
		}
		m.status = "delete cancelled"
		return m, nil
	}

	if m.state != stateReady {
		switch {
		case key.Matches(msg, m.keys.Quit), msg.Type == tea.KeyEsc:
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reload) && m.state == stateFailed:
			m.state = stateLoading
			return m, m.fetch()
		}
		return m, nil
	}

	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.status = "adding…"
			return m, m.add(text)
		case tea.KeyEsc, tea.KeyTab:
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.list.FilterState() == list.Filtering {
		return m.forward(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit), msg.Type == tea.KeyEsc && m.list.FilterState() == list.Unfiltered:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.toggle(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			m.confirming = &t
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.state = stateLoading
		return m, m.fetch()
	}
	return m.forward(msg)
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

// refresh re-renders the list from the cache after a mutation.
func (m *Model) refresh() tea.Cmd {
	todos, ok := m.store.Cached()
	if !ok || m.state != stateReady {
		return nil
	}
	return m.setItems(todos)
}

func (m *Model) setItems(todos []model.Todo) tea.Cmd {
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, listItem{todo: t})
	}
	m.list.Title = header(todos)
	return m.list.SetItems(items)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	// border + form + status lines
	m.list.SetSize(max(w-4, 20), max(h-8, 5))
	m.input.Width = max(w-8, 10)
}

func header(todos []model.Todo) string {
	th := ui.Current()
	dn, pn := model.Stats(todos)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		"Todos",
		th.Success.Render(th.SymDone), dn,
		th.Pending.Render(th.SymPending), pn,
		th.Accent.Render("Total"), len(todos),
	)
}
