package tui

import (
	"strings"

	"github.com/idilsaglam/checklist/internal/ui"
)

const (
	appTitle     = "GraphQL Checklist ✅"
	loadingText  = "Loading..."
	loadFailText = "💩 Error fetching todos!"
)

func (m Model) View() string {
	th := ui.Current()
	var b strings.Builder
	b.WriteString(th.Title.Render(appTitle))
	b.WriteString("\n\n")

	switch m.state {
	case stateLoading:
		b.WriteString(loadingText)
	case stateFailed:
		b.WriteString(th.Error.Render(loadFailText))
		if m.err != nil {
			b.WriteString("\n" + th.Muted.Render(m.err.Error()))
		}
		b.WriteString("\n\n" + th.Help.Render("r reload • q quit"))
	default:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.input.Focused() {
			b.WriteString(th.Help.Render("enter create • esc back to list"))
		} else {
			b.WriteString(th.Help.Render("a write a new todo"))
		}
		b.WriteString("\n\n")
		b.WriteString(m.list.View())
		if m.confirming != nil {
			b.WriteString("\n" + th.Error.Render(confirmPrompt) + " (y/N) " + m.confirming.Text)
		} else if m.status != "" {
			b.WriteString("\n" + th.Muted.Render(m.status))
		}
	}
	return ui.PanelString(b.String())
}
