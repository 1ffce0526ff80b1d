package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := map[string]struct {
		done, total, width int
		want               string
	}{
		"empty-list": {0, 0, 10, "░░░░░░░░░░   0%"},
		"half":       {1, 2, 10, "█████░░░░░  50%"},
		"full":       {3, 3, 5, "█████ 100%"},
		"min-width":  {1, 1, 1, "█████ 100%"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressBar(tt.done, tt.total, tt.width))
		})
	}
}

func TestPanelContainsLines(t *testing.T) {
	SetTheme("mono")
	t.Cleanup(func() { SetTheme("classic") })

	var buf bytes.Buffer
	Panel(&buf, []string{"Todos", "buy milk"})
	out := buf.String()
	assert.Contains(t, out, "Todos")
	assert.Contains(t, out, "buy milk")
	assert.True(t, strings.HasPrefix(out, "+"), "ascii border expected, got %q", out)
}

func TestOKFail(t *testing.T) {
	SetTheme("classic")
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "boom")
	assert.Contains(t, buf.String(), "✔ added")
	assert.Contains(t, buf.String(), "✖ boom")
}

func TestBox(t *testing.T) {
	SetTheme("unknown")
	assert.Equal(t, "☑", Current().Box(true))
	assert.Equal(t, "☐", Current().Box(false))
}
