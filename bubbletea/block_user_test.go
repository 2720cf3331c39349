package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/tether"
	bt "github.com/fwojciec/tether/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()
	styles := bt.NewStyles(tether.DefaultTheme())

	t.Run("renders text behind a prompt prefix", func(t *testing.T) {
		t.Parallel()
		view := ansi.Strip(bt.NewUserMessageBlock("hello world", styles).View(80))
		assert.True(t, strings.HasPrefix(view, "> hello world"))
	})

	t.Run("wraps long text within width", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		view := bt.NewUserMessageBlock(long, styles).View(30)
		assert.Contains(t, view, "easily")
		lines := strings.Split(view, "\n")
		assert.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, lipgloss.Width(line), 30)
		}
	})
}
