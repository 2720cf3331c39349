package bubbletea

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tether"
)

var _ MessageBlock = (*SystemBlock)(nil)

// SystemBlock renders a system notice. Its data starts collapsed.
type SystemBlock struct {
	msg       tether.SystemMessage
	collapsed bool
	styles    Styles
}

// NewSystemBlock creates a SystemBlock.
func NewSystemBlock(msg tether.SystemMessage, styles Styles) *SystemBlock {
	return &SystemBlock{msg: msg, collapsed: true, styles: styles}
}

func (b *SystemBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed
	case SetCollapsedMsg:
		b.collapsed = msg.Collapsed
	}
	return b, nil
}

func (b *SystemBlock) View(width int) string {
	label := "system"
	if b.msg.Subtype != "" {
		label += ": " + b.msg.Subtype
	}
	if id, ok := tether.SessionIDOf(b.msg); ok {
		label += " (" + id + ")"
	}
	wrap := lipgloss.NewStyle().Width(width)
	if b.collapsed {
		return b.styles.System.Render(wrap.Render("▶ " + label))
	}
	header := b.styles.System.Render(wrap.Render("▼ " + label))
	keys := make([]string, 0, len(b.msg.Data))
	for k := range b.msg.Data {
		if k == "type" || k == "subtype" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return header
	}
	slices.Sort(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + formatValue(b.msg.Data[k])
	}
	return header + "\n" + b.styles.Indent.Width(width).Render(b.styles.Muted.Render(strings.Join(lines, "\n")))
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
