package bubbletea

import (
	"bytes"
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ToolUseBlock)(nil)

// ToolUseBlock renders a tool invocation with a collapsible input.
type ToolUseBlock struct {
	name      string
	id        string
	input     json.RawMessage
	collapsed bool
	styles    Styles
}

// NewToolUseBlock creates a ToolUseBlock that starts collapsed.
func NewToolUseBlock(name, id string, input json.RawMessage, styles Styles) *ToolUseBlock {
	return &ToolUseBlock{name: name, id: id, input: input, collapsed: true, styles: styles}
}

// ID returns the tool use ID that results refer to.
func (b *ToolUseBlock) ID() string { return b.id }

// Name returns the tool name.
func (b *ToolUseBlock) Name() string { return b.name }

func (b *ToolUseBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed
	case SetCollapsedMsg:
		b.collapsed = msg.Collapsed
	}
	return b, nil
}

func (b *ToolUseBlock) View(width int) string {
	if b.collapsed {
		header := b.styles.ToolUse.Render("▶ " + b.name)
		if preview := compact(b.input); preview != "" && preview != "{}" {
			room := width - runewidth.StringWidth(b.name) - 4
			if room > 3 {
				header += "  " + b.styles.Muted.Render(runewidth.Truncate(preview, room, "…"))
			}
		}
		return header
	}
	header := b.styles.ToolUse.Render("▼ " + b.name)
	if len(b.input) == 0 {
		return header
	}
	return header + "\n" + b.styles.Indent.Width(width).Render(b.styles.Muted.Render(indent(b.input)))
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
