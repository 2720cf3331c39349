package bubbletea

import (
	"encoding/json"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ToolResultBlock)(nil)

const maxPreviewWidth = 60

// ToolResultBlock renders a tool result with a collapsible toggle.
// Success results start collapsed; error results start expanded and stay so.
type ToolResultBlock struct {
	toolName  string
	content   string
	isError   bool
	collapsed bool
	styles    Styles
}

// NewToolResultBlock creates a ToolResultBlock. toolName is the name of the
// invocation the result answers, or empty if it is unknown.
func NewToolResultBlock(toolName, content string, isError bool, styles Styles) *ToolResultBlock {
	if toolName == "" {
		toolName = "result"
	}
	return &ToolResultBlock{
		toolName:  toolName,
		content:   content,
		isError:   isError,
		collapsed: !isError,
		styles:    styles,
	}
}

// IsError reports whether this tool result represents an error.
func (b *ToolResultBlock) IsError() bool { return b.isError }

func (b *ToolResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed && !b.isError
	case SetCollapsedMsg:
		b.collapsed = msg.Collapsed && !b.isError
	}
	return b, nil
}

func (b *ToolResultBlock) View(width int) string {
	icon := b.styles.Success.Render("✓")
	if b.isError {
		icon = b.styles.Error.Render("✗")
	}
	if b.collapsed {
		header := b.styles.ToolUse.Render("▶ "+b.toolName) + " " + icon
		if b.content != "" {
			header += "  " + runewidth.Truncate(firstLine(b.content), maxPreviewWidth, "…")
		}
		return header
	}
	header := b.styles.ToolUse.Render("▼ "+b.toolName) + " " + icon
	if b.content == "" {
		return header
	}
	body := b.content
	if b.isError {
		body = b.styles.Error.Render(body)
	}
	return header + "\n" + b.styles.Indent.Width(width).Render(body)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// resultText extracts displayable text from a tool result payload, which
// is either a string or a list of content blocks.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}
