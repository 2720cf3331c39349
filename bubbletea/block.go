package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element of a session transcript.
// Unlike tea.Model, View takes a width parameter so the browser controls
// layout and blocks are testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
// Sent by the browser when the user presses the toggle key on a focused block.
type ToggleMsg struct{}

// SetCollapsedMsg sets the collapsed state of every collapsible block.
type SetCollapsedMsg struct {
	Collapsed bool
}

// collapsible reports whether b responds to ToggleMsg.
func collapsible(b MessageBlock) bool {
	switch b.(type) {
	case *ToolUseBlock, *ToolResultBlock, *SystemBlock:
		return true
	}
	return false
}

// blockSeparator returns the gap between two adjacent blocks. Tool
// activity is kept tight; everything else gets a blank line.
func blockSeparator(prev, curr MessageBlock) string {
	if isTool(prev) && isTool(curr) {
		return "\n"
	}
	return "\n\n"
}

func isTool(b MessageBlock) bool {
	switch b.(type) {
	case *ToolUseBlock, *ToolResultBlock:
		return true
	}
	return false
}
