package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tether/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders assistant text as markdown. Output is cached
// per width because the viewport re-renders every block on resize and on
// each toggle.
type AssistantTextBlock struct {
	text     string
	renderer *goldmark.Renderer
	byWidth  map[int]string
}

// NewAssistantTextBlock creates a block for one text block of an assistant turn.
func NewAssistantTextBlock(text string, renderer *goldmark.Renderer) *AssistantTextBlock {
	return &AssistantTextBlock{text: text, renderer: renderer, byWidth: make(map[int]string)}
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	if out, ok := b.byWidth[width]; ok {
		return out
	}
	out := b.renderer.Render(b.text, width)
	b.byWidth[width] = out
	return out
}
