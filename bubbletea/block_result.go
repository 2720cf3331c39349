package bubbletea

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fwojciec/tether"
)

var _ MessageBlock = (*ResultBlock)(nil)

// ResultBlock renders the summary line that closes a response.
type ResultBlock struct {
	msg    tether.ResultMessage
	styles Styles
}

// NewResultBlock creates a ResultBlock.
func NewResultBlock(msg tether.ResultMessage, styles Styles) *ResultBlock {
	return &ResultBlock{msg: msg, styles: styles}
}

func (b *ResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ResultBlock) View(width int) string {
	icon, style := "✓", b.styles.Success
	if b.msg.IsError {
		icon, style = "✗", b.styles.Error
	}
	subtype := b.msg.Subtype
	if subtype == "" {
		subtype = "result"
	}
	parts := []string{subtype}
	if b.msg.NumTurns > 0 {
		parts = append(parts, humanize.Comma(int64(b.msg.NumTurns))+" turns")
	}
	if b.msg.DurationMS > 0 {
		d := time.Duration(b.msg.DurationMS) * time.Millisecond
		parts = append(parts, d.Round(100*time.Millisecond).String())
	}
	if b.msg.TotalCostUSD != nil {
		parts = append(parts, fmt.Sprintf("$%.4f", *b.msg.TotalCostUSD))
	}
	if u := b.msg.Usage; u != nil {
		parts = append(parts, fmt.Sprintf("%s in / %s out",
			humanize.Comma(int64(u.TotalInputTokens())), humanize.Comma(int64(u.OutputTokens))))
	}
	line := style.Render(icon) + " " + b.styles.Muted.Render(strings.Join(parts, " · "))
	out := lipgloss.NewStyle().Width(width).Render(line)
	if b.msg.IsError && b.msg.Result != nil && *b.msg.Result != "" {
		out += "\n" + b.styles.Indent.Width(width).Render(b.styles.Error.Render(*b.msg.Result))
	}
	return out
}
