package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fwojciec/tether"
	"github.com/fwojciec/tether/goldmark"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// printer writes conversation messages as a plain transcript. On a
// terminal, assistant text is rendered as markdown and long lines are cut
// to the terminal width.
type printer struct {
	w         io.Writer
	md        *goldmark.Renderer
	width     int
	toolNames map[string]string
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, toolNames: make(map[string]string)}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.md = goldmark.NewRenderer(tether.DefaultTheme())
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *printer) print(msg tether.Message) {
	switch m := msg.(type) {
	case tether.UserMessage:
		for _, b := range m.Content {
			p.block(b, true)
		}
	case tether.AssistantMessage:
		for _, b := range m.Content {
			p.block(b, false)
		}
	case tether.SystemMessage:
		p.line(fmt.Sprintf("[system: %s]", m.Subtype))
	case tether.ResultMessage:
		p.line("[" + resultSummary(m) + "]")
		if m.IsError && m.Result != nil {
			p.line(*m.Result)
		}
	}
}

func (p *printer) block(b tether.ContentBlock, user bool) {
	switch b := b.(type) {
	case tether.TextBlock:
		switch {
		case user:
			fmt.Fprintf(p.w, "> %s\n", b.Text)
		case p.md != nil:
			fmt.Fprintln(p.w, p.md.Render(b.Text, p.width))
		default:
			fmt.Fprintln(p.w, b.Text)
		}
	case tether.ToolUseBlock:
		p.toolNames[b.ID] = b.Name
		p.line("→ " + b.Name + " " + compactJSON(b.Input))
	case tether.ToolResultBlock:
		name := p.toolNames[b.ToolUseID]
		if name == "" {
			name = b.ToolUseID
		}
		status := "ok"
		if b.IsError != nil && *b.IsError {
			status = "error"
		}
		p.line(fmt.Sprintf("← %s %s (%d bytes)", name, status, len(b.Content)))
	}
}

// line writes s, cut to the terminal width when there is one.
func (p *printer) line(s string) {
	if p.width > 0 {
		s = runewidth.Truncate(s, p.width, "…")
	}
	fmt.Fprintln(p.w, s)
}

func resultSummary(m tether.ResultMessage) string {
	parts := []string{m.Subtype}
	if m.NumTurns > 0 {
		parts = append(parts, fmt.Sprintf("%d turns", m.NumTurns))
	}
	if m.TotalCostUSD != nil {
		parts = append(parts, fmt.Sprintf("$%.4f", *m.TotalCostUSD))
	}
	return strings.Join(parts, " · ")
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
