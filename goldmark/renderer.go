package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tether"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

type styles struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	strike    lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	code      lipgloss.Style
	underline lipgloss.Style
}

func newStyles(theme tether.Theme) styles {
	return styles{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		strike:    lipgloss.NewStyle().Strikethrough(true),
		heading:   lipgloss.NewStyle().Foreground(color(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(color(theme.Muted)).Faint(true),
		code:      lipgloss.NewStyle().Background(color(theme.CodeBg)).Bold(true),
		underline: lipgloss.NewStyle().Underline(true),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// writer holds the state of one Render call.
type writer struct {
	styles styles
	source []byte
}

func (w *writer) blocks(node ast.Node, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c, width, buf)
		if c.NextSibling() != nil && !isHTML(c) {
			buf.WriteString("\n")
		}
	}
}

func isHTML(n ast.Node) bool {
	_, ok := n.(*ast.HTMLBlock)
	return ok
}

func (w *writer) block(node ast.Node, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped(w.inline(n), width, buf)

	case *ast.Heading:
		w.wrapped(w.styles.heading.Render(w.inline(n)), width, buf)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(w.source)); lang != "" {
			buf.WriteString(w.styles.muted.Render(lang) + "\n")
		}
		w.code(n.Lines().Len(), func(i int) []byte { seg := n.Lines().At(i); return seg.Value(w.source) }, buf)

	case *ast.CodeBlock:
		w.code(n.Lines().Len(), func(i int) []byte { seg := n.Lines().At(i); return seg.Value(w.source) }, buf)

	case *ast.Blockquote:
		var inner bytes.Buffer
		w.blocks(n, max(width-2, 10), &inner)
		bar := w.styles.muted.Render("▎") + " "
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			buf.WriteString(bar + line + "\n")
		}

	case *ast.List:
		w.list(n, width, buf, 0)

	case *ast.ThematicBreak:
		buf.WriteString(w.styles.muted.Render(strings.Repeat("─", min(width, 40))) + "\n")

	case *ast.HTMLBlock:
		for i := 0; i < n.Lines().Len(); i++ {
			seg := n.Lines().At(i)
			buf.Write(seg.Value(w.source))
		}

	default:
		w.blocks(node, width, buf)
	}
}

func (w *writer) wrapped(s string, width int, buf *bytes.Buffer) {
	buf.WriteString(lipgloss.NewStyle().Width(width).Render(s))
	buf.WriteString("\n")
}

// code writes lines behind a gutter without reflowing them.
func (w *writer) code(n int, line func(int) []byte, buf *bytes.Buffer) {
	gutter := w.styles.muted.Render("│") + " "
	for i := 0; i < n; i++ {
		buf.WriteString(gutter + strings.TrimRight(string(line(i)), "\n") + "\n")
	}
}

func (w *writer) list(node *ast.List, width int, buf *bytes.Buffer, depth int) {
	n := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", n)
			n++
		}
		indent := strings.Repeat("  ", depth)

		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content.WriteString(w.inline(in))
			case *ast.List:
				if content.Len() > 0 {
					w.item(indent+marker, content.String(), width, buf)
					content.Reset()
				}
				w.list(in, width, buf, depth+1)
				marker = strings.Repeat(" ", len(marker))
			default:
				w.block(ic, width, &content)
			}
		}
		if content.Len() > 0 {
			w.item(indent+marker, content.String(), width, buf)
		}
	}
}

// item writes one list entry, indenting continuation lines under the text.
func (w *writer) item(prefix, content string, width int, buf *bytes.Buffer) {
	wrapped := lipgloss.NewStyle().Width(max(width-len(prefix), 10)).Render(content)
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
			continue
		}
		buf.WriteString(pad + line + "\n")
	}
}

func (w *writer) inline(node ast.Node) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.span(c, &buf)
	}
	return buf.String()
}

func (w *writer) span(node ast.Node, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(w.source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		// Goldmark nests ***x*** as two Emphasis nodes, so Level is 1 or 2.
		if n.Level == 1 {
			buf.WriteString(w.styles.italic.Render(w.inline(n)))
		} else {
			buf.WriteString(w.styles.bold.Render(w.inline(n)))
		}

	case *extast.Strikethrough:
		buf.WriteString(w.styles.strike.Render(w.inline(n)))

	case *extast.TaskCheckBox:
		if n.IsChecked {
			buf.WriteString("[x] ")
		} else {
			buf.WriteString("[ ] ")
		}

	case *ast.CodeSpan:
		buf.WriteString(w.styles.code.Render(w.inline(n)))

	case *ast.Link:
		buf.WriteString(w.styles.underline.Render(w.inline(n)))
		buf.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))

	case *ast.Image:
		buf.WriteString(w.styles.underline.Render(w.inline(n)))
		buf.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(w.styles.underline.Render(string(n.URL(w.source))))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(w.source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.span(c, buf)
		}
	}
}
