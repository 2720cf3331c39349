// Package goldmark renders the markdown in assistant turns as ANSI-styled
// terminal text. Parsing is done by goldmark with the strikethrough and
// task list extensions; styling is done by lipgloss using tether.Theme.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/fwojciec/tether"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when Render is given a non-positive width.
const DefaultWidth = 80

// Renderer renders markdown with a fixed theme. A Renderer is safe for
// concurrent use.
type Renderer struct {
	parser parser.Parser
	styles styles
}

// NewRenderer creates a Renderer for theme.
func NewRenderer(theme tether.Theme) *Renderer {
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.TaskList))
	return &Renderer{parser: md.Parser(), styles: newStyles(theme)}
}

// Render parses markdown source and returns styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width. Code blocks
// are kept verbatim.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	src := []byte(source)
	doc := r.parser.Parse(text.NewReader(src))
	w := &writer{styles: r.styles, source: src}
	var buf bytes.Buffer
	w.blocks(doc, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

// Render is a shorthand for NewRenderer(theme).Render(source, width).
func Render(source string, width int, theme tether.Theme) string {
	return NewRenderer(theme).Render(source, width)
}
