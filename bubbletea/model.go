package bubbletea

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fwojciec/tether"
	"github.com/fwojciec/tether/goldmark"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Browser{}

type mode int

const (
	modeList mode = iota
	modeDetail
)

// chromeHeight is the number of rows taken by the title and status lines.
const chromeHeight = 2

// Browser is the Bubble Tea model for the session browser. It starts on the
// session list; Enter opens the selected transcript and Esc returns.
type Browser struct {
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	ctx      context.Context
	store    tether.Store
	styles   Styles
	renderer *goldmark.Renderer
	now      func() time.Time

	mode      mode
	summaries []tether.SessionSummary
	cursor    int
	offset    int
	confirm   bool

	session     tether.Session
	blocks      []MessageBlock
	blockFocus  int // index of focused collapsible block (-1 = none)
	allExpanded bool

	status string
	err    error
	width  int
	height int
	ready  bool
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithNow sets the clock used for relative times in the list.
func WithNow(now func() time.Time) BrowserOption {
	return func(b *Browser) { b.now = now }
}

// NewBrowser creates a Browser over store.
func NewBrowser(ctx context.Context, store tether.Store, theme tether.Theme, opts ...BrowserOption) Browser {
	b := Browser{
		ctx:        ctx,
		store:      store,
		styles:     NewStyles(theme),
		renderer:   goldmark.NewRenderer(theme),
		now:        time.Now,
		blockFocus: -1,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Err returns the last error, if any.
func (b Browser) Err() error { return b.err }

// Summaries returns the current listing.
func (b Browser) Summaries() []tether.SessionSummary { return b.summaries }

// Selected returns the summary under the cursor.
func (b Browser) Selected() (tether.SessionSummary, bool) {
	if b.cursor < 0 || b.cursor >= len(b.summaries) {
		return tether.SessionSummary{}, false
	}
	return b.summaries[b.cursor], true
}

// Session returns the session whose transcript is open.
func (b Browser) Session() (tether.Session, bool) {
	return b.session, b.mode == modeDetail
}

// Init implements tea.Model.
func (b Browser) Init() tea.Cmd {
	return loadSummaries(b.ctx, b.store)
}

// Update implements tea.Model.
func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return b.handleWindowSize(msg), nil

	case SummariesMsg:
		b.err = msg.Err
		if msg.Err == nil {
			b.summaries = msg.Summaries
		}
		b = b.clampCursor()
		return b, nil

	case SessionMsg:
		if !msg.Found {
			b.err = fmt.Errorf("session %s could not be loaded", msg.ID)
			return b, nil
		}
		b.err = nil
		b.status = ""
		b = b.openSession(msg.Session)
		return b, nil

	case DeletedMsg:
		switch {
		case msg.Err != nil:
			b.err = msg.Err
		case msg.Removed:
			b.err = nil
			b.status = "deleted " + msg.ID
		default:
			b.status = msg.ID + " was already gone"
		}
		return b, loadSummaries(b.ctx, b.store)

	case tea.KeyMsg:
		if b.mode == modeDetail {
			return b.handleDetailKey(msg)
		}
		return b.handleListKey(msg)
	}

	if b.mode == modeDetail {
		var cmd tea.Cmd
		b.Viewport, cmd = b.Viewport.Update(msg)
		return b, cmd
	}
	return b, nil
}

// View implements tea.Model.
func (b Browser) View() string {
	if !b.ready {
		return "Loading..."
	}
	var out strings.Builder
	if b.mode == modeDetail {
		out.WriteString(b.detailTitle())
		out.WriteString("\n")
		out.WriteString(b.Viewport.View())
	} else {
		out.WriteString(b.styles.Accent.Render(fmt.Sprintf("Sessions (%d)", len(b.summaries))))
		out.WriteString("\n")
		out.WriteString(b.listView())
	}
	out.WriteString("\n")
	out.WriteString(b.statusLine())
	return out.String()
}

func (b Browser) handleWindowSize(msg tea.WindowSizeMsg) Browser {
	b.width = msg.Width
	b.height = msg.Height
	vpHeight := max(msg.Height-chromeHeight, 1)
	if !b.ready {
		b.Viewport = viewport.New(msg.Width, vpHeight)
		b.ready = true
	} else {
		b.Viewport.Width = msg.Width
		b.Viewport.Height = vpHeight
	}
	if b.mode == modeDetail {
		b.Viewport.SetContent(b.renderContent())
	}
	return b.clampCursor()
}

func (b Browser) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if b.confirm {
		b.confirm = false
		b.status = ""
		if msg.String() == "y" {
			if sel, ok := b.Selected(); ok {
				return b, deleteSession(b.ctx, b.store, sel.ID)
			}
		}
		return b, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return b, tea.Quit
	case "up", "k":
		b.cursor--
	case "down", "j":
		b.cursor++
	case "home", "g":
		b.cursor = 0
	case "end", "G":
		b.cursor = len(b.summaries) - 1
	case "pgup":
		b.cursor -= b.listRows()
	case "pgdown":
		b.cursor += b.listRows()
	case "r":
		b.status = ""
		return b, loadSummaries(b.ctx, b.store)
	case "d":
		if sel, ok := b.Selected(); ok {
			b.confirm = true
			b.status = "delete " + sel.ID + "? (y/n)"
		}
		return b, nil
	case "enter":
		if sel, ok := b.Selected(); ok {
			return b, loadSession(b.ctx, b.store, sel.ID)
		}
		return b, nil
	}
	return b.clampCursor(), nil
}

func (b Browser) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return b, tea.Quit

	case tea.KeyEsc, tea.KeyBackspace:
		return b.closeSession(), nil

	case tea.KeyTab:
		if b.blockFocus >= 0 {
			block, cmd := b.blocks[b.blockFocus].Update(ToggleMsg{})
			b.blocks[b.blockFocus] = block
			b.Viewport.SetContent(b.renderContent())
			return b, cmd
		}
		return b, nil

	case tea.KeyShiftTab:
		b = b.cycleFocusPrev()
		return b, nil

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return b.closeSession(), nil
		case "e":
			b.allExpanded = !b.allExpanded
			var cmds []tea.Cmd
			for i, block := range b.blocks {
				updated, cmd := block.Update(SetCollapsedMsg{Collapsed: !b.allExpanded})
				b.blocks[i] = updated
				cmds = append(cmds, cmd)
			}
			b.Viewport.SetContent(b.renderContent())
			return b, tea.Batch(cmds...)
		}
	}

	var cmd tea.Cmd
	b.Viewport, cmd = b.Viewport.Update(msg)
	return b, cmd
}

func (b Browser) openSession(s tether.Session) Browser {
	b.mode = modeDetail
	b.session = s
	b.blocks = buildBlocks(s, b.styles, b.renderer)
	b.allExpanded = false
	b = b.updateBlockFocus()
	b.Viewport.SetContent(b.renderContent())
	b.Viewport.GotoTop()
	return b
}

func (b Browser) closeSession() Browser {
	b.mode = modeList
	b.session = tether.Session{}
	b.blocks = nil
	b.blockFocus = -1
	return b
}

// buildBlocks turns a session history into transcript blocks. Tool results
// are labelled with the name of the invocation they answer.
func buildBlocks(s tether.Session, styles Styles, renderer *goldmark.Renderer) []MessageBlock {
	var blocks []MessageBlock
	toolNames := make(map[string]string)
	content := func(cbs []tether.ContentBlock, user bool) {
		for _, cb := range cbs {
			switch cb := cb.(type) {
			case tether.TextBlock:
				if user {
					blocks = append(blocks, NewUserMessageBlock(cb.Text, styles))
				} else {
					blocks = append(blocks, NewAssistantTextBlock(cb.Text, renderer))
				}
			case tether.ToolUseBlock:
				toolNames[cb.ID] = cb.Name
				blocks = append(blocks, NewToolUseBlock(cb.Name, cb.ID, cb.Input, styles))
			case tether.ToolResultBlock:
				isErr := cb.IsError != nil && *cb.IsError
				blocks = append(blocks, NewToolResultBlock(toolNames[cb.ToolUseID], resultText(cb.Content), isErr, styles))
			}
		}
	}
	for _, msg := range s.History {
		switch m := msg.(type) {
		case tether.UserMessage:
			content(m.Content, true)
		case tether.AssistantMessage:
			content(m.Content, false)
		case tether.SystemMessage:
			blocks = append(blocks, NewSystemBlock(m, styles))
		case tether.ResultMessage:
			blocks = append(blocks, NewResultBlock(m, styles))
		}
	}
	return blocks
}

func (b Browser) renderContent() string {
	var out strings.Builder
	for i, block := range b.blocks {
		if i > 0 {
			out.WriteString(blockSeparator(b.blocks[i-1], block))
		}
		out.WriteString(block.View(b.Viewport.Width))
	}
	return out.String()
}

// updateBlockFocus focuses the last collapsible block.
func (b Browser) updateBlockFocus() Browser {
	b.blockFocus = -1
	for i := len(b.blocks) - 1; i >= 0; i-- {
		if collapsible(b.blocks[i]) {
			b.blockFocus = i
			return b
		}
	}
	return b
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (b Browser) cycleFocusPrev() Browser {
	if len(b.blocks) == 0 {
		return b
	}
	start := b.blockFocus - 1
	if start < 0 {
		start = len(b.blocks) - 1
	}
	for i := range len(b.blocks) {
		idx := (start - i + len(b.blocks)) % len(b.blocks)
		if collapsible(b.blocks[idx]) {
			b.blockFocus = idx
			return b
		}
	}
	b.blockFocus = -1
	return b
}

func (b Browser) listRows() int {
	return max(b.height-chromeHeight, 1)
}

// clampCursor keeps the cursor on an entry and scrolls it into view.
func (b Browser) clampCursor() Browser {
	b.cursor = min(b.cursor, len(b.summaries)-1)
	b.cursor = max(b.cursor, 0)
	rows := b.listRows()
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.cursor >= b.offset+rows {
		b.offset = b.cursor - rows + 1
	}
	return b
}

const idWidth = 36

func (b Browser) listView() string {
	rows := b.listRows()
	if len(b.summaries) == 0 {
		return b.styles.Muted.Render("No saved sessions.") + strings.Repeat("\n", rows-1)
	}
	now := b.now()
	lines := make([]string, 0, rows)
	for i := b.offset; i < len(b.summaries) && len(lines) < rows; i++ {
		lines = append(lines, b.row(b.summaries[i], now, i == b.cursor))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// row formats one listing entry in fixed columns truncated to the width.
func (b Browser) row(s tether.SessionSummary, now time.Time, selected bool) string {
	when := "-"
	if !s.LastActivity.IsZero() {
		when = humanize.RelTime(s.LastActivity, now, "ago", "from now")
	}
	line := fmt.Sprintf("%s  %s  %s  %s",
		runewidth.FillRight(runewidth.Truncate(s.ID, idWidth, "…"), idWidth),
		runewidth.FillRight(when, 16),
		runewidth.FillLeft(fmt.Sprintf("%d msgs", s.MessageCount), 10),
		s.WorkingDirectory,
	)
	if b.width > 2 {
		line = runewidth.Truncate(line, b.width-2, "…")
	}
	if selected {
		return b.styles.Selected.Render("› " + line)
	}
	return "  " + line
}

func (b Browser) detailTitle() string {
	title := b.session.ID
	if b.session.WorkingDirectory != "" {
		title += " · " + b.session.WorkingDirectory
	}
	if !b.session.StartTime.IsZero() {
		title += " · started " + b.session.StartTime.Local().Format(time.DateTime)
	}
	if b.width > 0 {
		title = runewidth.Truncate(title, b.width, "…")
	}
	return b.styles.Accent.Render(title)
}

func (b Browser) statusLine() string {
	switch {
	case b.err != nil:
		return b.styles.Error.Render(fmt.Sprintf("Error: %v", b.err))
	case b.status != "":
		return b.styles.Muted.Render(b.status)
	case b.mode == modeDetail:
		return b.styles.Muted.Render("Tab toggle · Shift+Tab previous · e expand all · Esc back")
	default:
		return b.styles.Muted.Render("Enter open · d delete · r reload · q quit")
	}
}
