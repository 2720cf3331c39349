// Package bubbletea provides a Bubble Tea TUI for browsing stored sessions:
// a list of sessions and a scrollable transcript of the selected one.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tether"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SummariesMsg delivers the session listing.
type SummariesMsg struct {
	Summaries []tether.SessionSummary
	Err       error
}

// SessionMsg delivers a loaded session. Found is false when the store had
// no readable entry for ID.
type SessionMsg struct {
	ID      string
	Session tether.Session
	Found   bool
}

// DeletedMsg reports the outcome of deleting a session.
type DeletedMsg struct {
	ID      string
	Removed bool
	Err     error
}

func loadSummaries(ctx context.Context, store tether.Store) tea.Cmd {
	return func() tea.Msg {
		sums, err := tether.Summaries(ctx, store)
		return SummariesMsg{Summaries: sums, Err: err}
	}
}

func loadSession(ctx context.Context, store tether.Store, id string) tea.Cmd {
	return func() tea.Msg {
		s, ok := store.Load(ctx, id)
		return SessionMsg{ID: id, Session: s, Found: ok}
	}
}

func deleteSession(ctx context.Context, store tether.Store, id string) tea.Cmd {
	return func() tea.Msg {
		removed, err := store.Delete(ctx, id)
		return DeletedMsg{ID: id, Removed: removed, Err: err}
	}
}
