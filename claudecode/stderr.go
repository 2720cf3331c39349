package claudecode

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// stderrTail keeps the last max bytes written to it. The CLI's diagnostics
// are only interesting when it exits unexpectedly, so nothing older is kept.
type stderrTail struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newStderrTail(max int) *stderrTail {
	return &stderrTail{max: max}
}

// Write implements io.Writer.
func (t *stderrTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		trimmed := make([]byte, t.max)
		copy(trimmed, t.buf[len(t.buf)-t.max:])
		t.buf = trimmed
	}
	return len(p), nil
}

// String returns the retained output with escape sequences removed.
func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(ansi.Strip(string(t.buf)))
}
