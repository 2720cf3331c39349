package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/tether"
	tetherjson "github.com/fwojciec/tether/json"
	"github.com/fwojciec/tether/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// runCmd executes the command line with a config file that does not exist,
// so only defaults and flags apply.
func runCmd(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"--config", filepath.Join(dir, "absent.toml"), "--storage-dir", filepath.Join(dir, "sessions")}
	err := execute(context.Background(), append(base, args...), strings.NewReader(stdin), &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

var seeded = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, dir string) {
	t.Helper()
	store, err := tetherjson.NewFileStore(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tether.Session{
		ID:               "alpha",
		StartTime:        seeded,
		LastActivity:     seeded.Add(time.Minute),
		WorkingDirectory: "/work/alpha",
		History: []tether.Message{
			tether.UserMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "list files"}}},
			tether.AssistantMessage{Content: []tether.ContentBlock{
				tether.ToolUseBlock{ID: "toolu_1", Name: "Bash", Input: json.RawMessage(`{"command": "ls"}`)},
			}},
			tether.UserMessage{Content: []tether.ContentBlock{
				tether.ToolResultBlock{ToolUseID: "toolu_1", Content: json.RawMessage(`"a.go"`)},
			}},
			tether.AssistantMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "There is one file."}}},
			tether.ResultMessage{Subtype: "success", SessionID: "alpha", NumTurns: 2},
		},
	}))
	require.NoError(t, store.Save(ctx, tether.Session{
		ID:           "beta",
		StartTime:    seeded,
		LastActivity: seeded.Add(time.Hour),
	}))
}

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		seed(t, dir)

		r := runCmd(t, dir, "", "list")
		require.NoError(t, r.err)
		lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "ID"))
		assert.True(t, strings.HasPrefix(lines[1], "beta"))
		assert.True(t, strings.HasPrefix(lines[2], "alpha"))
		assert.Contains(t, lines[2], "/work/alpha")
		assert.Contains(t, lines[2], "ago")
	})

	t.Run("match and quiet", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		seed(t, dir)

		r := runCmd(t, dir, "", "list", "--match", "al*", "-q")
		require.NoError(t, r.err)
		assert.Equal(t, "alpha\n", r.stdout)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()
		r := runCmd(t, t.TempDir(), "", "list", "--match", "[")
		assert.ErrorIs(t, r.err, tether.ErrValidation)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		r := runCmd(t, t.TempDir(), "", "--backend", "postgres", "list")
		assert.ErrorIs(t, r.err, tether.ErrValidation)
	})
}

func TestList_SQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "sessions", sqliteFile))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), tether.Session{ID: "gamma", LastActivity: seeded}))
	require.NoError(t, store.Close())

	r := runCmd(t, dir, "", "--backend", "sqlite", "list", "-q")
	require.NoError(t, r.err)
	assert.Equal(t, "gamma\n", r.stdout)
}

func TestShow(t *testing.T) {
	t.Parallel()

	t.Run("transcript", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		seed(t, dir)

		r := runCmd(t, dir, "", "show", "alpha")
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, "session alpha\n")
		assert.Contains(t, r.stdout, "directory /work/alpha\n")
		assert.Contains(t, r.stdout, "> list files\n")
		assert.Contains(t, r.stdout, `→ Bash {"command":"ls"}`)
		assert.Contains(t, r.stdout, "← Bash ok (6 bytes)")
		assert.Contains(t, r.stdout, "There is one file.\n")
		assert.Contains(t, r.stdout, "[success · 2 turns]")
	})

	t.Run("raw document", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		seed(t, dir)

		r := runCmd(t, dir, "", "show", "--raw", "beta")
		require.NoError(t, r.err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
		assert.Equal(t, "beta", doc["session_id"])
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		r := runCmd(t, t.TempDir(), "", "show", "nope")
		assert.ErrorContains(t, r.err, "session nope not found")
	})

	t.Run("unsafe id", func(t *testing.T) {
		t.Parallel()
		r := runCmd(t, t.TempDir(), "", "show", "../etc")
		assert.ErrorIs(t, r.err, tether.ErrValidation)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	seed(t, dir)

	r := runCmd(t, dir, "", "delete", "alpha", "missing")
	require.NoError(t, r.err)
	assert.Equal(t, "deleted alpha\n", r.stdout)
	assert.Equal(t, "missing: no such session\n", r.stderr)

	r = runCmd(t, dir, "", "list", "-q")
	require.NoError(t, r.err)
	assert.Equal(t, "beta\n", r.stdout)
}

// fakeCLI writes a stand-in for the claude executable. It announces
// session id in an init notice and answers each input line with a text
// turn echoing the line count and a result.
func fakeCLI(t *testing.T, dir, id string) string {
	t.Helper()
	script := `#!/bin/sh
echo '{"type":"system","subtype":"init","session_id":"` + id + `"}'
n=0
while IFS= read -r line; do
  n=$((n+1))
  echo '{"type":"assistant","message":{"model":"fake","content":[{"type":"text","text":"reply '$n'"}]}}'
  echo '{"type":"result","subtype":"success","session_id":"` + id + `","num_turns":1}'
done
`
	path := filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func loadStored(t *testing.T, dir, id string) (tether.Session, bool) {
	t.Helper()
	store, err := tetherjson.NewFileStore(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	return store.Load(context.Background(), id)
}

// The tests below start processes and are not parallel: writing an
// executable while another test forks can fail with ETXTBSY.

func TestAsk(t *testing.T) {
	dir := t.TempDir()
	cli := fakeCLI(t, dir, "cli-sess")

	r := runCmd(t, dir, "", "ask", "--cli-path", cli, "--cwd", dir, "hello", "there")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "[system: init]\n")
	assert.Contains(t, r.stdout, "reply 1\n")
	assert.Contains(t, r.stdout, "[success · 1 turns]\n")
	assert.Contains(t, r.stderr, "session: cli-sess\n")

	s, ok := loadStored(t, dir, "cli-sess")
	require.True(t, ok)
	assert.Len(t, s.History, 3)
	assert.Equal(t, dir, s.WorkingDirectory)
}

func TestAsk_PromptFromStdin(t *testing.T) {
	dir := t.TempDir()
	cli := fakeCLI(t, dir, "stdin-sess")

	r := runCmd(t, dir, "summarize this\n", "ask", "--cli-path", cli, "-")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "reply 1")
}

func TestChat(t *testing.T) {
	dir := t.TempDir()
	cli := fakeCLI(t, dir, "chat-sess")

	r := runCmd(t, dir, "first\n\nsecond\n/id\n/exit\nignored\n", "chat", "--cli-path", cli)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "reply 1\n")
	assert.Contains(t, r.stdout, "reply 2\n")
	assert.NotContains(t, r.stdout, "reply 3")
	assert.Contains(t, r.stdout, "chat-sess\n")
	assert.Contains(t, r.stderr, "session: chat-sess\n")

	s, ok := loadStored(t, dir, "chat-sess")
	require.True(t, ok)
	// init, then an assistant turn and a result per prompt
	assert.Len(t, s.History, 5)
}

func TestAsk_ResumeRenamed(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	cli := fakeCLI(t, dir, "alpha-2")

	r := runCmd(t, dir, "", "ask", "--cli-path", cli, "--resume", "alpha", "continue")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "session: alpha-2\n")

	_, ok := loadStored(t, dir, "alpha")
	assert.False(t, ok)
	s, ok := loadStored(t, dir, "alpha-2")
	require.True(t, ok)
	assert.Len(t, s.History, 5+3)
	assert.Equal(t, "/work/alpha", s.WorkingDirectory)
}
