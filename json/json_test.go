package json_test

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/tether"
	tetherjson "github.com/fwojciec/tether/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func fullSession() tether.Session {
	return tether.Session{
		ID:               "sess-123",
		StartTime:        time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC),
		LastActivity:     time.Date(2026, 2, 18, 12, 5, 0, 0, time.UTC),
		WorkingDirectory: "/home/dev/project",
		Options: &tether.SessionOptions{
			Model:          "claude-sonnet-4-5",
			AllowedTools:   []string{"Read", "Bash"},
			PermissionMode: tether.PermissionAcceptEdits,
		},
		History: []tether.Message{
			tether.SystemMessage{Subtype: "init", Data: map[string]any{
				"session_id": "sess-123",
				"cwd":        "/home/dev/project",
				"tools":      []any{"Read", "Bash"},
			}},
			tether.UserMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "Fix the login bug"}}},
			tether.AssistantMessage{
				Model: "claude-sonnet-4-5",
				Content: []tether.ContentBlock{
					tether.TextBlock{Text: "I'll look at the auth module."},
					tether.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: json.RawMessage(`{"file_path":"auth.go"}`)},
				},
			},
			tether.UserMessage{Content: []tether.ContentBlock{
				tether.ToolResultBlock{ToolUseID: "toolu_1", Content: json.RawMessage(`"package auth"`), IsError: ptr(false)},
			}},
			tether.ResultMessage{
				Subtype:       "success",
				DurationMS:    4200,
				DurationAPIMS: 3900,
				NumTurns:      2,
				SessionID:     "sess-123",
				TotalCostUSD:  ptr(0.0123),
				Usage:         &tether.Usage{InputTokens: 150, OutputTokens: 42, CacheReadInputTokens: 1000},
				Result:        ptr("Fixed."),
			},
		},
	}
}

func newStore(t *testing.T) *tetherjson.FileStore {
	t.Helper()
	store, err := tetherjson.NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	return store
}

func TestMarshalSession_RoundTrip(t *testing.T) {
	t.Parallel()
	session := fullSession()

	data, err := tetherjson.MarshalSession(session)
	require.NoError(t, err)

	got, err := tetherjson.UnmarshalSession(data)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestMarshalSession_Format(t *testing.T) {
	t.Parallel()

	t.Run("uses documented field names", func(t *testing.T) {
		t.Parallel()
		data, err := tetherjson.MarshalSession(fullSession())
		require.NoError(t, err)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		for _, key := range []string{"session_id", "start_time", "last_activity", "conversation_history", "working_directory", "options"} {
			assert.Contains(t, raw, key)
		}
		assert.JSONEq(t, `"2026-02-18T12:00:00Z"`, string(raw["start_time"]))
	})

	t.Run("tags messages and blocks", func(t *testing.T) {
		t.Parallel()
		data, err := tetherjson.MarshalSession(fullSession())
		require.NoError(t, err)

		var doc struct {
			History []struct {
				MessageType string          `json:"message_type"`
				Content     json.RawMessage `json:"content"`
			} `json:"conversation_history"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Len(t, doc.History, 5)
		assert.Equal(t, "SystemMessage", doc.History[0].MessageType)
		assert.Equal(t, "UserMessage", doc.History[1].MessageType)
		assert.JSONEq(t, `"Fix the login bug"`, string(doc.History[1].Content))
		assert.Equal(t, "AssistantMessage", doc.History[2].MessageType)
		assert.JSONEq(t, `[
			{"type":"TextBlock","text":"I'll look at the auth module."},
			{"type":"ToolUseBlock","id":"toolu_1","name":"Read","input":{"file_path":"auth.go"}}
		]`, string(doc.History[2].Content))
		assert.Equal(t, "ResultMessage", doc.History[4].MessageType)
	})

	t.Run("writes null for unset options", func(t *testing.T) {
		t.Parallel()
		s := tether.Session{ID: "s1", Options: &tether.SessionOptions{}}
		data, err := tetherjson.MarshalSession(s)
		require.NoError(t, err)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.JSONEq(t, `{"model":null,"allowed_tools":[],"permission_mode":null}`, string(raw["options"]))
	})
}

func TestUnmarshalSession(t *testing.T) {
	t.Parallel()

	t.Run("skips unknown message kinds", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{
			"session_id": "s1",
			"start_time": "2026-02-18T12:00:00Z",
			"last_activity": "2026-02-18T12:00:00Z",
			"conversation_history": [
				{"message_type": "UserMessage", "content": "hi"},
				{"message_type": "StreamEvent", "event": {"delta": "x"}},
				{"message_type": "AssistantMessage", "content": [{"type": "TextBlock", "text": "hello"}]}
			],
			"working_directory": "/tmp",
			"options": null
		}`)
		got, err := tetherjson.UnmarshalSession(data)
		require.NoError(t, err)
		require.Len(t, got.History, 2)
		assert.Equal(t, tether.UserMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "hi"}}}, got.History[0])
		assert.Equal(t, tether.AssistantMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "hello"}}}, got.History[1])
		assert.Nil(t, got.Options)
	})

	t.Run("skips unknown content blocks", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{
			"session_id": "s1",
			"start_time": "2026-02-18T12:00:00Z",
			"last_activity": "2026-02-18T12:00:00Z",
			"conversation_history": [
				{"message_type": "AssistantMessage", "content": [
					{"type": "ThinkingBlock", "thinking": "hmm"},
					{"type": "TextBlock", "text": "done"}
				]}
			]
		}`)
		got, err := tetherjson.UnmarshalSession(data)
		require.NoError(t, err)
		require.Len(t, got.History, 1)
		assert.Equal(t, tether.AssistantMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "done"}}}, got.History[0])
	})

	t.Run("reads zone-less timestamps as local time", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{
			"session_id": "s1",
			"start_time": "2023-01-01T12:00:00",
			"last_activity": "2023-01-01T12:05:00.123456",
			"conversation_history": []
		}`)
		got, err := tetherjson.UnmarshalSession(data)
		require.NoError(t, err)
		assert.True(t, time.Date(2023, 1, 1, 12, 0, 0, 0, time.Local).Equal(got.StartTime))
		assert.True(t, time.Date(2023, 1, 1, 12, 5, 0, 123456000, time.Local).Equal(got.LastActivity))
	})

	t.Run("rejects documents without required fields", func(t *testing.T) {
		t.Parallel()
		for _, data := range []string{
			`{"start_time": "2026-02-18T12:00:00Z", "last_activity": "2026-02-18T12:00:00Z"}`,
			`{"session_id": "s1", "last_activity": "2026-02-18T12:00:00Z"}`,
			`{"session_id": "s1", "start_time": "2026-02-18T12:00:00Z"}`,
			`{"session_id": "s1", "start_time": "yesterday", "last_activity": "2026-02-18T12:00:00Z"}`,
		} {
			_, err := tetherjson.UnmarshalSession([]byte(data))
			assert.Error(t, err, data)
		}
	})

	t.Run("rejects malformed known messages", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{
			"session_id": "s1",
			"start_time": "2026-02-18T12:00:00Z",
			"last_activity": "2026-02-18T12:00:00Z",
			"conversation_history": [{"message_type": "ResultMessage", "num_turns": "two"}]
		}`)
		_, err := tetherjson.UnmarshalSession(data)
		assert.Error(t, err)
	})
}

func TestFileStore_SaveLoad(t *testing.T) {
	t.Parallel()

	t.Run("round trips a session", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		session := fullSession()

		require.NoError(t, store.Save(ctx, session))
		got, ok := store.Load(ctx, session.ID)
		require.True(t, ok)
		assert.Equal(t, session, got)
	})

	t.Run("round trips a simple session", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		session := tether.Session{
			ID:               "s1",
			StartTime:        time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			LastActivity:     time.Date(2023, 1, 1, 12, 5, 0, 0, time.UTC),
			WorkingDirectory: "/tmp",
			History: []tether.Message{
				tether.UserMessage{Content: []tether.ContentBlock{tether.TextBlock{Text: "Hello"}}},
			},
		}

		require.NoError(t, store.Save(ctx, session))
		got, ok := store.Load(ctx, "s1")
		require.True(t, ok)
		assert.Equal(t, "s1", got.ID)
		assert.True(t, session.StartTime.Equal(got.StartTime))
		assert.True(t, session.LastActivity.Equal(got.LastActivity))
		assert.Equal(t, "/tmp", got.WorkingDirectory)
		require.Len(t, got.History, 1)
		assert.Equal(t, "Hello", tether.Text(got.History[0].(tether.UserMessage).Content))
	})

	t.Run("saving twice equals saving once", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		session := fullSession()

		require.NoError(t, store.Save(ctx, session))
		first, err := os.ReadFile(filepath.Join(store.Root(), "sess-123.json"))
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, session))
		second, err := os.ReadFile(filepath.Join(store.Root(), "sess-123.json"))
		require.NoError(t, err)

		assert.Equal(t, first, second)
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"sess-123"}, ids)
	})

	t.Run("leaves no temp file behind", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		require.NoError(t, store.Save(context.Background(), fullSession()))

		entries, err := os.ReadDir(store.Root())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "sess-123.json", entries[0].Name())
	})

	t.Run("missing session is absent", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		_, ok := store.Load(context.Background(), "never-saved")
		assert.False(t, ok)
	})

	t.Run("corrupt session is absent", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		path := filepath.Join(store.Root(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"session_id": "broken", "conversation_`), 0o600))

		_, ok := store.Load(context.Background(), "broken")
		assert.False(t, ok)
	})

	t.Run("file name wins over document id", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		session := fullSession()
		data, err := tetherjson.MarshalSession(session)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "copied.json"), data, 0o600))

		got, ok := store.Load(ctx, "copied")
		require.True(t, ok)
		assert.Equal(t, "copied", got.ID)
	})

	t.Run("rejects unsafe ids", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()

		err := store.Save(ctx, tether.Session{ID: "../escape"})
		require.ErrorIs(t, err, tether.ErrValidation)
		_, ok := store.Load(ctx, "../escape")
		assert.False(t, ok)
		_, err = store.Delete(ctx, "")
		assert.ErrorIs(t, err, tether.ErrValidation)
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Save(ctx, fullSession())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("creates nested root", func(t *testing.T) {
		t.Parallel()
		root := filepath.Join(t.TempDir(), "a", "b", "c")
		_, err := tetherjson.NewFileStore(root)
		require.NoError(t, err)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestFileStore_ListDelete(t *testing.T) {
	t.Parallel()

	t.Run("list and delete lifecycle", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, store.Save(ctx, tether.Session{ID: "s1"}))
		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids)

		removed, err := store.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, removed)

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		removed, err = store.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("lists in ascending order", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"c", "a", "b", "a"} {
			require.NoError(t, store.Save(ctx, tether.Session{ID: id}))
		}

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("ignores foreign files", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, tether.Session{ID: "s1"}))
		require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "s2.json.tmp"), []byte("{}"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "notes.txt"), []byte("x"), 0o600))
		require.NoError(t, os.Mkdir(filepath.Join(store.Root(), "dir.json"), 0o700))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids)
	})

	t.Run("removes temp file when write fails", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		tmp := filepath.Join(store.Root(), "s1.json.tmp")
		require.NoError(t, os.Mkdir(tmp, 0o700))

		err := store.Save(context.Background(), tether.Session{ID: "s1"})
		require.Error(t, err)
		_, statErr := os.Stat(tmp)
		assert.ErrorIs(t, statErr, fs.ErrNotExist)
	})

	t.Run("filters by pattern", func(t *testing.T) {
		t.Parallel()
		store := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"2025-a", "2026-b", "2025-c", "other"} {
			require.NoError(t, store.Save(ctx, tether.Session{ID: id}))
		}

		ids, err := store.ListMatching(ctx, "2025-*")
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-a", "2025-c"}, ids)

		_, err = store.ListMatching(ctx, "[")
		assert.ErrorIs(t, err, tether.ErrValidation)
	})
}
