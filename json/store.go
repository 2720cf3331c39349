package json

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/tether"
)

const ext = ".json"

var _ tether.Store = (*FileStore)(nil)

// FileStore keeps one document per session in a directory, named
// "<session id>.json".
type FileStore struct {
	root   string
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used to report unreadable documents.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore returns a FileStore rooted at root, creating the directory
// if needed.
func NewFileStore(root string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	s := &FileStore{root: root, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the storage directory.
func (s *FileStore) Root() string { return s.root }

// Save writes the session document through a temporary file and a rename,
// so a reader never observes a partially written document.
func (s *FileStore) Save(ctx context.Context, sess tether.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tether.ValidateSessionID(sess.ID); err != nil {
		return err
	}
	data, err := MarshalSession(sess)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	path := s.path(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads the session stored under id. Missing, unreadable, and corrupt
// documents all report false; the latter two are logged.
func (s *FileStore) Load(ctx context.Context, id string) (tether.Session, bool) {
	if ctx.Err() != nil || tether.ValidateSessionID(id) != nil {
		return tether.Session{}, false
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("session unreadable", "session_id", id, "error", err)
		}
		return tether.Session{}, false
	}
	sess, err := UnmarshalSession(data)
	if err != nil {
		s.logger.Warn("session corrupt", "session_id", id, "error", err)
		return tether.Session{}, false
	}
	if sess.ID != id {
		s.logger.Warn("session id does not match file name", "session_id", id, "document_id", sess.ID)
		sess.ID = id
	}
	return sess, true
}

// List returns the identifiers of all stored sessions in ascending order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	return s.ListMatching(ctx, "*")
}

// ListMatching returns the identifiers matching a glob pattern, such as
// "2025-*", in ascending order.
func (s *FileStore) ListMatching(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, tether.ErrValidation)
	}
	names, err := doublestar.Glob(os.DirFS(s.root), "*"+ext, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id := strings.TrimSuffix(name, ext)
		if tether.ValidateSessionID(id) != nil {
			continue
		}
		if ok, _ := doublestar.Match(pattern, id); !ok {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes the document for id and reports whether it existed.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := tether.ValidateSessionID(id); err != nil {
		return false, err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return true, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id+ext)
}
