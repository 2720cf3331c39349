package tether

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"
)

// Reconciler owns the current session of one connection. It decides, for
// every inbound message, whether the session is new, continuing, or has been
// renamed by the server, and keeps the Store consistent with that decision.
//
// The server is the only authority on session identifiers. When it changes
// the identifier of a session that is already underway, the record is moved:
// it is saved under the new key first and the old key is deleted afterwards,
// so a crash in between leaves a stale duplicate rather than losing history.
// Keys whose delete failed are retried after every later save, so a burst of
// renames collapses into one record under the last identifier.
//
// A Reconciler is not safe for concurrent use. Messages must be passed to
// OnMessage one at a time, in the order the transport produced them.
type Reconciler struct {
	store   Store
	options Options
	now     func() time.Time
	workDir func() (string, error)
	logger  *slog.Logger

	currentID string
	current   *Session
	resume    string

	// stale holds keys the current record was persisted under before a
	// rename and that have not been deleted yet.
	stale []string
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithClock sets the time source used for session timestamps.
// Defaults to time.Now.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithWorkingDirectory sets the function that reports the working directory
// recorded in new sessions. Defaults to os.Getwd.
func WithWorkingDirectory(dir func() (string, error)) ReconcilerOption {
	return func(r *Reconciler) {
		r.workDir = dir
	}
}

// WithLogger sets the logger. If nil or not set, logs are discarded.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a Reconciler that persists to store. opts is the
// configuration in effect; it is snapshotted into every new session.
func NewReconciler(store Store, opts Options, ropts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:   store,
		options: opts,
		now:     time.Now,
		workDir: os.Getwd,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range ropts {
		opt(r)
	}
	return r
}

// Resume prepares the next connection. With a non-empty id the stored
// session is adopted as the current one when it exists, and the transport
// will be asked to continue id on connect whether or not it was found
// locally. With an empty id the current session is dropped and the next
// connection starts a new session.
func (r *Reconciler) Resume(ctx context.Context, id string) error {
	r.currentID = ""
	r.current = nil
	r.resume = ""
	if id == "" {
		return nil
	}
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	r.resume = id
	s, ok := r.store.Load(ctx, id)
	if !ok {
		r.logger.Info("no local copy of resumed session", "session_id", id)
		return nil
	}
	r.adopt(id, &s)
	r.logger.Info("session loaded for resume", "session_id", id, "messages", len(s.History))
	return nil
}

// ConnectOptions returns the options for the next connection: the
// configuration in effect with the resume target set by Resume.
func (r *Reconciler) ConnectOptions() Options {
	return r.options.WithResume(r.resume)
}

// OnMessage reconciles msg against the current session, appends it to the
// history, and saves the session. Store write failures are returned; a failed
// load is treated as "not stored". On a write failure msg remains in the
// in-memory history and is written by the next successful save.
func (r *Reconciler) OnMessage(ctx context.Context, msg Message) error {
	var renamedFrom string
	if id, ok := SessionIDOf(msg); ok && id != r.currentID {
		renamedFrom = r.switchTo(ctx, id)
	}
	if r.current == nil {
		return nil
	}
	r.current.Append(msg, r.now())
	if err := r.save(ctx); err != nil {
		if renamedFrom != "" {
			return fmt.Errorf("rename session %s to %s: %w", renamedFrom, r.currentID, err)
		}
		return err
	}
	return nil
}

// Finalize records the end of the session: it moves LastActivity to now and
// saves one last time. It is a no-op when there is no current session.
func (r *Reconciler) Finalize(ctx context.Context) error {
	if r.current == nil {
		return nil
	}
	r.current.Touch(r.now())
	return r.save(ctx)
}

// CurrentSessionID returns the identifier of the current session, or an
// empty string when no identifier has been observed or resumed.
func (r *Reconciler) CurrentSessionID() string {
	return r.currentID
}

// Current returns a copy of the current session.
func (r *Reconciler) Current() (Session, bool) {
	if r.current == nil {
		return Session{}, false
	}
	return r.current.Clone(), true
}

// ListSessions returns all stored session identifiers in ascending order.
func (r *Reconciler) ListSessions(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// LoadSession returns a stored session for inspection. It does not change
// the current session.
func (r *Reconciler) LoadSession(ctx context.Context, id string) (Session, bool) {
	return r.store.Load(ctx, id)
}

// DeleteSession removes a stored session and reports whether it existed.
func (r *Reconciler) DeleteSession(ctx context.Context, id string) (bool, error) {
	return r.store.Delete(ctx, id)
}

// switchTo makes id the current session. When a session is already underway
// it is renamed and the previous identifier is returned; the caller's next
// save moves the record.
func (r *Reconciler) switchTo(ctx context.Context, id string) string {
	old := r.currentID
	if r.current == nil {
		if s, ok := r.store.Load(ctx, id); ok {
			r.adopt(id, &s)
			r.logger.Info("session restored", "session_id", id, "messages", len(s.History))
			return ""
		}
		now := r.now()
		r.adopt(id, &Session{
			ID:               id,
			StartTime:        now,
			LastActivity:     now,
			WorkingDirectory: r.workingDirectory(),
			Options:          r.options.Snapshot(),
		})
		r.logger.Info("session started", "session_id", id)
		return ""
	}

	// The server renamed a session that is already underway.
	if old != "" && !slices.Contains(r.stale, old) {
		r.stale = append(r.stale, old)
	}
	r.current.ID = id
	r.adopt(id, r.current)
	r.logger.Info("session renamed", "from", old, "to", id)
	return old
}

// adopt makes s the current session under id. A key that becomes current
// again is no longer stale.
func (r *Reconciler) adopt(id string, s *Session) {
	r.currentID = id
	r.current = s
	r.stale = slices.DeleteFunc(r.stale, func(k string) bool { return k == id })
}

// save writes the current session and then deletes every key it was
// superseded from. Deletes run only after a successful save, so the history
// always exists under at least one key.
func (r *Reconciler) save(ctx context.Context) error {
	if err := r.store.Save(ctx, r.current.Clone()); err != nil {
		return fmt.Errorf("save session %s: %w", r.current.ID, err)
	}
	return r.sweep(ctx)
}

func (r *Reconciler) sweep(ctx context.Context) error {
	if len(r.stale) == 0 {
		return nil
	}
	var (
		kept []string
		errs []error
	)
	for _, id := range r.stale {
		removed, err := r.store.Delete(ctx, id)
		if err != nil {
			kept = append(kept, id)
			errs = append(errs, fmt.Errorf("delete superseded session %s: %w", id, err))
			continue
		}
		r.logger.Debug("superseded session removed", "session_id", id, "existed", removed)
	}
	r.stale = kept
	return errors.Join(errs...)
}

func (r *Reconciler) workingDirectory() string {
	dir, err := r.workDir()
	if err != nil {
		r.logger.Warn("working directory unavailable", "error", err)
		return ""
	}
	return dir
}
