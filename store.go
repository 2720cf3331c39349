package tether

import "context"

// Store is durable, keyed persistence for sessions, addressed by Session.ID.
//
// Reads never fail: Load reports false when the entry is missing, unreadable,
// or corrupt, so a resume degrades to starting fresh. Writes always report
// failure, because losing history silently is worse than surfacing the error.
type Store interface {
	// Save writes s under s.ID, replacing any previous entry atomically.
	// Saving the same session twice leaves the same persisted state.
	Save(ctx context.Context, s Session) error

	// Load returns the session stored under id.
	Load(ctx context.Context, id string) (Session, bool)

	// List returns all stored identifiers in ascending order.
	List(ctx context.Context) ([]string, error)

	// Delete removes the entry for id and reports whether one existed.
	// Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) (bool, error)
}
