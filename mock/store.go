package mock

import (
	"context"

	"github.com/fwojciec/tether"
)

// Store is a test double for tether.Store.
// Set the function fields for the methods you need. All of them panic when
// nil so that unexpected storage access fails the test.
type Store struct {
	SaveFn   func(ctx context.Context, s tether.Session) error
	LoadFn   func(ctx context.Context, id string) (tether.Session, bool)
	ListFn   func(ctx context.Context) ([]string, error)
	DeleteFn func(ctx context.Context, id string) (bool, error)
}

// Save delegates to SaveFn.
func (s *Store) Save(ctx context.Context, sess tether.Session) error {
	return s.SaveFn(ctx, sess)
}

// Load delegates to LoadFn.
func (s *Store) Load(ctx context.Context, id string) (tether.Session, bool) {
	return s.LoadFn(ctx, id)
}

// List delegates to ListFn.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.ListFn(ctx)
}

// Delete delegates to DeleteFn.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	return s.DeleteFn(ctx, id)
}
