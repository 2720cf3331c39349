// Package mock provides test doubles for tether interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/tether"
)

// Interface compliance checks.
var (
	_ tether.Transport     = (*Transport)(nil)
	_ tether.MessageStream = (*MessageStream)(nil)
	_ tether.Store         = (*Store)(nil)
)

// Transport is a test double for tether.Transport.
// Set the function fields for the methods you need. ReceiveFn panics when
// nil. The others are no-ops when nil because tests rarely care about them.
type Transport struct {
	ConnectFn    func(ctx context.Context, opts tether.Options, prompt string) error
	QueryFn      func(ctx context.Context, prompt, sessionKey string) error
	InterruptFn  func(ctx context.Context) error
	ReceiveFn    func(ctx context.Context) (tether.MessageStream, error)
	DisconnectFn func() error
}

// Connect delegates to ConnectFn.
func (t *Transport) Connect(ctx context.Context, opts tether.Options, prompt string) error {
	if t.ConnectFn == nil {
		return nil
	}
	return t.ConnectFn(ctx, opts, prompt)
}

// Query delegates to QueryFn.
func (t *Transport) Query(ctx context.Context, prompt, sessionKey string) error {
	if t.QueryFn == nil {
		return nil
	}
	return t.QueryFn(ctx, prompt, sessionKey)
}

// Interrupt delegates to InterruptFn.
func (t *Transport) Interrupt(ctx context.Context) error {
	if t.InterruptFn == nil {
		return nil
	}
	return t.InterruptFn(ctx)
}

// Receive delegates to ReceiveFn.
func (t *Transport) Receive(ctx context.Context) (tether.MessageStream, error) {
	return t.ReceiveFn(ctx)
}

// Disconnect delegates to DisconnectFn.
func (t *Transport) Disconnect() error {
	if t.DisconnectFn == nil {
		return nil
	}
	return t.DisconnectFn()
}
