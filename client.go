package tether

import (
	"context"
	"errors"
	"fmt"
)

// Client wraps a Transport so that every inbound message is persisted before
// it reaches the caller. Conversations survive process restarts: pass the
// identifier reported by CurrentSessionID to StartOrResume on a new Client.
//
// A Client is meant to be driven by one goroutine. Only one stream returned
// by ReceiveMessages or ReceiveResponse may be consumed at a time.
type Client struct {
	transport  Transport
	reconciler *Reconciler
}

// NewClient creates a Client that talks to the agent through transport and
// persists sessions to store. opts is the configuration used to connect.
func NewClient(transport Transport, store Store, opts Options, ropts ...ReconcilerOption) *Client {
	return &Client{
		transport:  transport,
		reconciler: NewReconciler(store, opts, ropts...),
	}
}

// Connect establishes the connection, resuming the session selected by
// StartOrResume if any.
func (c *Client) Connect(ctx context.Context, prompt string) error {
	opts := c.reconciler.ConnectOptions()
	if err := opts.Validate(); err != nil {
		return err
	}
	return c.transport.Connect(ctx, opts, prompt)
}

// Query sends a user turn. An empty sessionKey means DefaultSessionKey.
func (c *Client) Query(ctx context.Context, prompt, sessionKey string) error {
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}
	return c.transport.Query(ctx, prompt, sessionKey)
}

// Interrupt asks the agent to stop the turn in flight.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.transport.Interrupt(ctx)
}

// ReceiveMessages returns every inbound message for the lifetime of the
// connection. Each message is persisted before Next returns it; a
// persistence failure is returned from Next and ends the stream.
func (c *Client) ReceiveMessages(ctx context.Context) (MessageStream, error) {
	inner, err := c.transport.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return &persistingStream{ctx: ctx, inner: inner, reconciler: c.reconciler}, nil
}

// ReceiveResponse is ReceiveMessages bounded to one response: the stream
// ends after the first ResultMessage.
func (c *Client) ReceiveResponse(ctx context.Context) (MessageStream, error) {
	s, err := c.ReceiveMessages(ctx)
	if err != nil {
		return nil, err
	}
	return UntilResult(s), nil
}

// StartOrResume selects the session for the next Connect. An empty id starts
// a new session.
func (c *Client) StartOrResume(ctx context.Context, id string) error {
	return c.reconciler.Resume(ctx, id)
}

// Disconnect saves the current session one last time and closes the
// transport. The transport is closed even when the final save fails.
func (c *Client) Disconnect(ctx context.Context) error {
	var errs []error
	if err := c.reconciler.Finalize(ctx); err != nil {
		errs = append(errs, fmt.Errorf("finalize session: %w", err))
	}
	if err := c.transport.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	return errors.Join(errs...)
}

// CurrentSessionID returns the identifier of the current session.
func (c *Client) CurrentSessionID() string {
	return c.reconciler.CurrentSessionID()
}

// Current returns a copy of the current session.
func (c *Client) Current() (Session, bool) {
	return c.reconciler.Current()
}

// ListSessions returns all stored session identifiers in ascending order.
func (c *Client) ListSessions(ctx context.Context) ([]string, error) {
	return c.reconciler.ListSessions(ctx)
}

// LoadSession returns a stored session for inspection.
func (c *Client) LoadSession(ctx context.Context, id string) (Session, bool) {
	return c.reconciler.LoadSession(ctx, id)
}

// DeleteSession removes a stored session and reports whether it existed.
func (c *Client) DeleteSession(ctx context.Context, id string) (bool, error) {
	return c.reconciler.DeleteSession(ctx, id)
}

// persistingStream runs the reconciler on each message before handing it
// downstream. It is the only caller of OnMessage for its reconciler, which
// keeps reconciliation strictly sequential.
type persistingStream struct {
	ctx        context.Context
	inner      MessageStream
	reconciler *Reconciler
	err        error
}

func (s *persistingStream) Next() (Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	msg, err := s.inner.Next()
	if err != nil {
		s.err = err
		return nil, err
	}
	if err := s.reconciler.OnMessage(s.ctx, msg); err != nil {
		s.err = fmt.Errorf("persist %s message: %w", msg.Kind(), err)
		return nil, s.err
	}
	return msg, nil
}

func (s *persistingStream) Close() error {
	if s.err == nil {
		s.err = ErrStreamClosed
	}
	return s.inner.Close()
}
