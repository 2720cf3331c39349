package tether

import (
	"context"
	"io"
)

// Transport is the channel to the agent. It is an external collaborator:
// tether only relies on the contract below.
type Transport interface {
	// Connect establishes the channel. opts.Resume, when set, asks the
	// server to continue that session. A non-empty prompt is sent as the
	// first user turn.
	Connect(ctx context.Context, opts Options, prompt string) error

	// Query sends a user turn on the conversation named by sessionKey.
	Query(ctx context.Context, prompt, sessionKey string) error

	// Interrupt asks the agent to stop the turn in flight.
	Interrupt(ctx context.Context) error

	// Receive returns a stream of inbound messages for the lifetime of the
	// connection. Each call returns a new stream over the same connection.
	Receive(ctx context.Context) (MessageStream, error)

	// Disconnect tears the channel down.
	Disconnect() error
}

// MessageStream uses a pull-based iterator pattern. Next returns io.EOF once
// the stream is exhausted; any other error is terminal too. Cancellation
// flows through the context passed to Transport.Receive.
type MessageStream interface {
	Next() (Message, error)
	Close() error
}

// UntilResult returns a stream that ends after the first ResultMessage read
// from s. The result message itself is returned; the following call returns
// io.EOF. Closing the returned stream closes s.
func UntilResult(s MessageStream) MessageStream {
	return &untilResult{inner: s}
}

type untilResult struct {
	inner MessageStream
	done  bool
}

func (u *untilResult) Next() (Message, error) {
	if u.done {
		return nil, io.EOF
	}
	msg, err := u.inner.Next()
	if err != nil {
		return nil, err
	}
	if _, ok := msg.(ResultMessage); ok {
		u.done = true
	}
	return msg, nil
}

func (u *untilResult) Close() error {
	return u.inner.Close()
}
