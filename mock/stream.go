package mock

import (
	"io"

	"github.com/fwojciec/tether"
)

// MessageStream is a test double for tether.MessageStream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// test code commonly calls defer stream.Close().
type MessageStream struct {
	NextFn  func() (tether.Message, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *MessageStream) Next() (tether.Message, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *MessageStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Messages returns a MessageStream that yields msgs in order and then io.EOF.
func Messages(msgs ...tether.Message) *MessageStream {
	i := 0
	return &MessageStream{
		NextFn: func() (tether.Message, error) {
			if i >= len(msgs) {
				return nil, io.EOF
			}
			msg := msgs[i]
			i++
			return msg, nil
		},
	}
}
