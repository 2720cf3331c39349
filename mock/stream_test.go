package mock_test

import (
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/tether"
	"github.com/fwojciec/tether/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStream_Next(t *testing.T) {
	t.Parallel()
	t.Run("delegates to NextFn", func(t *testing.T) {
		t.Parallel()
		want := tether.SystemMessage{Subtype: "init"}
		s := mock.MessageStream{
			NextFn: func() (tether.Message, error) {
				return want, nil
			},
		}
		got, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("panics when NextFn not set", func(t *testing.T) {
		t.Parallel()
		s := mock.MessageStream{}
		assert.Panics(t, func() {
			_, _ = s.Next()
		})
	})
}

func TestMessageStream_Close(t *testing.T) {
	t.Parallel()
	t.Run("delegates to CloseFn", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("close failed")
		s := mock.MessageStream{CloseFn: func() error { return wantErr }}
		assert.ErrorIs(t, s.Close(), wantErr)
	})

	t.Run("returns nil when CloseFn not set", func(t *testing.T) {
		t.Parallel()
		s := mock.MessageStream{}
		assert.NoError(t, s.Close())
	})
}

func TestMessages(t *testing.T) {
	t.Parallel()
	first := tether.SystemMessage{Subtype: "init"}
	second := tether.ResultMessage{SessionID: "s1"}
	s := mock.Messages(first, second)

	got, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, second, got)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}
