package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv() (*Env, chan func(*State) error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatchChan := make(chan func(*State) error, 10)
	return &Env{
		DispatchChannel: dispatchChan,
		Context:         ctx,
		Cancel:          cancel,
	}, dispatchChan
}

func TestDispatch(t *testing.T) {
	env, dispatchChan := newTestEnv()
	defer env.Cancel(nil)
	state := &State{Env: env}

	called := false
	env.Dispatch(func(s *State) error {
		called = true
		return nil
	})

	select {
	case f := <-dispatchChan:
		require.NoError(t, f(state))
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for dispatched function")
	}
	assert.True(t, called)
}

func TestDispatchWait(t *testing.T) {
	env, dispatchChan := newTestEnv()
	defer env.Cancel(nil)
	state := &State{Env: env}

	go func() {
		f := <-dispatchChan
		_ = f(state)
	}()

	res, err := env.DispatchWait(func(s *State) (any, error) {
		return 42, errors.New("boom")
	})
	assert.Equal(t, 42, res)
	assert.EqualError(t, err, "boom")
}

func TestDispatchAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	env := &Env{
		DispatchChannel: make(chan func(*State) error),
		Context:         ctx,
		Cancel:          cancel,
	}
	cancel(errors.New("stopping"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.Dispatch(func(s *State) error { return nil })
		_, err := env.DispatchWait(func(s *State) (any, error) { return nil, nil })
		assert.ErrorIs(t, err, context.Canceled)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked after cancellation")
	}
}

func TestPhase(t *testing.T) {
	env, _ := newTestEnv()
	defer env.Cancel(nil)
	assert.Equal(t, Initializing, env.Phase())
	env.SetPhase(Running)
	assert.Equal(t, Running, env.Phase())
	assert.Equal(t, "running", env.Phase().String())
}
