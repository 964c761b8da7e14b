package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelScope_NoParents(t *testing.T) {
	scope := newCancelScope()

	assert.False(t, scope.Fired())
	assert.NoError(t, scope.Reason())

	reason := errors.New("stop now")
	scope.Cancel(reason)

	assert.True(t, scope.Fired())
	assert.ErrorIs(t, scope.Reason(), reason)
}

func TestCancelScope_AlreadyCanceledParent(t *testing.T) {
	cause := errors.New("parent gone")
	parent, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	scope := newCancelScope(parent)

	// Fired at combination time, with the parent's reason.
	assert.True(t, scope.Fired())
	assert.ErrorIs(t, scope.Reason(), cause)
}

func TestCancelScope_ParentFiresLater(t *testing.T) {
	cause := errors.New("deadline hit")
	parent, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	scope := newCancelScope(parent)
	require.False(t, scope.Fired())

	cancel(cause)

	select {
	case <-scope.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("effective context never fired")
	}
	assert.ErrorIs(t, scope.Reason(), cause)
}

func TestCancelScope_FirstReasonWins(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	scope := newCancelScope()
	scope.Cancel(first)
	scope.Cancel(second)

	assert.ErrorIs(t, scope.Reason(), first)
	assert.NotErrorIs(t, scope.Reason(), second)
}

func TestCancelScope_NilCauseDefaultsToErrCanceled(t *testing.T) {
	scope := newCancelScope()
	scope.Cancel(nil)

	assert.ErrorIs(t, scope.Reason(), ErrCanceled)
}

func TestCancelScope_MultipleParents_FirstToFireWins(t *testing.T) {
	parentA, cancelA := context.WithCancelCause(context.Background())
	parentB, cancelB := context.WithCancelCause(context.Background())
	defer cancelB(nil)

	causeA := errors.New("parent A")
	scope := newCancelScope(parentA, parentB)

	cancelA(causeA)

	select {
	case <-scope.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("effective context never fired")
	}

	cancelB(errors.New("parent B, too late"))
	assert.ErrorIs(t, scope.Reason(), causeA)
}

func TestCancelScope_ReleaseDetachesParents(t *testing.T) {
	parent, cancel := context.WithCancelCause(context.Background())

	scope := newCancelScope(parent)
	scope.Release()

	cancel(errors.New("after release"))

	// Give the (detached) listener a chance to misfire.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, scope.Fired())
}

func TestIsAbortError(t *testing.T) {
	type input struct {
		err error
	}

	type expected struct {
		abort bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "context.Canceled is abort",
			input:    input{err: context.Canceled},
			expected: expected{abort: true},
		},
		{
			name:     "context.DeadlineExceeded is abort",
			input:    input{err: context.DeadlineExceeded},
			expected: expected{abort: true},
		},
		{
			name:     "wrapped context.Canceled is abort",
			input:    input{err: errors.Join(errors.New("call failed"), context.Canceled)},
			expected: expected{abort: true},
		},
		{
			name:     "ErrCanceled is abort",
			input:    input{err: ErrCanceled},
			expected: expected{abort: true},
		},
		{
			name:     "ErrCleanup is abort",
			input:    input{err: ErrCleanup},
			expected: expected{abort: true},
		},
		{
			name:     "ordinary error is not abort",
			input:    input{err: errors.New("boom")},
			expected: expected{abort: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected.abort, isAbortError(tt.input.err))
		})
	}
}
