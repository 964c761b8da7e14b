package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_Succeeded(t *testing.T) {
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		return 42, nil
	})

	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Kind)
	assert.Equal(t, 42, res.Value)
	assert.NoError(t, res.Err)
	require.NotNil(t, res.Summary)
	assert.Empty(t, res.Events)
}

func TestStart_Failed(t *testing.T) {
	boom := errors.New("boom")
	h := Start(func(ctx context.Context, s *Session) (string, error) {
		return "", boom
	})

	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Kind)
	assert.ErrorIs(t, res.Err, boom)
	require.NotNil(t, res.Summary)
}

func TestStart_CanceledViaCancel(t *testing.T) {
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		<-ctx.Done()
		return 0, context.Cause(ctx)
	})

	h.Cancel()
	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, res.Kind)
	assert.NoError(t, res.Err)
	require.NotNil(t, res.Summary)
}

func TestStart_CanceledViaParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, WithCancelParents(parent))

	cancel()
	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, res.Kind)
}

func TestStart_RunsExactlyOnce(t *testing.T) {
	runs := 0
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		runs++
		return runs, nil
	})

	first, err := h.Result(context.Background())
	require.NoError(t, err)
	second, err := h.Result(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, first.Value)
}

func TestStart_StreamClosesEmpty(t *testing.T) {
	var emitErr error
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		// Emits on a simple host are dropped, not buffered.
		_, emitErr = s.Emit("progress", map[string]any{"pct": 50.0})
		return 1, nil
	})

	_, err := h.Result(context.Background())
	require.NoError(t, err)
	require.NoError(t, emitErr)

	ch, unsub := h.Stream()
	defer unsub()
	assert.Empty(t, drainTypes(t, ch))
}

func TestStart_CleanupCancelsAndRunsHooksOnce(t *testing.T) {
	var order []string
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		s.OnDone(func() error {
			order = append(order, "first")
			return nil
		})
		s.OnDone(func() error {
			order = append(order, "second")
			return nil
		})
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.NoError(t, h.Cleanup(context.Background()))
	require.NoError(t, h.Cleanup(context.Background()))

	res, err := h.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, res.Kind)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestStart_ResultHonorsCallerContext(t *testing.T) {
	block := make(chan struct{})
	h := Start(func(ctx context.Context, s *Session) (int, error) {
		<-block
		return 1, nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Result(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
