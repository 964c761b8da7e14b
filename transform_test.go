package harness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapValue_Succeeded(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 2); err != nil {
			return "", err
		}
		return "hello", nil
	})

	mapped := MapValue(h, func(v string) (int, error) {
		return len(v), nil
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Kind)
	assert.Equal(t, 5, res.Value)

	// Domain events pass through untouched; the complete event carries
	// the transformed value.
	require.Len(t, res.Events, 3)
	assert.Equal(t, "step", res.Events[0].Type)
	assert.Equal(t, EventComplete, res.Events[2].Type)
	assert.Equal(t, 5, res.Events[2].Value)
}

func TestMapValue_SimpleHostValue(t *testing.T) {
	h := Start(func(ctx context.Context, s *Session) (string, error) {
		return "hello", nil
	})

	mapped := MapValue(h, func(v string) (string, error) {
		return strings.ToUpper(v), nil
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Kind)
	assert.Equal(t, "HELLO", res.Value)
	assert.Empty(t, res.Events)
}

func TestMapValue_TransformErrorFailsOutcome(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		return "hello", nil
	})

	bad := errors.New("cannot convert")
	mapped := MapValue(h, func(v string) (int, error) {
		return 0, bad
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Kind)
	assert.ErrorIs(t, res.Err, bad)

	// The failed transform replaces the complete event with an error
	// event carrying the transform error.
	require.NotEmpty(t, res.Events)
	last := res.Events[len(res.Events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, bad)
}

func TestMapValue_NonSucceededPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 1); err != nil {
			return "", err
		}
		return "", boom
	})

	calls := 0
	mapped := MapValue(h, func(v string) (int, error) {
		calls++
		return len(v), nil
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Kind)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, res.Value)
	assert.Zero(t, calls)
	require.Len(t, res.Events, 2)
	assert.Equal(t, EventError, res.Events[1].Type)
}

func TestMapEvents_TransformsEveryEvent(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 2); err != nil {
			return "", err
		}
		return "done", nil
	})

	mapped := MapEvents[string, string](h, func(ev Event) (Event, error) {
		if ev.Type == "step" {
			ev.Type = "renamed"
		}
		return ev, nil
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Kind)
	assert.Equal(t, "done", res.Value)

	require.Len(t, res.Events, 3)
	assert.Equal(t, "renamed", res.Events[0].Type)
	assert.Equal(t, "renamed", res.Events[1].Type)
	assert.Equal(t, EventComplete, res.Events[2].Type)
}

func TestMapEvents_StreamMapsLive(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 2); err != nil {
			return "", err
		}
		return "done", nil
	})

	mapped := MapEvents[string, string](h, func(ev Event) (Event, error) {
		if ev.Type == "step" {
			ev.Type = "renamed"
		}
		return ev, nil
	})

	ch, unsub := mapped.Stream()
	defer unsub()

	assert.Equal(t, []string{"renamed", "renamed", EventComplete}, drainTypes(t, ch))
}

func TestMapEvents_StreamEndsOnTransformError(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 3); err != nil {
			return "", err
		}
		return "done", nil
	})
	_, err := h.Result(context.Background())
	require.NoError(t, err)

	bad := errors.New("bad event")
	seen := 0
	mapped := MapEvents[string, string](h, func(ev Event) (Event, error) {
		seen++
		if seen == 2 {
			return Event{}, bad
		}
		return ev, nil
	})

	ch, unsub := mapped.Stream()
	defer unsub()

	var types []string
	var lastErr error
	for ev := range ch {
		types = append(types, ev.Type)
		lastErr = ev.Err
	}

	// One mapped event, then a synthesized error event, then the stream
	// ends without reaching the rest of the backlog.
	assert.Equal(t, []string{"step", EventError}, types)
	assert.ErrorIs(t, lastErr, bad)
}

func TestMapEvents_PanicContained(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		if err := emitSteps(s, 1); err != nil {
			return "", err
		}
		return "done", nil
	})

	mapped := MapEvents[string, string](h, func(ev Event) (Event, error) {
		panic("transform exploded")
	})

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Kind)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "transform exploded")
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventError, res.Events[0].Type)
}

func TestMapEvents_ResultMemoized(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		return "done", nil
	})

	calls := 0
	mapped := MapEvents[string, string](h, func(ev Event) (Event, error) {
		calls++
		return ev, nil
	})

	first, err := mapped.Result(context.Background())
	require.NoError(t, err)
	second, err := mapped.Result(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestMappedHost_CancelDelegates(t *testing.T) {
	started := make(chan struct{})
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	mapped := MapValue(h, func(v string) (int, error) {
		return len(v), nil
	})

	<-started
	mapped.Cancel()

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, res.Kind)
	require.NotNil(t, res.Summary)
}

func TestMappedHost_CleanupDelegates(t *testing.T) {
	runs := 0
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		s.OnDone(func() error {
			runs++
			return nil
		})
		<-ctx.Done()
		return "", ctx.Err()
	})

	mapped := MapValue(h, func(v string) (int, error) {
		return len(v), nil
	})

	require.NoError(t, mapped.Cleanup(context.Background()))
	assert.Equal(t, 1, runs)

	res, err := mapped.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, res.Kind)
}

func TestMapValue_Chained(t *testing.T) {
	h := StartStream(func(ctx context.Context, s *Session) (string, error) {
		return "hello", nil
	})

	upper := MapValue(h, func(v string) (string, error) {
		return strings.ToUpper(v), nil
	})
	length := MapValue(upper, func(v string) (int, error) {
		return len(v), nil
	})

	res, err := length.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Kind)
	assert.Equal(t, 5, res.Value)
}
